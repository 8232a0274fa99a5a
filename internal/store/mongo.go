package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// MongoStore implements Store against MongoDB.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the indexes the callback and delivery paths query on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	txnIndexes := []mongo.IndexModel{
		{Keys: bson.M{"provider_reference": 1}},
		{Keys: bson.M{"session_id": 1}},
		{Keys: bson.D{{Key: "merchant_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.db.Collection("transactions").Indexes().CreateMany(ctx, txnIndexes); err != nil {
		return fmt.Errorf("failed to create transaction indexes: %w", err)
	}

	logIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "transaction_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.db.Collection("webhook_logs").Indexes().CreateMany(ctx, logIndexes); err != nil {
		return fmt.Errorf("failed to create webhook log indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.findTransaction(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetTransactionByProviderReference(ctx context.Context, ref string) (*models.Transaction, error) {
	return s.findTransaction(ctx, bson.M{"provider_reference": ref})
}

func (s *MongoStore) GetTransactionByReferenceOrID(ctx context.Context, ref string) (*models.Transaction, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"provider_reference": ref},
		bson.M{"_id": ref},
	}}
	return s.findTransaction(ctx, filter)
}

func (s *MongoStore) GetLatestTransactionBySession(ctx context.Context, sessionID string) (*models.Transaction, error) {
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})
	var txn models.Transaction
	err := s.db.Collection("transactions").FindOne(ctx, bson.M{"session_id": sessionID}, opts).Decode(&txn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch transaction for session %s: %w", sessionID, err)
	}
	return &txn, nil
}

func (s *MongoStore) findTransaction(ctx context.Context, filter bson.M) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.Collection("transactions").FindOne(ctx, filter).Decode(&txn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return &txn, nil
}

func (s *MongoStore) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	_, err := s.db.Collection("transactions").InsertOne(ctx, txn)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateTransaction(ctx context.Context, id string, upd TransactionUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.ProviderReference != nil {
		set["provider_reference"] = *upd.ProviderReference
	}
	if upd.ReceiptNumber != nil {
		set["receipt_number"] = *upd.ReceiptNumber
	}
	if upd.TransactionTime != nil {
		set["transaction_timestamp"] = *upd.TransactionTime
	}
	if upd.AmountPaid != nil {
		set["amount_paid"] = *upd.AmountPaid
	}
	if upd.VerificationStatus != nil {
		set["verification_status"] = *upd.VerificationStatus
	}
	if upd.CustomerPhone != nil {
		set["customer_phone"] = *upd.CustomerPhone
	}
	if upd.CustomerEmail != nil {
		set["customer_email"] = *upd.CustomerEmail
	}
	if upd.CustomerName != nil {
		set["customer_name"] = *upd.CustomerName
	}
	if upd.Metadata != nil {
		set["metadata"] = upd.Metadata
	}

	res, err := s.db.Collection("transactions").UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateWebhookDelivery(ctx context.Context, id string, delivered bool, attempts int, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"webhook_delivered":    delivered,
		"webhook_attempts":     attempts,
		"webhook_last_attempt": at,
		"updated_at":           time.Now(),
	}}
	res, err := s.db.Collection("transactions").UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update webhook delivery for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetSession(ctx context.Context, id string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := s.db.Collection("payment_sessions").FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch session %s: %w", id, err)
	}
	return &session, nil
}

func (s *MongoStore) InsertSession(ctx context.Context, session *models.PaymentSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	_, err := s.db.Collection("payment_sessions").InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateSessionStatus(ctx context.Context, id, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	_, err := s.db.Collection("payment_sessions").UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update session %s status: %w", id, err)
	}
	return nil
}

func (s *MongoStore) GetMerchant(ctx context.Context, id string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := s.db.Collection("merchants").FindOne(ctx, bson.M{"_id": id}).Decode(&merchant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch merchant %s: %w", id, err)
	}
	return &merchant, nil
}

func (s *MongoStore) GetMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := s.db.Collection("merchants").FindOne(ctx, bson.M{"api_key": apiKey}).Decode(&merchant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch merchant by api key: %w", err)
	}
	return &merchant, nil
}

func (s *MongoStore) GetPaymentConfig(ctx context.Context, merchantID, method string) (*models.PaymentConfig, error) {
	filter := bson.M{"merchant_id": merchantID, "payment_method": method}
	var cfg models.PaymentConfig
	err := s.db.Collection("merchant_payment_configs").FindOne(ctx, filter).Decode(&cfg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment config for merchant %s: %w", merchantID, err)
	}
	return &cfg, nil
}

func (s *MongoStore) InsertWebhookLog(ctx context.Context, logEntry *models.WebhookLog) error {
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}
	logEntry.CreatedAt = time.Now()
	_, err := s.db.Collection("webhook_logs").InsertOne(ctx, logEntry)
	if err != nil {
		return fmt.Errorf("failed to insert webhook log: %w", err)
	}
	return nil
}

func (s *MongoStore) ListWebhookLogs(ctx context.Context, transactionID string) ([]models.WebhookLog, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := s.db.Collection("webhook_logs").Find(ctx, bson.M{"transaction_id": transactionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch webhook logs for %s: %w", transactionID, err)
	}
	defer cur.Close(ctx)

	var logs []models.WebhookLog
	if err := cur.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode webhook logs: %w", err)
	}
	return logs, nil
}
