package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

// Memory is an in-memory Store used by tests and local development.
type Memory struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction
	sessions     map[string]*models.PaymentSession
	merchants    map[string]*models.Merchant
	configs      []*models.PaymentConfig
	logs         []models.WebhookLog
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]*models.Transaction),
		sessions:     make(map[string]*models.PaymentSession),
		merchants:    make(map[string]*models.Merchant),
	}
}

func (m *Memory) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (m *Memory) GetTransactionByProviderReference(ctx context.Context, ref string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.transactions {
		if txn.ProviderReference == ref {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetTransactionByReferenceOrID(ctx context.Context, ref string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.transactions {
		if txn.ProviderReference == ref || txn.ID == ref {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetLatestTransactionBySession(ctx context.Context, sessionID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Transaction
	for _, txn := range m.transactions {
		if txn.SessionID != sessionID {
			continue
		}
		if latest == nil || txn.CreatedAt.After(latest.CreatedAt) {
			latest = txn
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	cp := *txn
	m.transactions[txn.ID] = &cp
	return nil
}

func (m *Memory) UpdateTransaction(ctx context.Context, id string, upd TransactionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	if upd.Status != nil {
		txn.Status = *upd.Status
	}
	if upd.ProviderReference != nil {
		txn.ProviderReference = *upd.ProviderReference
	}
	if upd.ReceiptNumber != nil {
		txn.ReceiptNumber = upd.ReceiptNumber
	}
	if upd.TransactionTime != nil {
		txn.TransactionTime = upd.TransactionTime
	}
	if upd.AmountPaid != nil {
		txn.AmountPaid = upd.AmountPaid
	}
	if upd.VerificationStatus != nil {
		txn.VerificationStatus = *upd.VerificationStatus
	}
	if upd.CustomerPhone != nil {
		txn.CustomerPhone = *upd.CustomerPhone
	}
	if upd.CustomerEmail != nil {
		txn.CustomerEmail = *upd.CustomerEmail
	}
	if upd.CustomerName != nil {
		txn.CustomerName = *upd.CustomerName
	}
	if upd.Metadata != nil {
		txn.Metadata = upd.Metadata
	}
	txn.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) UpdateWebhookDelivery(ctx context.Context, id string, delivered bool, attempts int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	txn.WebhookDelivered = delivered
	txn.WebhookAttempts = attempts
	txn.WebhookLastAttempt = &at
	txn.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *Memory) InsertSession(ctx context.Context, session *models.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *Memory) UpdateSessionStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	session.Status = status
	session.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) GetMerchant(ctx context.Context, id string) (*models.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merchant, ok := m.merchants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *merchant
	return &cp, nil
}

func (m *Memory) GetMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, merchant := range m.merchants {
		if merchant.APIKey == apiKey {
			cp := *merchant
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertMerchant(merchant *models.Merchant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *merchant
	m.merchants[merchant.ID] = &cp
}

func (m *Memory) GetPaymentConfig(ctx context.Context, merchantID, method string) (*models.PaymentConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.configs {
		if cfg.MerchantID == merchantID && cfg.PaymentMethod == method {
			cp := *cfg
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertPaymentConfig(cfg *models.PaymentConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.configs = append(m.configs, &cp)
}

func (m *Memory) InsertWebhookLog(ctx context.Context, logEntry *models.WebhookLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}
	if logEntry.CreatedAt.IsZero() {
		logEntry.CreatedAt = time.Now()
	}
	m.logs = append(m.logs, *logEntry)
	return nil
}

func (m *Memory) ListWebhookLogs(ctx context.Context, transactionID string) ([]models.WebhookLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var logs []models.WebhookLog
	for _, l := range m.logs {
		if l.TransactionID == transactionID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	return logs, nil
}
