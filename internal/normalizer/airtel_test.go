package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhubprime/payhub-gobackend/internal/models"
)

func TestAirtelNormalizeSuccess(t *testing.T) {
	payload := []byte(`{
		"transaction": {
			"id": "airtel-ref-1",
			"status": "TS",
			"airtel_money_id": "AM-900",
			"amount": "750.00",
			"created_at": "2024-02-01T08:00:00Z"
		}
	}`)

	result, err := NewAirtelNormalizer().Normalize(payload)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "airtel-ref-1", result.ProviderReference)
	assert.True(t, result.MatchByID)
	require.NotNil(t, result.ReceiptID)
	assert.Equal(t, "AM-900", *result.ReceiptID)
	require.NotNil(t, result.ConfirmedAmount)
	assert.Equal(t, 750.00, *result.ConfirmedAmount)
	require.NotNil(t, result.OccurredAt)
	assert.Equal(t, "2024-02-01T08:00:00Z", *result.OccurredAt)
}

func TestAirtelNormalizeNestedDataShape(t *testing.T) {
	payload := []byte(`{
		"data": {
			"transaction": {
				"id": "airtel-ref-2",
				"amount": 120.5
			}
		},
		"status": {"code": "200"}
	}`)

	result, err := NewAirtelNormalizer().Normalize(payload)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "airtel-ref-2", result.ProviderReference)
	require.NotNil(t, result.ConfirmedAmount)
	assert.Equal(t, 120.5, *result.ConfirmedAmount)
}

func TestAirtelStatusKeyPriority(t *testing.T) {
	// transaction.status beats both status.code and top-level status.
	payload := []byte(`{
		"transaction": {"id": "ref", "status": "TF"},
		"status": "SUCCESS"
	}`)

	result, err := NewAirtelNormalizer().Normalize(payload)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFailure, result.Outcome)
}

func TestAirtelNormalizeOutcomes(t *testing.T) {
	tests := []struct {
		status  string
		outcome string
	}{
		{"TS", models.OutcomeSuccess},
		{"200", models.OutcomeSuccess},
		{"SUCCESS", models.OutcomeSuccess},
		{"TF", models.OutcomeFailure},
		{"FAILED", models.OutcomeFailure},
		{"TIP", models.OutcomePending},
		{"PENDING", models.OutcomePending},
		{"GARBAGE", models.OutcomeFailure},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			payload := []byte(`{"transaction": {"id": "ref", "status": "` + tc.status + `"}}`)
			result, err := NewAirtelNormalizer().Normalize(payload)
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, result.Outcome)
		})
	}
}

func TestAirtelNormalizeMissingReference(t *testing.T) {
	_, err := NewAirtelNormalizer().Normalize([]byte(`{"status": "TS"}`))
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestAirtelReferenceFallback(t *testing.T) {
	payload := []byte(`{"reference": "txn-uuid-1", "status": "PENDING"}`)
	result, err := NewAirtelNormalizer().Normalize(payload)
	require.NoError(t, err)
	assert.Equal(t, "txn-uuid-1", result.ProviderReference)
	assert.Equal(t, models.OutcomePending, result.Outcome)
}
