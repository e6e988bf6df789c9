package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventtix/internal/services/gateway/wave"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWaveAdapter(t *testing.T, baseURL string) *WaveAdapter {
	t.Helper()
	adapter, err := NewWaveAdapter(context.Background(), &wave.Config{
		APIKey:             "wave_sn_test_123",
		BaseURL:            baseURL,
		ErrorURL:           "https://shop.test/error",
		SettlementCurrency: "XOF",
	})
	require.NoError(t, err)
	return adapter
}

func TestWaveAdapter_CreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer wave_sn_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "PAY-1756500000000-7", r.Header.Get("Idempotency-Key"))

		var body struct {
			Amount          string `json:"amount"`
			Currency        string `json:"currency"`
			ClientReference string `json:"client_reference"`
			SuccessURL      string `json:"success_url"`
			ErrorURL        string `json:"error_url"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "60300", body.Amount)
		assert.Equal(t, "XOF", body.Currency)
		assert.Equal(t, "PAY-1756500000000-7", body.ClientReference)
		assert.Equal(t, "https://shop.test/error", body.ErrorURL)

		fmt.Fprint(w, `{"id":"cos-1","wave_launch_url":"https://pay.wave.com/c/cos-1","payment_status":"processing"}`)
	}))
	defer server.Close()

	adapter := newWaveAdapter(t, server.URL)
	session, err := adapter.CreateSession(context.Background(), &SessionRequest{
		Amount:      decimal.NewFromInt(60300),
		Currency:    "XOF",
		Reference:   "PAY-1756500000000-7",
		CallbackURL: "https://shop.test/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "cos-1", session.ID)
	assert.Equal(t, "https://pay.wave.com/c/cos-1", session.RedirectURL)
	assert.Equal(t, ProviderWave, session.Provider)
}

func TestWaveAdapter_CheckStatus(t *testing.T) {
	tests := []struct {
		name          string
		paymentStatus string
		outcome       Outcome
	}{
		{"succeeded maps to success", "succeeded", OutcomeSuccess},
		{"cancelled maps to failed", "cancelled", OutcomeFailed},
		{"expired maps to failed", "expired", OutcomeFailed},
		{"processing stays pending", "processing", OutcomePending},
		{"unknown status stays pending", "reviewing", OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/checkout/sessions/cos-1", r.URL.Path)
				fmt.Fprintf(w, `{"id":"cos-1","payment_status":"%s","transaction_id":"TQ1ABCDE","amount":"60300","currency":"xof"}`, tt.paymentStatus)
			}))
			defer server.Close()

			adapter := newWaveAdapter(t, server.URL)
			result, err := adapter.CheckStatus(context.Background(), "cos-1")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, "TQ1ABCDE", result.TransactionID)
			assert.Equal(t, "XOF", result.Currency)
		})
	}
}

func TestWaveAdapter_CheckStatus_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":"not-found","message":"checkout session not found"}`)
	}))
	defer server.Close()

	adapter := newWaveAdapter(t, server.URL)
	_, err := adapter.CheckStatus(context.Background(), "cos-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout session not found")
}

func TestWaveAdapter_RefundUnsupported(t *testing.T) {
	adapter := newWaveAdapter(t, "http://wave.invalid")
	err := adapter.Refund(context.Background(), "cos-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestWaveAdapter_SettlementCurrency(t *testing.T) {
	adapter := newWaveAdapter(t, "http://wave.invalid")
	assert.Equal(t, "XOF", adapter.SettlementCurrency())
}
