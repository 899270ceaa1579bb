package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

func newPaystackClient(t *testing.T, baseURL string) *billing.PaystackClient {
	t.Helper()

	client, err := billing.NewPaystackClient(billing.PaystackConfig{
		SecretKey: "sk_test_abc123",
		BaseURL:   baseURL,
	})
	require.NoError(t, err)
	return client
}

func TestNewPaystackClient_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := billing.NewPaystackClient(billing.PaystackConfig{})
	require.ErrorIs(t, err, billing.ErrMissingSecretKey)
}

func TestPaystackClient_VerifyTransaction(t *testing.T) {
	t.Parallel()

	t.Run("decodes a successful verification", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/transaction/verify/ref_1", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_abc123", r.Header.Get("Authorization"))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":  true,
				"message": "Verification successful",
				"data": map[string]any{
					"reference": "ref_1",
					"status":    "success",
					"amount":    500,
					"currency":  "USD",
				},
			})
		}))
		defer server.Close()

		client := newPaystackClient(t, server.URL)
		transaction, err := client.VerifyTransaction(context.Background(), "ref_1")
		require.NoError(t, err)
		assert.Equal(t, "success", transaction.Status)
		assert.Equal(t, int64(500), transaction.Amount)
	})

	t.Run("maps provider rejection to ErrProviderCall", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":  false,
				"message": "Transaction reference not found",
			})
		}))
		defer server.Close()

		client := newPaystackClient(t, server.URL)
		_, err := client.VerifyTransaction(context.Background(), "ref_missing")
		require.ErrorIs(t, err, billing.ErrProviderCall)
		assert.Contains(t, err.Error(), "Transaction reference not found")
	})

	t.Run("maps http errors to ErrProviderCall", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := newPaystackClient(t, server.URL)
		_, err := client.VerifyTransaction(context.Background(), "ref_1")
		require.ErrorIs(t, err, billing.ErrProviderCall)
	})

	t.Run("rejects empty reference locally", func(t *testing.T) {
		t.Parallel()

		client := newPaystackClient(t, "http://localhost:0")
		_, err := client.VerifyTransaction(context.Background(), "")
		require.ErrorIs(t, err, billing.ErrProviderCall)
	})
}

func TestPaystackClient_CreateSubscription(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/subscription", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "CUS_1", payload["customer"])
		assert.Equal(t, "PLN_pro_monthly", payload["plan"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"subscription_code": "SUB_new",
				"email_token":       "tok_1",
				"next_payment_date": "2025-07-20T00:00:00Z",
				"status":            "active",
			},
		})
	}))
	defer server.Close()

	client := newPaystackClient(t, server.URL)
	subscription, err := client.CreateSubscription(context.Background(), "CUS_1", "PLN_pro_monthly")
	require.NoError(t, err)
	assert.Equal(t, "SUB_new", subscription.SubscriptionCode)
	assert.Equal(t, "2025-07-20T00:00:00Z", subscription.NextPaymentDate)
}

func TestPaystackClient_DisableSubscription(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscription/disable", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "SUB_1", payload["code"])
		assert.Equal(t, "tok_1", payload["token"])

		_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "message": "Subscription disabled"})
	}))
	defer server.Close()

	client := newPaystackClient(t, server.URL)
	require.NoError(t, client.DisableSubscription(context.Background(), "SUB_1", "tok_1"))
}
