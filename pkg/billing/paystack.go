package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PaystackConfig holds credentials and endpoints for the Paystack REST API.
// SecretKey doubles as the webhook HMAC secret, matching the provider's
// signing scheme.
type PaystackConfig struct {
	SecretKey string        `env:"PAYSTACK_SECRET_KEY,required"`
	BaseURL   string        `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	Timeout   time.Duration `env:"PAYSTACK_TIMEOUT" envDefault:"15s"`
}

// Transaction is the subset of a verified provider transaction the lifecycle
// engine cares about.
type Transaction struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// ProviderSubscription is the provider-side record created for a recurring plan.
type ProviderSubscription struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	NextPaymentDate  string `json:"next_payment_date"`
	Status           string `json:"status"`
}

// ProviderClient is the outbound contract with the payment provider.
// All calls are single-attempt; the webhook path treats failures as
// best-effort and never blocks local state on them.
type ProviderClient interface {
	// VerifyTransaction confirms a charge reference against the provider.
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)

	// CreateSubscription subscribes an existing provider customer to a plan.
	CreateSubscription(ctx context.Context, customerCode, planCode string) (*ProviderSubscription, error)

	// DisableSubscription turns off provider-side auto-renewal.
	DisableSubscription(ctx context.Context, subscriptionCode, emailToken string) error
}

// PaystackClient implements ProviderClient over Paystack's REST API with
// bearer-token auth.
type PaystackClient struct {
	config PaystackConfig
	http   *http.Client
}

// NewPaystackClient creates a Paystack API client.
func NewPaystackClient(config PaystackConfig) (*PaystackClient, error) {
	if config.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.paystack.co"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackClient{
		config: config,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

// providerResponse is Paystack's uniform response envelope.
type providerResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: empty transaction reference", ErrProviderCall)
	}

	var transaction Transaction
	path := "/transaction/verify/" + reference
	if err := c.do(ctx, http.MethodGet, path, nil, &transaction); err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (c *PaystackClient) CreateSubscription(ctx context.Context, customerCode, planCode string) (*ProviderSubscription, error) {
	if customerCode == "" || planCode == "" {
		return nil, fmt.Errorf("%w: customer and plan codes are required", ErrProviderCall)
	}

	payload := map[string]string{
		"customer": customerCode,
		"plan":     planCode,
	}
	var subscription ProviderSubscription
	if err := c.do(ctx, http.MethodPost, "/subscription", payload, &subscription); err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (c *PaystackClient) DisableSubscription(ctx context.Context, subscriptionCode, emailToken string) error {
	if subscriptionCode == "" {
		return fmt.Errorf("%w: empty subscription code", ErrProviderCall)
	}

	payload := map[string]string{
		"code":  subscriptionCode,
		"token": emailToken,
	}
	return c.do(ctx, http.MethodPost, "/subscription/disable", payload, nil)
}

// do performs one authenticated request and decodes the response envelope
// into out when provided.
func (c *PaystackClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProviderCall, err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d from %s", ErrProviderCall, resp.StatusCode, path)
	}

	var envelope providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderCall, err)
	}
	if !envelope.Status {
		return fmt.Errorf("%w: %s", ErrProviderCall, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrProviderCall, err)
		}
	}
	return nil
}
