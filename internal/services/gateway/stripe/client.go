package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	SecretKey  string `json:"secret_key" mapstructure:"secret_key"`
	AccountID  string `json:"account_id" mapstructure:"account_id"`
	BaseURL    string `json:"base_url" mapstructure:"base_url"`
	SuccessURL string `json:"success_url" mapstructure:"success_url"`
	CancelURL  string `json:"cancel_url" mapstructure:"cancel_url"`
}

// Client talks to the Stripe REST API. Stripe takes form-encoded bodies
// and amounts in the currency's minor unit.
type Client struct {
	baseURL    string
	secretKey  string
	accountID  string
	successURL string
	cancelURL  string

	hc *http.Client
}

func NewClient(cfg *Config) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe: missing secret key")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		accountID:  strings.TrimSpace(cfg.AccountID),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,

		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CheckoutSession is the subset of Stripe's checkout session object the
// platform cares about.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`         // open, complete, expired
	PaymentStatus string `json:"payment_status"` // paid, unpaid, no_payment_required
	PaymentIntent string `json:"payment_intent"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type SessionForm struct {
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	ProductName string
	Metadata    map[string]string
}

// CreateCheckoutSession opens a hosted checkout session. The reference
// doubles as the idempotency key, so Stripe collapses retries of the same
// purchase into one session.
func (c *Client) CreateCheckoutSession(ctx context.Context, f *SessionForm) (*CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", c.successURL)
	values.Set("cancel_url", c.cancelURL)
	values.Set("client_reference_id", f.Reference)
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(f.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(minorUnits(f.Amount, f.Currency), 10))
	values.Set("line_items[0][price_data][product_data][name]", f.ProductName)
	for k, v := range f.Metadata {
		values.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var session CheckoutSession
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, f.Reference, &session); err != nil {
		return nil, fmt.Errorf("createCheckoutSession: %w", err)
	}
	return &session, nil
}

// RetrieveCheckoutSession fetches a session's current state.
func (c *Client) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, "", &session); err != nil {
		return nil, fmt.Errorf("retrieveCheckoutSession: %w", err)
	}
	return &session, nil
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateRefund refunds the payment intent behind a settled session.
func (c *Client) CreateRefund(ctx context.Context, paymentIntent, reference string) (*Refund, error) {
	values := url.Values{}
	values.Set("payment_intent", paymentIntent)

	var refund Refund
	if err := c.doRequest(ctx, http.MethodPost, "/v1/refunds", values, "refund:"+reference, &refund); err != nil {
		return nil, fmt.Errorf("createRefund: %w", err)
	}
	return &refund, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, values url.Values, idempotencyKey string, out any) error {
	body := ""
	if values != nil {
		body = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.accountID != "" {
		req.Header.Set("Stripe-Account", c.accountID)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return fmt.Errorf("stripe request failed with status %d", resp.StatusCode)
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = fmt.Sprintf("stripe request failed with status %d", resp.StatusCode)
		}
		return errors.New(message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// zeroDecimal lists the currencies Stripe treats as having no minor unit.
var zeroDecimal = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {},
	"KRW": {}, "MGA": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// MajorUnits converts Stripe's integer minor unit back to a decimal
// amount.
func MajorUnits(minor int64, currency string) decimal.Decimal {
	if _, ok := zeroDecimal[strings.ToUpper(currency)]; ok {
		return decimal.NewFromInt(minor)
	}
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

// minorUnits converts a decimal amount to Stripe's integer minor unit.
func minorUnits(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimal[strings.ToUpper(currency)]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
