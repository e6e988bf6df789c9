package wave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventtix/internal/status"

	"github.com/shopspring/decimal"
)

type Config struct {
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	BaseURL  string `json:"base_url" mapstructure:"base_url"`
	ErrorURL string `json:"error_url" mapstructure:"error_url"`

	// SettlementCurrency is the only currency Wave settles in.
	SettlementCurrency string `json:"settlement_currency" mapstructure:"settlement_currency"`

	// Optional PubNub relay for async transaction notifications.
	PNSubscribeKey string `json:"pn_subscribe_key" mapstructure:"pn_subscribe_key"`
	PNSecretKey    string `json:"pn_secret_key" mapstructure:"pn_secret_key"`
	PNUserID       string `json:"pn_user_id" mapstructure:"pn_user_id"`
	PNChannel      string `json:"pn_channel" mapstructure:"pn_channel"`
}

// Wave is the poll-confirmed checkout client. Wave has no synchronous
// redirect confirmation: callers poll CheckSession until the provider
// reports a terminal payment status.
type Wave struct {
	settlementCurrency string

	client *Client
	sub    *subscribe
}

// New creates a Wave instance and, when PubNub keys are configured,
// starts the notification relay subscription.
func New(ctx context.Context, cfg *Config) (*Wave, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("wave: missing api key")
	}

	w := &Wave{
		settlementCurrency: cfg.SettlementCurrency,
		client:             newClient(cfg),
	}

	if cfg.PNSubscribeKey != "" {
		sub, err := w.newSubscription(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("wave: subscribe to notification relay: %w", err)
		}
		w.sub = sub
	}

	return w, nil
}

// CheckoutSession mirrors Wave's checkout session resource.
type CheckoutSession struct {
	ID              string          `json:"id"`
	LaunchURL       string          `json:"wave_launch_url"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ClientReference string          `json:"client_reference"`
	PaymentStatus   string          `json:"payment_status"` // processing, cancelled, succeeded, expired
	TransactionID   string          `json:"transaction_id"`
	WhenCompleted   string          `json:"when_completed,omitempty"`
}

type SessionForm struct {
	Amount     decimal.Decimal
	Currency   string
	Reference  string
	SuccessURL string
}

// CreateSession opens a checkout session. The payment reference rides as
// both the client reference and the idempotency key.
func (w *Wave) CreateSession(ctx context.Context, f *SessionForm) (*CheckoutSession, error) {
	return w.client.createSession(ctx, f)
}

// CheckSession polls the session status. A non-terminal status is normal
// and safe to re-query.
func (w *Wave) CheckSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	return w.client.getSession(ctx, sessionID)
}

// SettlementCurrency returns the only currency Wave settles in.
func (w *Wave) SettlementCurrency() string {
	return w.settlementCurrency
}

// SetTranChannel registers the channel notified when the relay reports a
// completed transaction.
func (w *Wave) SetTranChannel(ch chan *status.Transaction) {
	if w.sub != nil {
		w.sub.ch = ch
	}
}

// Close stops the notification relay subscription.
func (w *Wave) Close(_ context.Context) error {
	if w.sub != nil {
		w.sub.close()
	}
	return nil
}

// Client is the raw HTTP client for the Wave API.
type Client struct {
	baseURL  string
	apiKey   string
	errorURL string

	hc *http.Client
}

func newClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.wave.com"
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		errorURL: cfg.ErrorURL,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sessionRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ClientReference string `json:"client_reference"`
	SuccessURL      string `json:"success_url"`
	ErrorURL        string `json:"error_url"`
}

type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) createSession(ctx context.Context, f *SessionForm) (*CheckoutSession, error) {
	body, err := json.Marshal(sessionRequest{
		Amount:          f.Amount.String(),
		Currency:        f.Currency,
		ClientReference: f.Reference,
		SuccessURL:      f.SuccessURL,
		ErrorURL:        c.errorURL,
	})
	if err != nil {
		return nil, fmt.Errorf("createSession: json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("createSession: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", f.Reference)

	return c.do(req, "createSession")
}

func (c *Client) getSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("getSession: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, "getSession")
}

func (c *Client) do(req *http.Request, op string) (*CheckoutSession, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http.Do: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var reply errorReply
		if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return nil, fmt.Errorf("%s: http.StatusCode: %d", op, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s: %s: %s", op, reply.Code, reply.Message)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%s: json.Decode: %w", op, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%s: empty session id in reply", op)
	}
	return &session, nil
}
