package wave

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"eventtix/internal/status"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type subscribe struct {
	pn       *pubnub.PubNub
	lis      *pubnub.Listener
	channels []string
	ch       chan *status.Transaction
	cancel   context.CancelFunc
}

// payload is the relay's wire format for a completed Wave transaction.
type payload struct {
	SessionID       string          `json:"checkout_session_id"`
	ClientReference string          `json:"client_reference"`
	TransactionID   string          `json:"transaction_id"`
	PaymentStatus   string          `json:"payment_status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	WhenCompleted   string          `json:"when_completed"`
}

func (w *Wave) newSubscription(ctx context.Context, cfg *Config) (*subscribe, error) {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PNUserID))
	pnCfg.SubscribeKey = cfg.PNSubscribeKey
	pnCfg.SecretKey = cfg.PNSecretKey

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscribe{
		pn:       pubnub.NewPubNub(pnCfg),
		lis:      pubnub.NewListener(),
		channels: []string{cfg.PNChannel},
		cancel:   cancel,
	}

	sub.pn.AddListener(sub.lis)
	sub.pn.Subscribe().Channels(sub.channels).Execute()

	go sub.processSubscription(subCtx)

	return sub, nil
}

func (s *subscribe) processSubscription(ctx context.Context) {
	for {
		select {
		case st := <-s.lis.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("wave relay: connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("wave relay: reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("wave relay: disconnected from pubnub")

			case pubnub.PNAccessDeniedCategory:
				log.Println("wave relay: access denied")

			case pubnub.PNTimeoutCategory:
				log.Println("wave relay: timeout")

			default:
				log.Println("wave relay: status category", st.Category)
			}

		case message := <-s.lis.Message:
			raw, ok := message.Message.(string)
			if !ok {
				// some relays publish objects instead of strings
				byt, err := json.Marshal(message.Message)
				if err != nil {
					log.Println("wave relay:", err)
					continue
				}
				raw = string(byt)
			}

			var p payload
			if err := json.NewDecoder(strings.NewReader(raw)).Decode(&p); err != nil {
				log.Println("wave relay:", err)
				continue
			}

			if s.ch == nil {
				continue
			}
			s.ch <- p.toDomain()

		case <-ctx.Done():
			log.Println("wave relay: close subscribe")
			return
		}
	}
}

func (p *payload) toDomain() *status.Transaction {
	ts, err := time.Parse(time.RFC3339, p.WhenCompleted)
	if err != nil {
		ts = time.Now()
	}

	return &status.Transaction{
		Reference:     p.ClientReference,
		SessionID:     p.SessionID,
		TransactionID: p.TransactionID,
		Status:        p.PaymentStatus,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Timestamp:     ts,
	}
}

func (s *subscribe) close() {
	s.pn.Unsubscribe().Channels(s.channels).Execute()
	s.cancel()
}
