package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"eventtix/internal/services/gateway"
	"eventtix/internal/status"
	"eventtix/models"
	"eventtix/monitoring"
	"eventtix/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const verifyLockTTL = 30 * time.Second

// PaymentService is the purchase orchestrator. Initiate reserves a
// payment+ticket bundle and opens a gateway checkout session; Verify asks
// the gateway for the terminal outcome and commits it locally exactly
// once.
type PaymentService struct {
	events   EventStore
	payments PaymentStore
	tickets  TicketStore
	users    UserStore

	gateways  *gateway.Registry
	converter *CurrencyService
	qr        *QRService
	notifier  Notifier

	redis   *redis.Client
	breaker *utils.CircuitBreaker

	callbackURL string
}

func NewPaymentService(
	events EventStore,
	payments PaymentStore,
	tickets TicketStore,
	users UserStore,
	gateways *gateway.Registry,
	converter *CurrencyService,
	qr *QRService,
	notifier Notifier,
	redisClient *redis.Client,
	callbackURL string,
) *PaymentService {
	return &PaymentService{
		events:      events,
		payments:    payments,
		tickets:     tickets,
		users:       users,
		gateways:    gateways,
		converter:   converter,
		qr:          qr,
		notifier:    notifier,
		redis:       redisClient,
		breaker:     utils.NewCircuitBreaker("payment-gateway"),
		callbackURL: callbackURL,
	}
}

type InitiatePaymentRequest struct {
	EventID    string                 `json:"event_id"`
	TicketType string                 `json:"ticket_type"`
	Quantity   int                    `json:"quantity"`
	Recipients []models.RecipientInfo `json:"recipients,omitempty"`
	Gateway    gateway.Provider       `json:"payment_gateway"`
	Currency   string                 `json:"currency"`
	UserID     string                 `json:"-"`
}

type InitiatePaymentResult struct {
	PaymentID  string `json:"id"`
	Reference  string `json:"reference"`
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
	Remaining  int    `json:"remaining"`
}

// Initiate validates availability, creates the pending payment and ticket
// records and opens the gateway checkout session. The availability check
// here is advisory; the authoritative capacity decision happens at verify
// time.
func (s *PaymentService) Initiate(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", status.ErrInsufficientInventory)
	}

	event, err := s.events.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.SoldOut() {
		return nil, status.ErrEventSoldOut
	}

	tier, ok := event.Tier(req.TicketType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", status.ErrTierNotFound, req.TicketType)
	}
	remaining := tier.Remaining()
	if remaining == 0 {
		return nil, fmt.Errorf("%w: tier %q is sold out", status.ErrInsufficientInventory, tier.Name)
	}
	if req.Quantity > remaining {
		return nil, fmt.Errorf("%w: %d requested, %d remaining", status.ErrInsufficientInventory, req.Quantity, remaining)
	}

	gw, err := s.gateways.Get(req.Gateway)
	if err != nil {
		return nil, err
	}

	displayCurrency := req.Currency
	if displayCurrency == "" {
		displayCurrency = tier.Currency
	}
	amount := tier.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))

	chargeAmount, chargeCurrency, err := s.normalizeForGateway(ctx, gw, amount, displayCurrency)
	if err != nil {
		return nil, err
	}

	recipients, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}

	reference := utils.NewPaymentReference()
	now := time.Now()

	payment := &models.Payment{
		UserID:     req.UserID,
		EventID:    event.ID,
		Amount:     amount,
		Currency:   displayCurrency,
		Reference:  reference,
		Status:     models.PaymentPending,
		Gateway:    string(req.Gateway),
		TicketType: tier.Name,
		Quantity:   req.Quantity,
		CreatedAt:  now,
	}

	tickets := make([]*models.Ticket, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		ticketRef := utils.TicketReference(reference, i)
		payment.TicketRefs = append(payment.TicketRefs, ticketRef)
		tickets = append(tickets, &models.Ticket{
			EventID:          event.ID,
			OwnerID:          req.UserID,
			Recipient:        recipients[i],
			TicketType:       tier.Name,
			Price:            tier.Price,
			Reference:        ticketRef,
			PaymentReference: reference,
			Status:           models.TicketPending,
			CreatedAt:        now,
		})
	}

	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}
	if err := s.tickets.CreateTickets(ctx, tickets); err != nil {
		s.compensate(ctx, reference)
		return nil, fmt.Errorf("create ticket records: %w", err)
	}

	sessionReq := &gateway.SessionRequest{
		Amount:      chargeAmount,
		Currency:    chargeCurrency,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Metadata: map[string]string{
			"event_id":    event.ID,
			"event_title": event.Title,
			"ticket_type": tier.Name,
			"quantity":    strconv.Itoa(req.Quantity),
			"ticket_refs": strings.Join(payment.TicketRefs, ","),
		},
	}

	var session *gateway.Session
	started := time.Now()
	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		var gerr error
		session, gerr = gw.CreateSession(ctx, sessionReq)
		return gerr
	})
	monitoring.ObserveGateway(string(req.Gateway), "create_session", time.Since(started))
	if err != nil {
		s.compensate(ctx, reference)
		monitoring.RecordPaymentInitiated(string(req.Gateway), "error")
		return nil, fmt.Errorf("%w: %v", status.ErrGatewaySession, err)
	}

	if err := s.payments.AttachSession(ctx, reference, session.ID); err != nil {
		s.compensate(ctx, reference)
		return nil, fmt.Errorf("attach gateway session: %w", err)
	}

	monitoring.RecordPaymentInitiated(string(req.Gateway), "ok")
	slog.Info("payment initiated",
		"reference", reference,
		"event", event.ID,
		"tier", tier.Name,
		"quantity", req.Quantity,
		"gateway", req.Gateway)

	return &InitiatePaymentResult{
		PaymentID:  payment.ID,
		Reference:  reference,
		SessionID:  session.ID,
		PaymentURL: session.RedirectURL,
		Remaining:  remaining - req.Quantity,
	}, nil
}

// resolveRecipients pads the recipient list to one entry per ticket,
// falling back to the purchaser's own contact.
func (s *PaymentService) resolveRecipients(ctx context.Context, req *InitiatePaymentRequest) ([]models.RecipientInfo, error) {
	if len(req.Recipients) > req.Quantity {
		return nil, fmt.Errorf("more recipients (%d) than tickets (%d)", len(req.Recipients), req.Quantity)
	}

	recipients := make([]models.RecipientInfo, req.Quantity)
	copy(recipients, req.Recipients)

	if len(req.Recipients) < req.Quantity {
		buyer, err := s.users.GetUser(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve purchaser contact: %w", err)
		}
		fallback := buyer.Contact()
		for i := len(req.Recipients); i < req.Quantity; i++ {
			recipients[i] = fallback
		}
	}
	return recipients, nil
}

// normalizeForGateway converts the display amount into a currency the
// selected gateway can settle. Gateways that accept any currency charge
// the display currency unchanged.
func (s *PaymentService) normalizeForGateway(ctx context.Context, gw gateway.PaymentGateway, amount decimal.Decimal, currency string) (decimal.Decimal, string, error) {
	target := currency
	if fixed, ok := gw.(interface{ SettlementCurrency() string }); ok {
		target = fixed.SettlementCurrency()
	}
	if target == "" || target == currency {
		return amount, currency, nil
	}

	converted, err := s.converter.Convert(ctx, amount, currency, target)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return converted.Amount, target, nil
}

// compensate deletes the payment and ticket records created by an
// initiate attempt that could not complete, so no orphaned pending
// records are left waiting for a confirmation that will never come.
func (s *PaymentService) compensate(ctx context.Context, reference string) {
	if err := s.tickets.DeleteByPaymentReference(ctx, reference); err != nil {
		slog.Error("compensation: deleting tickets failed", "reference", reference, "error", err)
	}
	if err := s.payments.DeletePayment(ctx, reference); err != nil {
		slog.Error("compensation: deleting payment failed", "reference", reference, "error", err)
	}
}

type VerifyResult struct {
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// Verify asks the gateway for the session outcome and commits it exactly
// once. Re-verifying an already settled payment short-circuits without
// touching inventory or QR codes; a pending gateway result changes
// nothing and is safe to retry.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	payment, err := s.payments.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if result, done := s.settledResult(payment); done {
		return result, resultErr(payment)
	}

	// Serialize concurrent verifies for the same reference. The loser
	// is told to retry; the stored status is authoritative next time.
	lockKey := "verify:lock:" + reference
	locked, err := s.redis.SetNX(ctx, lockKey, "1", verifyLockTTL).Result()
	if err == nil && !locked {
		return nil, fmt.Errorf("%w: %s", status.ErrVerifyInProgress, reference)
	}
	if err != nil {
		slog.Warn("verify lock unavailable, proceeding unlocked", "reference", reference, "error", err)
	} else {
		defer s.redis.Del(ctx, lockKey)
	}

	gw, err := s.gateways.Get(gateway.Provider(payment.Gateway))
	if err != nil {
		return nil, err
	}

	var result *gateway.StatusResult
	started := time.Now()
	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		var gerr error
		result, gerr = gw.CheckStatus(ctx, payment.SessionID)
		return gerr
	})
	monitoring.ObserveGateway(payment.Gateway, "check_status", time.Since(started))
	if err != nil {
		// a gateway we cannot reach cannot confirm money moved
		s.markFailed(ctx, payment)
		monitoring.RecordVerification(payment.Gateway, "gateway_error")
		return nil, fmt.Errorf("%w: %v", status.ErrGatewaySession, err)
	}

	switch result.Outcome {
	case gateway.OutcomePending:
		if terr := s.payments.TouchStatusCheck(ctx, reference, time.Now()); terr != nil {
			slog.Warn("touching last status check failed", "reference", reference, "error", terr)
		}
		monitoring.RecordVerification(payment.Gateway, "pending")
		return &VerifyResult{
			Message: "payment still processing",
			Status:  string(models.PaymentPending),
			Payment: payment,
		}, nil

	case gateway.OutcomeFailed:
		s.markFailed(ctx, payment)
		monitoring.RecordVerification(payment.Gateway, "failed")
		return nil, status.ErrPaymentFailed
	}

	return s.commitSuccess(ctx, gw, payment, result)
}

// commitSuccess applies the one-time success transition: payment, then
// every linked ticket, then QR side effects, then the authoritative
// inventory increment. The increment is conditional; a verification that
// would oversell the tier fails closed.
func (s *PaymentService) commitSuccess(ctx context.Context, gw gateway.PaymentGateway, payment *models.Payment, result *gateway.StatusResult) (*VerifyResult, error) {
	reference := payment.Reference

	if err := s.payments.MarkPaymentStatus(ctx, reference, models.PaymentSuccess, result.TransactionID); err != nil {
		return nil, fmt.Errorf("mark payment success: %w", err)
	}
	if err := s.tickets.MarkStatusByPaymentReference(ctx, reference, models.TicketSuccess); err != nil {
		s.markFailed(ctx, payment)
		return nil, fmt.Errorf("mark tickets success: %w", err)
	}

	tickets, err := s.tickets.ListByPaymentReference(ctx, reference)
	if err != nil {
		slog.Error("listing tickets for qr generation failed", "reference", reference, "error", err)
	}
	for _, t := range tickets {
		code, qerr := s.qr.Generate(t)
		if qerr != nil {
			slog.Error("qr generation failed", "ticket", t.Reference, "error", qerr)
			continue
		}
		if qerr := s.tickets.SetTicketQR(ctx, t.ID, code); qerr != nil {
			slog.Error("storing qr failed", "ticket", t.Reference, "error", qerr)
		}
	}

	soldOut, err := s.events.CommitTierSale(ctx, payment.EventID, payment.TicketType, payment.Quantity)
	if err != nil {
		s.markFailed(ctx, payment)
		if errors.Is(err, status.ErrCapacityExceeded) {
			// money moved but the tier is full: refund where the
			// provider supports it, fail closed either way
			if rerr := gw.Refund(ctx, payment.SessionID); rerr != nil {
				slog.Error("refund after capacity rollback failed", "reference", reference, "error", rerr)
			}
			monitoring.RecordVerification(payment.Gateway, "capacity_exceeded")
			return nil, status.ErrCapacityExceeded
		}
		monitoring.RecordVerification(payment.Gateway, "error")
		return nil, fmt.Errorf("commit tier sale: %w", err)
	}

	updated, err := s.payments.GetPaymentByReference(ctx, reference)
	if err != nil {
		updated = payment
	}

	monitoring.RecordVerification(payment.Gateway, "success")
	monitoring.RecordTicketsSold(payment.EventID, payment.TicketType, payment.Quantity)
	slog.Info("payment verified",
		"reference", reference,
		"gateway", payment.Gateway,
		"tickets", payment.Quantity,
		"event_sold_out", soldOut)

	go s.notifier.SendPurchaseConfirmation(payment.UserID, updated, tickets)

	return &VerifyResult{
		Message: "payment verified",
		Status:  string(models.PaymentSuccess),
		Payment: updated,
	}, nil
}

// markFailed moves the payment and its tickets to failed. Inventory was
// never pre-decremented, so there is nothing to free.
func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment) {
	if err := s.payments.MarkPaymentStatus(ctx, payment.Reference, models.PaymentFailed, ""); err != nil {
		slog.Error("marking payment failed errored", "reference", payment.Reference, "error", err)
	}
	if err := s.tickets.MarkStatusByPaymentReference(ctx, payment.Reference, models.TicketFailed); err != nil {
		slog.Error("marking tickets failed errored", "reference", payment.Reference, "error", err)
	}
}

// settledResult maps an already terminal payment to the stored outcome.
func (s *PaymentService) settledResult(payment *models.Payment) (*VerifyResult, bool) {
	switch payment.Status {
	case models.PaymentSuccess, models.PaymentRefunded:
		return &VerifyResult{
			Message: "payment already verified",
			Status:  string(payment.Status),
			Payment: payment,
		}, true
	case models.PaymentFailed:
		return &VerifyResult{
			Message: "payment failed",
			Status:  string(models.PaymentFailed),
			Payment: payment,
		}, true
	}
	return nil, false
}

func resultErr(payment *models.Payment) error {
	if payment.Status == models.PaymentFailed {
		return status.ErrPaymentFailed
	}
	return nil
}

// GetPayment returns the stored payment for a reference.
func (s *PaymentService) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	return s.payments.GetPaymentByReference(ctx, reference)
}
