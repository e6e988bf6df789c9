package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventtix/internal/services/gateway"
	"eventtix/internal/status"
	"eventtix/models"
)

type tierCommit struct {
	eventID string
	tier    string
	qty     int
}

type fakeEventStore struct {
	mu        sync.Mutex
	event     *models.Event
	commits   []tierCommit
	commitErr error
}

func (f *fakeEventStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.event == nil || f.event.ID != id {
		return nil, fmt.Errorf("%w: %s", status.ErrEventNotFound, id)
	}
	clone := *f.event
	clone.Tiers = append([]models.TicketTier(nil), f.event.Tiers...)
	return &clone, nil
}

func (f *fakeEventStore) CommitTierSale(ctx context.Context, eventID, tierName string, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return false, f.commitErr
	}
	f.commits = append(f.commits, tierCommit{eventID: eventID, tier: tierName, qty: qty})
	for i := range f.event.Tiers {
		t := &f.event.Tiers[i]
		if t.Name == tierName {
			if t.Sold+qty > t.Quantity {
				return false, status.ErrCapacityExceeded
			}
			t.Sold += qty
			return f.event.SoldOut(), nil
		}
	}
	return false, fmt.Errorf("%w: %q", status.ErrTierNotFound, tierName)
}

type fakePaymentStore struct {
	mu        sync.Mutex
	payments  map[string]*models.Payment
	createErr error
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]*models.Payment)}
}

func (f *fakePaymentStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = "pay_" + p.Reference
	clone := *p
	f.payments[p.Reference] = &clone
	return nil
}

func (f *fakePaymentStore) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrPaymentNotFound, reference)
	}
	clone := *p
	return &clone, nil
}

func (f *fakePaymentStore) AttachSession(ctx context.Context, reference, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrPaymentNotFound, reference)
	}
	p.SessionID = sessionID
	return nil
}

func (f *fakePaymentStore) MarkPaymentStatus(ctx context.Context, reference string, st models.PaymentStatus, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[reference]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrPaymentNotFound, reference)
	}
	if !p.CanTransitionTo(st) {
		return fmt.Errorf("payment %s: transition %s -> %s is not allowed", reference, p.Status, st)
	}
	p.Status = st
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	return nil
}

func (f *fakePaymentStore) TouchStatusCheck(ctx context.Context, reference string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[reference]; ok {
		p.LastStatusCheck = &at
	}
	return nil
}

func (f *fakePaymentStore) DeletePayment(ctx context.Context, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.payments, reference)
	return nil
}

type fakeTicketStore struct {
	mu        sync.Mutex
	tickets   map[string]*models.Ticket
	nextID    int
	createErr error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]*models.Ticket)}
}

func (f *fakeTicketStore) CreateTickets(ctx context.Context, tickets []*models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, t := range tickets {
		f.nextID++
		t.ID = fmt.Sprintf("tkt_%d", f.nextID)
		clone := *t
		f.tickets[t.ID] = &clone
	}
	return nil
}

func (f *fakeTicketStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	clone := *t
	clone.TransferHistory = append([]models.TransferRecord(nil), t.TransferHistory...)
	return &clone, nil
}

func (f *fakeTicketStore) ListByPaymentReference(ctx context.Context, paymentReference string) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Ticket
	for i := 1; i <= f.nextID; i++ {
		id := fmt.Sprintf("tkt_%d", i)
		if t, ok := f.tickets[id]; ok && t.PaymentReference == paymentReference {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeTicketStore) MarkStatusByPaymentReference(ctx context.Context, paymentReference string, st models.TicketStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.PaymentReference == paymentReference {
			t.Status = st
		}
	}
	return nil
}

func (f *fakeTicketStore) SetTicketQR(ctx context.Context, ticketID string, qr *models.QRCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketID)
	}
	t.QRCode = qr
	return nil
}

func (f *fakeTicketStore) DeleteByPaymentReference(ctx context.Context, paymentReference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tickets {
		if t.PaymentReference == paymentReference {
			delete(f.tickets, id)
		}
	}
	return nil
}

func (f *fakeTicketStore) UpdateOwnership(ctx context.Context, t *models.Ticket, previousOwner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tickets[t.ID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrTicketNotFound, t.ID)
	}
	if stored.OwnerID != previousOwner {
		return fmt.Errorf("%w: ticket %s changed owner concurrently", status.ErrNotOwner, t.ID)
	}
	clone := *t
	clone.TransferHistory = append([]models.TransferRecord(nil), t.TransferHistory...)
	f.tickets[t.ID] = &clone
	return nil
}

func (f *fakeTicketStore) MarkScanned(ctx context.Context, ticketID, adminID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketID)
	}
	if t.Scanned {
		return status.ErrAlreadyScanned
	}
	t.Scanned = true
	t.ScannedAt = &at
	t.ScannedBy = adminID
	return nil
}

func (f *fakeTicketStore) put(t *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if t.ID == "" {
		t.ID = fmt.Sprintf("tkt_%d", f.nextID)
	}
	f.tickets[t.ID] = t
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: not found", id)
	}
	return u, nil
}

func (f *fakeUserStore) FindByContact(ctx context.Context, typ models.RecipientType, value string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		switch typ {
		case models.RecipientEmail:
			if u.Email == value {
				return u, nil
			}
		case models.RecipientMobile:
			if u.Mobile == value {
				return u, nil
			}
		}
	}
	return nil, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	provider gateway.Provider

	session    *gateway.Session
	createErr  error
	createdReq *gateway.SessionRequest

	statusResult *gateway.StatusResult
	statusErr    error

	refunded  []string
	refundErr error
}

func (f *fakeGateway) GetProvider() gateway.Provider {
	return f.provider
}

func (f *fakeGateway) CreateSession(ctx context.Context, req *gateway.SessionRequest) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakeGateway) CheckStatus(ctx context.Context, sessionID string) (*gateway.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusResult, nil
}

func (f *fakeGateway) Refund(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunded = append(f.refunded, sessionID)
	return f.refundErr
}

func (f *fakeGateway) SetTransactionChannel(ch chan *status.Transaction) {}

func (f *fakeGateway) Close(ctx context.Context) error { return nil }

func (f *fakeGateway) refundedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunded...)
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations int
	transfers     int
	claimCodes    []string
}

func (f *fakeNotifier) SendPurchaseConfirmation(userID string, payment *models.Payment, tickets []*models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations++
}

func (f *fakeNotifier) SendTransferNotice(recipient models.RecipientInfo, ticket *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers++
}

func (f *fakeNotifier) SendClaimCode(recipient models.RecipientInfo, ticket *models.Ticket, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCodes = append(f.claimCodes, code)
}

func (f *fakeNotifier) lastClaimCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.claimCodes) == 0 {
		return ""
	}
	return f.claimCodes[len(f.claimCodes)-1]
}
