package services

import (
	"log/slog"

	"eventtix/models"

	pubnub "github.com/pubnub/go"
)

// Notifier publishes best-effort user notifications. Delivery is the
// messaging provider's problem; publish failures are logged and swallowed.
type Notifier interface {
	SendPurchaseConfirmation(userID string, payment *models.Payment, tickets []*models.Ticket)
	SendTransferNotice(recipient models.RecipientInfo, ticket *models.Ticket)
	SendClaimCode(recipient models.RecipientInfo, ticket *models.Ticket, code string)
}

type PubNubNotifier struct {
	pubnub *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pubnub: pn}
}

func (n *PubNubNotifier) SendPurchaseConfirmation(userID string, payment *models.Payment, tickets []*models.Ticket) {
	refs := make([]string, 0, len(tickets))
	for _, t := range tickets {
		refs = append(refs, t.Reference)
	}

	n.publish("user-"+userID, map[string]any{
		"type":        "purchase_confirmation",
		"reference":   payment.Reference,
		"event_id":    payment.EventID,
		"ticket_refs": refs,
		"amount":      payment.Amount.String(),
		"currency":    payment.Currency,
	})
}

func (n *PubNubNotifier) SendTransferNotice(recipient models.RecipientInfo, ticket *models.Ticket) {
	n.publish(recipientChannel(recipient), map[string]any{
		"type":        "ticket_transfer",
		"ticket_ref":  ticket.Reference,
		"event_id":    ticket.EventID,
		"ticket_type": ticket.TicketType,
	})
}

func (n *PubNubNotifier) SendClaimCode(recipient models.RecipientInfo, ticket *models.Ticket, code string) {
	n.publish(recipientChannel(recipient), map[string]any{
		"type":       "ticket_claim_code",
		"ticket_ref": ticket.Reference,
		"claim_code": code,
	})
}

func (n *PubNubNotifier) publish(channel string, message map[string]any) {
	_, pubStatus, err := n.pubnub.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("pubnub publish failed", "channel", channel, "error", err)
		return
	}
	if pubStatus.Error != nil {
		slog.Error("pubnub publish rejected", "channel", channel, "status", pubStatus.StatusCode, "error", pubStatus.Error)
	}
}

func recipientChannel(recipient models.RecipientInfo) string {
	return "recipient-" + string(recipient.Type) + "-" + recipient.Value
}
