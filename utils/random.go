package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// NewPaymentReference builds the human-readable reference that correlates
// a payment with its tickets and the gateway session. The format is
// load-bearing: PAY-<epochMillis>-<rand0-999>.
func NewPaymentReference() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the clock so references stay unique enough.
		n = big.NewInt(time.Now().UnixNano() % 1000)
	}
	return fmt.Sprintf("PAY-%d-%d", time.Now().UnixMilli(), n.Int64())
}

// TicketReference derives the reference of the i-th ticket of a payment.
// Re-deriving with the same payment reference yields the same value, so a
// retried initiate produces no new identities.
func TicketReference(paymentReference string, i int) string {
	return fmt.Sprintf("%s-TKT-%d", paymentReference, i)
}

// GenerateClaimCode returns a numeric code a transfer recipient presents
// to claim a ticket sent to an unregistered contact.
func GenerateClaimCode(length int) (string, error) {
	const charset = "0123456789"

	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code), nil
}
