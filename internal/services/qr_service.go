package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"eventtix/internal/status"
	"eventtix/models"
)

// QRService produces and verifies the signed payloads embedded in ticket
// QR codes. Rendering the code image is a front-end concern; the payload
// is what gets scanned back at the door.
type QRService struct {
	signingKey []byte
	validity   time.Duration
	now        func() time.Time
}

func NewQRService(signingKey string, validity time.Duration) *QRService {
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &QRService{
		signingKey: []byte(signingKey),
		validity:   validity,
		now:        time.Now,
	}
}

type qrClaims struct {
	TicketID  string `json:"ticket_id"`
	Reference string `json:"reference"`
	IssuedAt  int64  `json:"issued_at"`
}

// Generate signs a ticket into a QR payload of the form
// base64(claims).hexhmac.
func (s *QRService) Generate(ticket *models.Ticket) (*models.QRCode, error) {
	now := s.now()
	claims, err := json.Marshal(qrClaims{
		TicketID:  ticket.ID,
		Reference: ticket.Reference,
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("qr generate: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(claims)
	return &models.QRCode{
		Data:        encoded + "." + s.sign(encoded),
		GeneratedAt: now,
	}, nil
}

// Verify checks the payload signature and age and returns the embedded
// ticket id. Any altered byte fails the signature check.
func (s *QRService) Verify(payload string) (string, error) {
	encoded, sig, found := strings.Cut(payload, ".")
	if !found {
		return "", status.ErrInvalidQR
	}
	if !hmac.Equal([]byte(s.sign(encoded)), []byte(sig)) {
		return "", status.ErrInvalidQR
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", status.ErrInvalidQR
	}
	var claims qrClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", status.ErrInvalidQR
	}
	if claims.TicketID == "" {
		return "", status.ErrInvalidQR
	}

	issued := time.Unix(claims.IssuedAt, 0)
	if s.now().Sub(issued) > s.validity {
		return "", status.ErrExpiredQR
	}
	return claims.TicketID, nil
}

func (s *QRService) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
