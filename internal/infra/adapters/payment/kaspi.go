package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"quickvision/internal/domain/ports/adapter"
)

var _ adapter.PaymentVerifier = (*KaspiVerifier)(nil)

// KaspiVerifier checks Kaspi callback signatures. The signature scheme is
// sha256 over the pipe-joined raw fields plus the shared secret, matching
// what the gateway computes on its side.
type KaspiVerifier struct {
	secret string
}

func NewKaspiVerifier(secret string) *KaspiVerifier {
	return &KaspiVerifier{secret: secret}
}

func (v *KaspiVerifier) Verify(paymentID, amount, status, signature string) bool {
	if v.secret == "" || signature == "" {
		return false
	}
	sum := sha256.Sum256([]byte(paymentID + "|" + amount + "|" + status + "|" + v.secret))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// PaymentQR renders the Kaspi transfer reference as a PNG QR code for the
// purchase message. Amount is in minor units.
func PaymentQR(paymentID string, amount int64, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	payload := fmt.Sprintf("kaspi://pay?ref=%s&amount=%.2f", paymentID, float64(amount)/100)
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("kaspi qr: %w", err)
	}
	return png, nil
}
