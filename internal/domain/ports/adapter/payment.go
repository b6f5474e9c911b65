package adapter

// PaymentVerifier checks a gateway callback signature against the shared
// secret. Implementations must use a constant-time comparison. All arguments
// are the raw string forms from the callback payload.
type PaymentVerifier interface {
	Verify(paymentID, amount, status, signature string) bool
}
