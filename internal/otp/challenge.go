package otp

import (
	"errors"
	"time"
)

// Terminal and transient failure kinds of the verification flow. These are
// user-actionable and surfaced to the caller with detail, unlike credential
// errors which collapse to a generic 401 upstream of here.
var (
	ErrInvalidPhoneFormat = errors.New("phone must contain 8 to 15 digits only")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge expired, request a new code")
	ErrChallengeConsumed  = errors.New("challenge already consumed")
	ErrChallengeExhausted = errors.New("too many incorrect codes, request a new code")
	ErrCodeMismatch       = errors.New("code incorrect")
)

// Challenge records one OTP verification attempt, keyed by an opaque
// correlation id. The code itself is stored only as a bcrypt hash.
type Challenge struct {
	CorrelationID string    `json:"correlation_id"`
	Phone         string    `json:"phone"`
	CodeHash      []byte    `json:"code_hash"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Consumed      bool      `json:"consumed"`
	Superseded    bool      `json:"superseded"`
	Attempts      int       `json:"attempts"`
}
