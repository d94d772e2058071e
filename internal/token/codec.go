package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure kinds. Callers at the API boundary collapse all four
// into one generic 401; logs keep the specific kind.
var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrSignatureMismatch   = errors.New("credential signature mismatch")
	ErrCredentialExpired   = errors.New("credential expired")
)

// Claims is the payload carried by a session credential.
type Claims struct {
	jwt.RegisteredClaims
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// Codec signs and verifies session credentials using HS256. It holds no
// per-request state and is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a codec around the process-wide signing secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// Issue signs a credential for the given phone identity with an absolute
// expiry of now+ttl.
func (c *Codec) Issue(phone, displayName string, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Phone: phone,
		Name:  displayName,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify recomputes the signature and checks expiry. It is a pure function of
// (credential, current time, signing key) and returns exactly one of the four
// failure kinds on error.
func (c *Codec) Verify(credential string) (Claims, error) {
	if credential == "" {
		return Claims{}, ErrMissingCredential
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	parsed, err := parser.ParseWithClaims(credential, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrCredentialExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrSignatureMismatch
		default:
			return Claims{}, ErrMalformedCredential
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformedCredential
	}
	return *claims, nil
}
