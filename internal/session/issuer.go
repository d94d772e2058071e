package session

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bhawanibytes/ur-ec-sub001/internal/token"
)

// Issuer mints session credentials once an OTP challenge has been consumed,
// and describes the transport cookie carrying them.
type Issuer struct {
	codec      *token.Codec
	cookieName string
	ttl        time.Duration
}

// NewIssuer builds an issuer around the token codec.
func NewIssuer(codec *token.Codec, cookieName string, ttl time.Duration) *Issuer {
	return &Issuer{codec: codec, cookieName: cookieName, ttl: ttl}
}

// Issue signs a credential for the phone identity and returns it together with
// the matching cookie descriptor. Bearer-header clients use the raw
// credential, browsers get the cookie.
func (i *Issuer) Issue(phone, displayName string) (string, *fiber.Cookie, error) {
	credential, err := i.codec.Issue(phone, displayName, i.ttl)
	if err != nil {
		return "", nil, err
	}
	return credential, i.cookie(credential, time.Now().Add(i.ttl)), nil
}

// ClearCookie returns an expired cookie instructing the client to drop its
// session. The gateway keeps no server-side session state, so this is the
// whole of logout.
func (i *Issuer) ClearCookie() *fiber.Cookie {
	cleared := i.cookie("", time.Now().Add(-time.Hour))
	cleared.MaxAge = -1
	return cleared
}

// CookieName reports the configured session cookie name.
func (i *Issuer) CookieName() string {
	return i.cookieName
}

func (i *Issuer) cookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     i.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
