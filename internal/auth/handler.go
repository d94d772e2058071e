package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bhawanibytes/ur-ec-sub001/internal/otp"
	"github.com/bhawanibytes/ur-ec-sub001/internal/session"
)

// Handler exposes the OTP login flow: send-otp, verify-otp, logout.
type Handler struct {
	otps   *otp.Service
	issuer *session.Issuer
}

// NewHandler wires the state machine and the session issuer.
func NewHandler(otps *otp.Service, issuer *session.Issuer) *Handler {
	return &Handler{otps: otps, issuer: issuer}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

// SendOTP issues a fresh challenge and returns its correlation id. The code
// itself travels only through the delivery channel.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	correlationID, err := h.otps.RequestChallenge(c.UserContext(), req.Phone)
	if err != nil {
		if errors.Is(err, otp.ErrInvalidPhoneFormat) {
			return flowError(c, http.StatusBadRequest, err)
		}
		return fiber.NewError(http.StatusInternalServerError, "could not issue challenge")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":        true,
		"correlation_id": correlationID,
	})
}

type verifyOTPRequest struct {
	CorrelationID string `json:"correlation_id"`
	Code          string `json:"code"`
}

// VerifyOTP consumes the challenge and, on success, mints the session
// credential and sets the session cookie.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ch, err := h.otps.VerifyChallenge(c.UserContext(), req.CorrelationID, req.Code)
	if err != nil {
		return verifyError(c, err)
	}

	credential, cookie, err := h.issuer.Issue(ch.Phone, "")
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not issue session")
	}
	c.Cookie(cookie)

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"token":   credential,
	})
}

// Logout instructs the client to drop its session cookie. Idempotent; there is
// no server-side session to revoke.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.issuer.ClearCookie())
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// verifyError maps challenge failures to responses with enough detail to
// drive the client's messaging. These are the user's own login attempts, so
// unlike credential failures they are not collapsed.
func verifyError(c *fiber.Ctx, err error) error {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, otp.ErrChallengeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, otp.ErrChallengeExpired),
		errors.Is(err, otp.ErrChallengeConsumed),
		errors.Is(err, otp.ErrChallengeExhausted):
		status = http.StatusGone
	case errors.Is(err, otp.ErrCodeMismatch):
		status = http.StatusUnauthorized
	}
	return flowError(c, status, err)
}

func flowError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
