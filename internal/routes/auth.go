package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bhawanibytes/ur-ec-sub001/internal/auth"
)

// RegisterAuthRoutes wires the OTP login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/send-otp", rateLimiter, h.SendOTP)
	} else {
		group.Post("/send-otp", h.SendOTP)
	}
	group.Post("/verify-otp", h.VerifyOTP)
	group.Post("/logout", h.Logout)
}
