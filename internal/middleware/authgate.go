package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bhawanibytes/ur-ec-sub001/internal/policy"
	"github.com/bhawanibytes/ur-ec-sub001/internal/token"
)

// Keys under which verified claims are attached to the request scope.
const (
	LocalsPhone = "auth_phone"
	LocalsName  = "auth_name"
)

// AuthGate classifies every inbound request and verifies the session
// credential when the trust level requires one. Rejected requests are
// short-circuited here; nothing reaches the upstream forwarder.
func AuthGate(classifier *policy.Classifier, codec *token.Codec, cookieName string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		level := classifier.Classify(c.Path(), c.Method())
		if level == policy.Public || (level == policy.ReadOnlyPublic && c.Method() == fiber.MethodGet) {
			return c.Next()
		}

		claims, err := codec.Verify(extractCredential(c, cookieName))
		if err != nil {
			// The specific kind stays in the log; the response body is
			// the same for all of them.
			logger.Warn("credential rejected",
				"method", c.Method(),
				"path", c.Path(),
				"trust_level", level.String(),
				"reason", err,
			)
			if accountPageNavigation(c) {
				return c.Redirect("/", fiber.StatusFound)
			}
			return unauthorized(c)
		}

		c.Locals(LocalsPhone, claims.Phone)
		c.Locals(LocalsName, claims.Name)
		return c.Next()
	}
}

// extractCredential prefers the Authorization bearer header and falls back to
// the session cookie.
func extractCredential(c *fiber.Ctx, cookieName string) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("Bearer "):])
	}
	return c.Cookies(cookieName)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   "unauthorized",
		"code":    "UNAUTHORIZED",
	})
}

// accountPageNavigation reports whether the request is a browser navigating to
// the account area; those get a redirect home instead of a JSON 401.
func accountPageNavigation(c *fiber.Ctx) bool {
	if c.Method() != fiber.MethodGet || !strings.HasPrefix(c.Path(), "/my-account") {
		return false
	}
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}
