package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
)

// Upstream failure kinds. All of them are per-request and retryable by the
// caller; none of them is an authentication failure.
var (
	ErrUpstreamTimeout     = errors.New("upstream timed out")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamBadResponse = errors.New("upstream returned an unparseable body")
)

// Forwarder relays authenticated calls to the upstream resource service,
// carrying credentials outbound and session cookies back.
type Forwarder struct {
	client  *resty.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewForwarder builds a forwarder for the given upstream base URL with a
// bounded per-call timeout.
func NewForwarder(baseURL string, timeout time.Duration, logger *slog.Logger) *Forwarder {
	client := resty.New().SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	return &Forwarder{client: client, timeout: timeout, logger: logger}
}

// OutboundHeaders returns the credential-bearing request headers to copy
// verbatim to the upstream call. Absent headers are never fabricated.
func OutboundHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string, 2)
	if v := c.Get(fiber.HeaderAuthorization); v != "" {
		headers[fiber.HeaderAuthorization] = v
	}
	if v := c.Get(fiber.HeaderCookie); v != "" {
		headers[fiber.HeaderCookie] = v
	}
	return headers
}

// InboundCookies returns every Set-Cookie header of the upstream response, in
// order.
func InboundCookies(resp *resty.Response) []string {
	if resp == nil || resp.RawResponse == nil {
		return nil
	}
	return resp.Header().Values(fiber.HeaderSetCookie)
}

// Forward relays the request to the upstream service and the upstream's
// response back to the caller. Cancellation of the inbound request propagates
// to the upstream call.
func (f *Forwarder) Forward(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), f.timeout)
	defer cancel()

	req := f.client.R().SetContext(ctx).SetHeaders(OutboundHeaders(c))
	if ct := c.Get(fiber.HeaderContentType); ct != "" {
		req.SetHeader(fiber.HeaderContentType, ct)
	}
	if rid := c.Get("X-Request-ID"); rid != "" {
		req.SetHeader("X-Request-ID", rid)
	}
	if body := c.Body(); len(body) > 0 {
		req.SetBody(body)
	}

	resp, err := req.Execute(c.Method(), c.OriginalURL())
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			f.logger.Warn("upstream timeout", "method", c.Method(), "path", c.Path())
			return upstreamError(c, fiber.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", ErrUpstreamTimeout)
		case errors.Is(err, context.Canceled):
			// Caller went away; there is nobody left to answer.
			return nil
		default:
			f.logger.Error("upstream unreachable", "method", c.Method(), "path", c.Path(), "error", err)
			return upstreamError(c, fiber.StatusBadGateway, "UPSTREAM_UNREACHABLE", ErrUpstreamUnreachable)
		}
	}

	// Session continuity: every upstream cookie survives the hop.
	for _, cookie := range InboundCookies(resp) {
		c.Response().Header.Add(fiber.HeaderSetCookie, cookie)
	}

	body := resp.Body()
	contentType := resp.Header().Get(fiber.HeaderContentType)
	if strings.Contains(contentType, fiber.MIMEApplicationJSON) && len(body) > 0 && !json.Valid(body) {
		f.logger.Error("upstream body is not valid json",
			"method", c.Method(), "path", c.Path(), "status", resp.StatusCode())
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   ErrUpstreamBadResponse.Error(),
			"code":    "UPSTREAM_BAD_RESPONSE",
			"raw":     string(body),
		})
	}

	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	return c.Status(resp.StatusCode()).Send(body)
}

func upstreamError(c *fiber.Ctx, status int, code string, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}
