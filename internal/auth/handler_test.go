package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bhawanibytes/ur-ec-sub001/internal/logging"
	"github.com/bhawanibytes/ur-ec-sub001/internal/otp"
	"github.com/bhawanibytes/ur-ec-sub001/internal/session"
	"github.com/bhawanibytes/ur-ec-sub001/internal/token"
)

type captureDispatcher struct {
	mu    sync.Mutex
	codes map[string]string
}

func (d *captureDispatcher) Dispatch(_ context.Context, phone, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[phone] = code
	return nil
}

func (d *captureDispatcher) wait(t *testing.T, phone string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		code := d.codes[phone]
		d.mu.Unlock()
		if code != "" {
			return code
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no code dispatched for %s", phone)
	return ""
}

func setupAuthApp(t *testing.T) (*fiber.App, *captureDispatcher, *token.Codec) {
	t.Helper()
	dispatcher := &captureDispatcher{codes: make(map[string]string)}
	otps := otp.NewService(otp.NewMemoryStore(), dispatcher, logging.Discard(), otp.Params{})
	codec := token.NewCodec([]byte("test-secret"))
	issuer := session.NewIssuer(codec, "session_token", 30*24*time.Hour)
	handler := NewHandler(otps, issuer)

	app := fiber.New()
	group := app.Group("/api/auth")
	group.Post("/send-otp", handler.SendOTP)
	group.Post("/verify-otp", handler.VerifyOTP)
	group.Post("/logout", handler.Logout)
	return app, dispatcher, codec
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	if err := json.Unmarshal(body, into); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

func TestLoginFlow(t *testing.T) {
	app, dispatcher, codec := setupAuthApp(t)

	// A phone with a space is rejected before any challenge is issued.
	resp := postJSON(t, app, "/api/auth/send-otp", `{"phone":"9198865 89000"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed phone, got %d", resp.StatusCode)
	}

	resp = postJSON(t, app, "/api/auth/send-otp", `{"phone":"919886589000"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var sent struct {
		Success       bool   `json:"success"`
		CorrelationID string `json:"correlation_id"`
	}
	decode(t, resp, &sent)
	if !sent.Success || sent.CorrelationID == "" {
		t.Fatalf("unexpected send-otp response: %+v", sent)
	}

	code := dispatcher.wait(t, "919886589000")
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	resp = postJSON(t, app, "/api/auth/verify-otp",
		`{"correlation_id":"`+sent.CorrelationID+`","code":"`+wrong+`"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d", resp.StatusCode)
	}

	resp = postJSON(t, app, "/api/auth/verify-otp",
		`{"correlation_id":"`+sent.CorrelationID+`","code":"`+code+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for correct code, got %d", resp.StatusCode)
	}
	var verified struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	decode(t, resp, &verified)
	if !verified.Success || verified.Token == "" {
		t.Fatalf("unexpected verify-otp response: %+v", verified)
	}

	claims, err := codec.Verify(verified.Token)
	if err != nil {
		t.Fatalf("issued credential must verify: %v", err)
	}
	if claims.Phone != "919886589000" {
		t.Fatalf("credential bound to wrong phone: %q", claims.Phone)
	}

	var sessionCookie *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_token" {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil {
		t.Fatal("verify-otp must set the session cookie")
	}
	if sessionCookie.Value != verified.Token {
		t.Fatal("session cookie must carry the credential")
	}
	if !sessionCookie.HttpOnly || !sessionCookie.Secure {
		t.Fatal("session cookie must be HttpOnly and Secure")
	}

	// Consuming the same challenge again fails.
	resp = postJSON(t, app, "/api/auth/verify-otp",
		`{"correlation_id":"`+sent.CorrelationID+`","code":"`+code+`"}`)
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410 for consumed challenge, got %d", resp.StatusCode)
	}
}

func TestVerifyUnknownCorrelation(t *testing.T) {
	app, _, _ := setupAuthApp(t)

	resp := postJSON(t, app, "/api/auth/verify-otp", `{"correlation_id":"nope","code":"123456"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLogoutClearsCookieIdempotently(t *testing.T) {
	app, _, _ := setupAuthApp(t)

	for i := 0; i < 2; i++ {
		resp := postJSON(t, app, "/api/auth/logout", `{}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("logout %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		var cleared *http.Cookie
		for _, cookie := range resp.Cookies() {
			if cookie.Name == "session_token" {
				cleared = cookie
			}
		}
		if cleared == nil {
			t.Fatal("logout must set an expiring session cookie")
		}
		if cleared.Value != "" || cleared.Expires.After(time.Now()) {
			t.Fatalf("logout cookie must clear the session: %+v", cleared)
		}
	}
}
