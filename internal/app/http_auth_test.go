package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func exchange(t *testing.T, server *HTTPServer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/session/exchange", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(exchangeTokenHeader, "exchange-secret")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestSessionExchangeSetsCookie(t *testing.T) {
	server := NewHTTPServer(newTestEnv().svc, "*")

	rr := exchange(t, server, `{"userId":"user-1","email":"owner@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	if payload["role"] != "editor" {
		t.Fatalf("expected editor role, got %v", payload["role"])
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != token || !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly session cookie carrying the token, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	payload = map[string]any{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse session response: %v", err)
	}
	if payload["authenticated"] != true || payload["userId"] != "user-1" {
		t.Fatalf("unexpected session payload: %v", payload)
	}
}

func TestSessionExchangeRequiresSecret(t *testing.T) {
	server := NewHTTPServer(newTestEnv().svc, "*")

	req := httptest.NewRequest(http.MethodPost, "/api/session/exchange", bytes.NewBufferString(`{"userId":"user-1"}`))
	req.Header.Set(exchangeTokenHeader, "wrong")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestSessionExchangeRejectsInvalidBody(t *testing.T) {
	server := NewHTTPServer(newTestEnv().svc, "*")

	rr := exchange(t, server, `{"userId":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "INVALID_BODY" {
		t.Fatalf("expected INVALID_BODY, got %v", payload["code"])
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(ownedJob())
	server := NewHTTPServer(env.svc, "*")

	session, err := env.svc.ExchangeSession(context.Background(), "user-1", "owner@example.com", "editor")
	if err != nil {
		t.Fatalf("ExchangeSession() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/session/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/results/job_1", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected with 401, got %d", rr.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	server := NewHTTPServer(newTestEnv(ownedJob()).svc, "*")

	for _, path := range []string{"/api/jobs", "/results/job_1", "/api/search?q=x"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rr.Code)
		}
	}
}
