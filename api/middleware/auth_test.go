package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/questcraft/rewards-cms/pkg/auth"
	"github.com/questcraft/rewards-cms/pkg/auth/session"
	"github.com/questcraft/rewards-cms/pkg/config"
)

type stubSessionChecker struct {
	sess    *session.Session
	err     error
	touched []string
}

func (s *stubSessionChecker) Touch(ctx context.Context, sessionID string) (*session.Session, error) {
	s.touched = append(s.touched, sessionID)
	if s.err != nil {
		return nil, s.err
	}
	return s.sess, nil
}

var testJWTConfig = config.JWTConfig{Secret: "secret", Issuer: "issuer", SessionTTLDays: 1}

func mintTestToken(t *testing.T, cfg config.JWTConfig, sessionID, userID string) string {
	t.Helper()
	token, err := auth.MintSessionToken(cfg, time.Now(), auth.SessionTokenPayload{
		SessionID: sessionID,
		UserID:    userID,
		Email:     "owner@example.com",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig, &stubSessionChecker{}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	checker := &stubSessionChecker{}
	handler := Auth(testJWTConfig, checker, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if len(checker.touched) != 0 {
		t.Fatalf("session should not be touched for an invalid token")
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	checker := &stubSessionChecker{err: session.ErrSessionNotFound}
	handler := Auth(testJWTConfig, checker, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, testJWTConfig, "sess-1", "user-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionStoreFailure(t *testing.T) {
	checker := &stubSessionChecker{err: errors.New("redis down")}
	handler := Auth(testJWTConfig, checker, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, testJWTConfig, "sess-1", "user-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	checker := &stubSessionChecker{sess: &session.Session{ID: "sess-1", UserID: "user-1", AccessToken: "at"}}

	var captured struct {
		user    string
		session string
		token   string
	}
	handler := Auth(testJWTConfig, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.session = SessionIDFromContext(r.Context())
		if sess := SessionFromContext(r.Context()); sess != nil {
			captured.token = sess.AccessToken
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, testJWTConfig, "sess-1", "user-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != "user-1" || captured.session != "sess-1" || captured.token != "at" {
		t.Fatalf("unexpected context values %+v", captured)
	}
	if len(checker.touched) != 1 || checker.touched[0] != "sess-1" {
		t.Fatalf("expected one touch of sess-1, got %v", checker.touched)
	}
}
