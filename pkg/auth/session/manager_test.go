package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/questcraft/rewards-cms/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) SessionKey(id string) string {
	return "sess:" + id
}

type stubRefresher struct {
	calls   int
	token   string
	expires time.Time
	err     error
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	s.calls++
	return s.token, s.expires, s.err
}

func newTestManager(store *mockStore, refresher Refresher, now time.Time) *Manager {
	m := &Manager{
		store:  store,
		keyer:  store,
		logg:   logger.Nop(),
		ttl:    30 * 24 * time.Hour,
		leeway: 300 * time.Second,
		now:    func() time.Time { return now },
	}
	if refresher != nil {
		m.refresher = refresher
	}
	return m
}

func TestManagerCreateGetRevoke(t *testing.T) {
	store := newMockStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(store, nil, now)
	ctx := context.Background()

	sess, err := manager.Create(ctx, Session{UserID: "u-1", Email: "a@example.com", AccessToken: "at"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated session id")
	}
	if ttl := store.ttls[store.SessionKey(sess.ID)]; ttl != 30*24*time.Hour {
		t.Fatalf("expected 30 day ttl, got %v", ttl)
	}

	got, err := manager.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "a@example.com" || !got.HasDriveAccess() {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := manager.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := manager.Get(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after revoke, got %v", err)
	}
}

func TestTouchRefreshesInsideLeeway(t *testing.T) {
	store := newMockStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{token: "fresh", expires: now.Add(time.Hour)}
	manager := newTestManager(store, refresher, now)
	ctx := context.Background()

	sess, err := manager.Create(ctx, Session{
		UserID:       "u-1",
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    now.Add(299 * time.Second),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	touched, err := manager.Touch(ctx, sess.ID)
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh attempt, got %d", refresher.calls)
	}
	if touched.AccessToken != "fresh" {
		t.Fatalf("expected refreshed token, got %q", touched.AccessToken)
	}
	stored, _ := manager.Get(ctx, sess.ID)
	if stored.AccessToken != "fresh" || !stored.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("refresh not persisted: %+v", stored)
	}
}

func TestTouchSkipsFreshToken(t *testing.T) {
	store := newMockStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{token: "fresh"}
	manager := newTestManager(store, refresher, now)

	sess, _ := manager.Create(context.Background(), Session{
		UserID:       "u-1",
		AccessToken:  "current",
		RefreshToken: "rt",
		ExpiresAt:    now.Add(301 * time.Second),
	})
	touched, err := manager.Touch(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if refresher.calls != 0 || touched.AccessToken != "current" {
		t.Fatalf("expected no refresh, calls=%d token=%q", refresher.calls, touched.AccessToken)
	}
}

func TestTouchKeepsStaleTokenOnFailure(t *testing.T) {
	store := newMockStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	refresher := &stubRefresher{err: errors.New("invalid_grant")}
	manager := newTestManager(store, refresher, now)

	sess, _ := manager.Create(context.Background(), Session{
		UserID:       "u-1",
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    now.Add(-time.Minute),
	})
	touched, err := manager.Touch(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("refresh failure must not surface, got %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", refresher.calls)
	}
	if touched.AccessToken != "stale" {
		t.Fatalf("expected stale token kept, got %q", touched.AccessToken)
	}
}

func TestTouchWithoutRefreshToken(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	refresher := &stubRefresher{token: "fresh"}
	manager := newTestManager(store, refresher, now)

	sess, _ := manager.Create(context.Background(), Session{UserID: "u-1", AccessToken: "a", ExpiresAt: now.Add(-time.Hour)})
	if _, err := manager.Touch(context.Background(), sess.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if refresher.calls != 0 {
		t.Fatalf("refresh should not run without a refresh token")
	}
}

func TestTouchUnknownSession(t *testing.T) {
	manager := newTestManager(newMockStore(), nil, time.Now())
	if _, err := manager.Touch(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
