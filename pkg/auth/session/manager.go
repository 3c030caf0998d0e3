package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/questcraft/rewards-cms/pkg/config"
	"github.com/questcraft/rewards-cms/pkg/logger"
	redisclient "github.com/questcraft/rewards-cms/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record behind a dashboard session token.
// It carries the Google grant used for Drive calls on the user's behalf.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Picture      string    `json:"picture,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasDriveAccess reports whether the session holds an access token at all.
// A stale token still counts; Drive will reject it.
func (s *Session) HasDriveAccess() bool {
	return s != nil && s.AccessToken != ""
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)
}

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Manager stores sessions in redis and keeps their Google access tokens
// fresh.
type Manager struct {
	store     sessionStore
	keyer     sessionKeyer
	refresher Refresher
	logg      *logger.Logger
	ttl       time.Duration
	leeway    time.Duration
	now       func() time.Time
}

// AccessSessionChecker exposes the read surface needed by middleware.
type AccessSessionChecker interface {
	Touch(ctx context.Context, sessionID string) (*Session, error)
}

// NewManager constructs a session manager backed by Redis. refresher may be
// nil, in which case tokens are never refreshed.
func NewManager(client *redisclient.Client, jwtCfg config.JWTConfig, oauthCfg config.GoogleOAuthConfig, refresher Refresher, logg *logger.Logger) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	leeway := oauthCfg.RefreshLeeway
	if leeway <= 0 {
		leeway = 300 * time.Second
	}
	return &Manager{
		store:     client,
		keyer:     client,
		refresher: refresher,
		logg:      logg,
		ttl:       jwtCfg.SessionTTL(),
		leeway:    leeway,
		now:       time.Now,
	}, nil
}

// Create assigns an id to sess and persists it for the session TTL.
func (m *Manager) Create(ctx context.Context, sess Session) (*Session, error) {
	if strings.TrimSpace(sess.UserID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	sess.ID = NewSessionID()
	sess.CreatedAt = m.now().UTC()
	if err := m.save(ctx, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Get loads a session by id.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

// Touch loads the session and, when its access token expires within the
// refresh leeway, makes exactly one refresh attempt. A failed refresh keeps
// the stale token and is only logged.
func (m *Manager) Touch(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !m.needsRefresh(sess) {
		return sess, nil
	}

	ctx = m.logg.WithSessionID(ctx, sess.ID)
	accessToken, expiresAt, err := m.refresher.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "session.refresh_failed")
		return sess, nil
	}

	sess.AccessToken = accessToken
	sess.ExpiresAt = expiresAt.UTC()
	if err := m.save(ctx, sess); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "session.refresh_persist_failed")
	}
	return sess, nil
}

func (m *Manager) needsRefresh(sess *Session) bool {
	if m.refresher == nil || sess.RefreshToken == "" {
		return false
	}
	return !m.now().Before(sess.ExpiresAt.Add(-m.leeway))
}

// Revoke deletes the session record.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}

// TTL is the lifetime of a freshly created session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	ttl := m.ttl
	if !sess.CreatedAt.IsZero() {
		ttl = sess.CreatedAt.Add(m.ttl).Sub(m.now())
	}
	if ttl <= 0 {
		return ErrSessionNotFound
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(sess.ID), string(payload), ttl)
}

// NewSessionID produces the identifier used as the JWT jti and redis key.
func NewSessionID() string {
	return uuid.NewString()
}
