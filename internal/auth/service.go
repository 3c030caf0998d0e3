package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgAuth "github.com/questcraft/rewards-cms/pkg/auth"
	"github.com/questcraft/rewards-cms/pkg/auth/session"
	"github.com/questcraft/rewards-cms/pkg/config"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	stateTTL = 10 * time.Minute

	// defaultTokenLifetime applies when Google omits expires_in.
	defaultTokenLifetime = time.Hour
)

type identityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

type stateStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, error)
	OAuthStateKey(state string) string
}

type sessionManager interface {
	Create(ctx context.Context, sess session.Session) (*session.Session, error)
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context) (*LoginResponse, error)
	Callback(ctx context.Context, code, state string) (*CallbackResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, sessionID string) (*Me, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Provider       identityProvider
	States         stateStore
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	OAuthConfig    config.GoogleOAuthConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	provider identityProvider
	states   stateStore
	sessions sessionManager
	jwtCfg   config.JWTConfig
	oauthCfg config.GoogleOAuthConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the Google sign-in service.
func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.States == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	svc := &service{
		provider: params.Provider,
		states:   params.States,
		sessions: params.SessionManager,
		jwtCfg:   params.JWTConfig,
		oauthCfg: params.OAuthConfig,
		logg:     params.Logger,
		now:      params.Now,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Login(ctx context.Context) (*LoginResponse, error) {
	state := uuid.NewString()
	if err := s.states.Set(ctx, s.states.OAuthStateKey(state), "1", stateTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to start sign-in")
	}
	return &LoginResponse{URL: s.provider.AuthCodeURL(state), State: state}, nil
}

func (s *service) Callback(ctx context.Context, code, state string) (*CallbackResponse, error) {
	code = strings.TrimSpace(code)
	state = strings.TrimSpace(state)
	if code == "" || state == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code and state are required")
	}

	if _, err := s.states.Take(ctx, s.states.OAuthStateKey(state)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign-in request expired, please try again")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to verify sign-in state")
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Google sign-in failed")
	}
	identity, err := s.provider.UserInfo(ctx, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load Google profile")
	}
	if identity.ID == "" || identity.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Google account has no email")
	}
	if !identity.VerifiedEmail {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Google account email is not verified")
	}
	if !s.oauthCfg.EmailAllowed(identity.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "this account is not allowed to sign in")
	}

	now := s.now().UTC()
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultTokenLifetime)
	}
	sess, err := s.sessions.Create(ctx, session.Session{
		UserID:       identity.ID,
		Email:        identity.Email,
		Name:         identity.Name,
		Picture:      identity.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store session")
	}

	signed, err := pkgAuth.MintSessionToken(s.jwtCfg, now, pkgAuth.SessionTokenPayload{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Email:     sess.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to issue session token")
	}

	ctx = s.logg.WithUserID(s.logg.WithSessionID(ctx, sess.ID), sess.UserID)
	s.logg.Info(ctx, "auth.signed_in")

	return &CallbackResponse{
		Token:     signed,
		ExpiresAt: now.Add(s.jwtCfg.SessionTTL()),
		User:      toMe(sess),
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to sign out")
	}
	return nil
}

func (s *service) Me(ctx context.Context, sessionID string) (*Me, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load session")
	}
	me := toMe(sess)
	return &me, nil
}
