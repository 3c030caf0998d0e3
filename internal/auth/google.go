package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/questcraft/rewards-cms/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// CallbackPath is where Google redirects after consent.
const CallbackPath = "/api/v1/auth/google/callback"

// Scopes requested at sign-in. drive.file lets the dashboard manage the
// files it creates.
var Scopes = []string{"openid", "email", "profile", drivev3.DriveFileScope}

// Identity is the Google account behind a sign-in.
type Identity struct {
	ID            string
	Email         string
	Name          string
	Picture       string
	VerifiedEmail bool
}

// GoogleProviderOptions overrides Google endpoints, for tests.
type GoogleProviderOptions struct {
	Endpoint         *oauth2.Endpoint
	UserInfoEndpoint string
}

// GoogleProvider runs the authorization-code flow against Google and
// refreshes stored grants.
type GoogleProvider struct {
	oauth            *oauth2.Config
	userInfoEndpoint string
}

// NewGoogleProvider builds the OAuth client. The redirect URL defaults to
// publicURL + CallbackPath.
func NewGoogleProvider(cfg config.GoogleOAuthConfig, publicURL string, opts GoogleProviderOptions) (*GoogleProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("google oauth client id and secret are required")
	}
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(publicURL, "/") + CallbackPath
	}
	endpoint := google.Endpoint
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		userInfoEndpoint: opts.UserInfoEndpoint,
	}, nil
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is always issued.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.oauth.Exchange(ctx, code)
}

// UserInfo resolves the account the token belongs to.
func (p *GoogleProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	opts := []option.ClientOption{option.WithTokenSource(p.oauth.TokenSource(ctx, token))}
	if p.userInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userInfoEndpoint))
	}
	svc, err := oauth2v2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	identity := &Identity{
		ID:      info.Id,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}
	if info.VerifiedEmail != nil {
		identity.VerifiedEmail = *info.VerifiedEmail
	}
	return identity, nil
}

// Refresh makes one token-endpoint call with the refresh token. It
// satisfies session.Refresher.
func (p *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, fmt.Errorf("refresh token is required")
	}
	token, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("refresh google token: %w", err)
	}
	return token.AccessToken, token.Expiry, nil
}
