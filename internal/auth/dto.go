package auth

import (
	"time"

	"github.com/questcraft/rewards-cms/pkg/auth/session"
)

// LoginResponse carries the Google consent URL.
type LoginResponse struct {
	URL   string `json:"url"`
	State string `json:"-"`
}

// CallbackResponse is returned after a successful sign-in.
type CallbackResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Me        `json:"user"`
}

// Me describes the signed-in user and their Drive grant.
type Me struct {
	UserID              string    `json:"userId"`
	Email               string    `json:"email"`
	Name                string    `json:"name,omitempty"`
	Picture             string    `json:"picture,omitempty"`
	HasDriveAccess      bool      `json:"hasDriveAccess"`
	DriveTokenExpiresAt time.Time `json:"driveTokenExpiresAt"`
}

func toMe(sess *session.Session) Me {
	return Me{
		UserID:              sess.UserID,
		Email:               sess.Email,
		Name:                sess.Name,
		Picture:             sess.Picture,
		HasDriveAccess:      sess.HasDriveAccess(),
		DriveTokenExpiresAt: sess.ExpiresAt,
	}
}
