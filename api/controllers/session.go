package controllers

import (
	"net/http"

	"github.com/questcraft/rewards-cms/api/middleware"
	"github.com/questcraft/rewards-cms/pkg/storage/drive"
)

// driveCredentials runs Drive calls as the signed-in user. An empty token
// lets the gateway fall back to the service account.
func driveCredentials(r *http.Request) drive.Credentials {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		return drive.Credentials{}
	}
	return drive.Credentials{AccessToken: sess.AccessToken}
}
