package controllers

import (
	"net/http"
	"strings"

	"github.com/questcraft/rewards-cms/api/middleware"
	"github.com/questcraft/rewards-cms/api/responses"
	"github.com/questcraft/rewards-cms/internal/auth"
	pkgerrors "github.com/questcraft/rewards-cms/pkg/errors"
	"github.com/questcraft/rewards-cms/pkg/logger"
)

// AuthGoogleLogin returns the consent URL, or redirects to it when
// ?redirect=1 is passed.
func AuthGoogleLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authConfigured(svc, w, r, logg) {
			return
		}
		res, err := svc.Login(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if redirect := strings.TrimSpace(r.URL.Query().Get("redirect")); redirect == "1" || redirect == "true" {
			http.Redirect(w, r, res.URL, http.StatusFound)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func AuthGoogleCallback(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authConfigured(svc, w, r, logg) {
			return
		}
		query := r.URL.Query()
		if reason := query.Get("error"); reason != "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Google sign-in was cancelled").
				WithDetails(map[string]any{"reason": reason}))
			return
		}
		res, err := svc.Callback(r.Context(), query.Get("code"), query.Get("state"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authConfigured(svc, w, r, logg) {
			return
		}
		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authConfigured(svc, w, r, logg) {
			return
		}
		me, err := svc.Me(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, me)
	}
}

func authConfigured(svc auth.Service, w http.ResponseWriter, r *http.Request, logg *logger.Logger) bool {
	if svc != nil {
		return true
	}
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "Google sign-in is not configured"))
	return false
}
