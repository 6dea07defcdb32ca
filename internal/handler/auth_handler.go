package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go-directory-admin/internal/middleware"
	"go-directory-admin/internal/model"
	"go-directory-admin/internal/service"
	"go-directory-admin/pkg/apierror"
)

// AuthHandler exposes the session protocol: authorize (login), refresh and
// logout. Successful authorize and refresh answer with the raw access token
// in the body and the matching cookies set.
type AuthHandler struct {
	service *service.AuthService
	audit   *service.AuditService
}

func NewAuthHandler(service *service.AuthService, audit *service.AuditService) *AuthHandler {
	return &AuthHandler{service: service, audit: audit}
}

func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.BindRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	result, err := h.service.Authorize(r.Context(), payload.Name, payload.Password)
	if err != nil {
		h.audit.Record(r.Context(), payload.Name, model.AuditActionLogin, false, err.Error(), clientIP(r))
		writeError(w, err)
		return
	}
	h.audit.Record(r.Context(), payload.Name, model.AuditActionLogin, true, "", clientIP(r))

	setSessionCookie(w, middleware.AccessTokenCookie, result.AccessToken, "/api", result.AccessMaxAge)
	setSessionCookie(w, middleware.RefreshTokenCookie, result.RefreshCookie, "/auth", result.RefreshMaxAge)
	writeToken(w, result.AccessToken)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookieValue, err := refreshCookieValue(r)
	if err != nil {
		writeError(w, err)
		return
	}

	access, err := h.service.Refresh(r.Context(), cookieValue)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, name, parseErr := service.ParseRefreshCookie(cookieValue); parseErr == nil {
		h.audit.Record(r.Context(), name, model.AuditActionRefresh, true, "", clientIP(r))
	}

	setSessionCookie(w, middleware.AccessTokenCookie, access, "/api", h.service.AccessTTL())
	writeToken(w, access)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookieValue, err := refreshCookieValue(r)
	if err != nil {
		writeError(w, err)
		return
	}

	name, err := h.service.Logout(r.Context(), cookieValue)
	if err != nil {
		writeError(w, err)
		return
	}
	h.audit.Record(r.Context(), name, model.AuditActionLogout, true, "", clientIP(r))

	clearSessionCookie(w, middleware.AccessTokenCookie, "/api")
	clearSessionCookie(w, middleware.RefreshTokenCookie, "/auth")
	w.WriteHeader(http.StatusOK)
}

func refreshCookieValue(r *http.Request) (string, error) {
	cookie, err := r.Cookie(middleware.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", model.ErrMissingRefreshToken
	}
	return cookie.Value, nil
}

func writeToken(w http.ResponseWriter, access string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(access))
}

func setSessionCookie(w http.ResponseWriter, name string, value string, path string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, name string, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
