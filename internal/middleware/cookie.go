package middleware

import (
	"net/http"
	"strings"

	"go-directory-admin/internal/model"
)

const (
	// AccessTokenCookie is the browser-side carrier of the access token.
	AccessTokenCookie = "token"
	// RefreshTokenCookie holds "<opaque-token>+<username>".
	RefreshTokenCookie = "refresh_token"
)

// CookieToHeader promotes the access-token cookie into the standard bearer
// authorization header before routing. Requests without the cookie pass
// through untouched; the guards downstream decide whether that matters.
// A cookie value that cannot be encoded as a header value never reaches a
// route handler.
func CookieToHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, present := rawCookieValue(r, AccessTokenCookie); present {
			value := "Bearer " + raw
			if !validHeaderValue(value) {
				writeAPIError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid token cookie")
				return
			}
			r.Header.Set("Authorization", value)
		}

		next.ServeHTTP(w, r)
	})
}

// rawCookieValue reads the named cookie straight from the Cookie headers.
// net/http's parser silently drops cookies containing invalid bytes, which
// would demote a malformed token cookie to a missing-credential 401 further
// down the chain instead of the 400 this stage owes it.
func rawCookieValue(r *http.Request, name string) (string, bool) {
	for _, line := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok {
				continue
			}
			if k == name {
				return strings.Trim(v, `"`), true
			}
		}
	}
	return "", false
}

// validHeaderValue reports whether s is a legal HTTP header field value:
// visible ASCII plus space and horizontal tab, no control bytes.
func validHeaderValue(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

func writeAPIError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
