package handler

import (
	"net/http"

	"go-directory-admin/internal/middleware"
	"go-directory-admin/internal/repository"
	"go-directory-admin/pkg/apierror"
)

type UserHandler struct {
	users *repository.UserRepository
}

func NewUserHandler(users *repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, nil)
}

// Me reports the verified identity and group snapshot carried by the token.
// It requires authentication but not the administrative group.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"user_id": claims.Subject,
		"groups":  claims.Groups,
	}, nil)
}
