package handler

import (
	"net/http"

	"go-directory-admin/internal/repository"
)

type GroupHandler struct {
	groups *repository.GroupRepository
}

func NewGroupHandler(groups *repository.GroupRepository) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, groups, nil)
}
