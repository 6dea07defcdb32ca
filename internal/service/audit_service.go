package service

import (
	"context"
	"log/slog"
	"time"

	"go-directory-admin/internal/model"
)

// AuditStore is the persistence contract for the audit trail, satisfied by
// repository.AuditRepository.
type AuditStore interface {
	Record(ctx context.Context, entry model.AuditEntry) error
	List(ctx context.Context, limit int, offset int) ([]model.AuditEntry, error)
	Count(ctx context.Context) (int, error)
}

// AuditService records session-protocol events. Recording failures are logged
// and swallowed: the audit trail never blocks authentication.
type AuditService struct {
	repo AuditStore
}

func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Record(ctx context.Context, userID string, action string, success bool, detail string, clientIP string) {
	entry := model.AuditEntry{
		UserID:    userID,
		Action:    action,
		Success:   success,
		Detail:    detail,
		ClientIP:  clientIP,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Record(ctx, entry); err != nil {
		slog.Error("failed to record audit entry", "action", action, "user", userID, "error", err)
	}
}

func (s *AuditService) List(ctx context.Context, page int, limit int) ([]model.AuditEntry, *model.Meta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + limit - 1) / limit
	return entries, &model.Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}
