package service

import (
	"context"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/repository"
)

// AuditService exposes the audit trail for human review.
type AuditService interface {
	// Recent returns the newest entries, most recent first.
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

type AuditServiceImpl struct {
	repo     repository.AuditRepository
	maxLimit int
}

// NewAuditService constructs AuditService with a listing cap.
func NewAuditService(repo repository.AuditRepository, maxLimit int) *AuditServiceImpl {
	if maxLimit <= 0 {
		maxLimit = 200
	}
	return &AuditServiceImpl{repo: repo, maxLimit: maxLimit}
}

// Recent clamps the limit and delegates to the repository.
func (s *AuditServiceImpl) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return s.repo.ListRecent(ctx, limit)
}
