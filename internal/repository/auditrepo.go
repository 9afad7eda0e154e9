package repository

import (
	"context"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AuditRepository provides append-only access to the audit trail. Entries are
// never updated or deleted; writers need no coordination. Mutations performed
// by MatchRepository append their own entries transactionally — this interface
// covers standalone appends (e.g. provisioning failures) and review listings.
type AuditRepository interface {
	// Append records one action. matchID and actorID may be nil for
	// system-level events.
	Append(ctx context.Context, matchID *uuid.UUID, action string, actorID *string, detail string) (int64, error)

	// ListRecent returns up to limit entries, most recent first.
	ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
}
