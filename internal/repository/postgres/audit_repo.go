package postgres

import (
	"context"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AuditRepo implements AuditRepository using PostgreSQL. The table is
// append-only; concurrent writers need no coordination beyond the sequence.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Append records one action and returns the assigned sequence id.
func (r *AuditRepo) Append(ctx context.Context, matchID *uuid.UUID, action string, actorID *string, detail string) (int64, error) {
	const q = `INSERT INTO audit_log (match_id, action, actor_id, detail) VALUES ($1,$2,$3,$4) RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, matchID, action, actorID, detail).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRecent returns up to limit entries, most recent first.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	const q = `
SELECT id, match_id, action, actor_id, detail, created_at
FROM audit_log ORDER BY id DESC LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err = rows.Scan(&e.ID, &e.MatchID, &e.Action, &e.ActorID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
