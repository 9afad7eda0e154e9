package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_Append(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuditRepo(db)

	ctx := context.Background()
	matchID := uuid.Must(uuid.NewV4())
	actor := "broker-1"

	mock.ExpectQuery(`INSERT INTO audit_log \(match_id, action, actor_id, detail\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id`).
		WithArgs(&matchID, "value_proposed", &actor, "value=50").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := r.Append(ctx, &matchID, "value_proposed", &actor, "value=50")
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

func TestAuditRepo_ListRecent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAuditRepo(db)

	ctx := context.Background()
	matchID := uuid.Must(uuid.NewV4())
	actor := "user-1"
	now := time.Now()

	mock.ExpectQuery(`SELECT id, match_id, action, actor_id, detail, created_at`).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "match_id", "action", "actor_id", "detail", "created_at"}).
			AddRow(int64(9), &matchID, "participant_joined", &actor, "count=1", now).
			AddRow(int64(8), (*uuid.UUID)(nil), "match_published", (*string)(nil), "", now))

	entries, err := r.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(9), entries[0].ID)
	require.Equal(t, "participant_joined", entries[0].Action)
	require.NotNil(t, entries[0].ActorID)
	require.Nil(t, entries[1].MatchID)
	require.Nil(t, entries[1].ActorID)
}
