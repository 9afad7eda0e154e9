package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bakaio/matchbroker/internal/errs"
	"github.com/bakaio/matchbroker/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// MatchRepo implements MatchRepository using PostgreSQL.
//
// Every mutating method opens one transaction and locks the match row with
// SELECT ... FOR UPDATE before touching participants or state. The row lock is
// the serialization point: two claims against the same match cannot interleave
// between the capacity check and the insert, while matches with different ids
// proceed independently. The audit entry is written inside the same
// transaction, so state and history commit together or not at all.
type MatchRepo struct{ db *DB }

// NewMatchRepo constructs a match repository.
func NewMatchRepo(db *DB) *MatchRepo { return &MatchRepo{db: db} }

const lockState = `SELECT state FROM matches WHERE id=$1 FOR UPDATE`
const lockBrokerState = `SELECT broker_id, state FROM matches WHERE id=$1 FOR UPDATE`

// appendAudit writes one audit row within the caller's transaction.
// An empty actorID is stored as NULL.
func appendAudit(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, action, actorID, detail string) error {
	const q = `INSERT INTO audit_log (match_id, action, actor_id, detail) VALUES ($1,$2,NULLIF($3,''),$4)`
	_, err := tx.Exec(ctx, q, matchID, action, actorID, detail)
	return err
}

// Create inserts a new open match and its publication audit entry.
func (r *MatchRepo) Create(ctx context.Context, m *model.Match) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	pubs, err := json.Marshal(m.Publications)
	if err != nil {
		return err
	}
	const ins = `
INSERT INTO matches (id, guild_id, broker_id, mode, suggested_value, image_url, button_label, state, publications)
VALUES ($1,$2,$3,$4,$5,$6,$7,'open',$8)`
	if _, err = tx.Exec(ctx, ins,
		m.ID, m.GuildID, m.BrokerID,
		m.Config.Mode, m.Config.SuggestedValue, m.Config.ImageURL, m.Config.ButtonLabel,
		pubs,
	); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	return appendAudit(ctx, tx, m.ID, model.ActionMatchPublished, m.BrokerID, "mode="+m.Config.Mode)
}

// Get loads a single match by id.
func (r *MatchRepo) Get(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	const q = `
SELECT id, guild_id, broker_id, mode, suggested_value, image_url, button_label, state, publications, checkout_channel_id, created_at
FROM matches WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)

	var (
		m        model.Match
		state    string
		pubs     []byte
		checkout *string
	)
	if err := row.Scan(
		&m.ID, &m.GuildID, &m.BrokerID,
		&m.Config.Mode, &m.Config.SuggestedValue, &m.Config.ImageURL, &m.Config.ButtonLabel,
		&state, &pubs, &checkout, &m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	m.State = model.MatchState(state)
	if checkout != nil {
		m.CheckoutSpaceRef = *checkout
	}
	if len(pubs) > 0 {
		if err := json.Unmarshal(pubs, &m.Publications); err != nil {
			return nil, fmt.Errorf("decode publications: %w", err)
		}
	}
	return &m, nil
}

// Participants lists participants in join order.
func (r *MatchRepo) Participants(ctx context.Context, id uuid.UUID) ([]model.Participant, error) {
	const q = `
SELECT match_id, user_id, confirmed, joined_at
FROM participants WHERE match_id=$1 ORDER BY joined_at ASC, user_id ASC`
	rows, err := r.db.Pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err = rows.Scan(&p.MatchID, &p.UserID, &p.Confirmed, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPublications stores the rendered message refs for later edits.
func (r *MatchRepo) SetPublications(ctx context.Context, id uuid.UUID, refs []model.PublicationRef) error {
	pubs, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	const q = `UPDATE matches SET publications=$2 WHERE id=$1`
	ct, err := r.db.Pool.Exec(ctx, q, id, pubs)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Claim admits userID into a slot. The read-count-check-insert sequence runs
// under the match row lock; no concurrent claim or leave for the same match
// can observe a stale count.
func (r *MatchRepo) Claim(ctx context.Context, matchID uuid.UUID, userID string) (res model.ClaimResult, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.ClaimResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	var state string
	if err = tx.QueryRow(ctx, lockState, matchID).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ClaimResult{}, errs.ErrNotFound
		}
		return model.ClaimResult{}, err
	}
	if model.MatchState(state) != model.StateOpen {
		return model.ClaimResult{}, errs.ErrNotOpen
	}

	const counts = `SELECT COUNT(*), COUNT(*) FILTER (WHERE user_id=$2) FROM participants WHERE match_id=$1`
	var total, mine int
	if err = tx.QueryRow(ctx, counts, matchID, userID).Scan(&total, &mine); err != nil {
		return model.ClaimResult{}, err
	}
	if mine > 0 {
		return model.ClaimResult{Count: total, Already: true}, nil
	}
	if total >= 2 {
		return model.ClaimResult{}, errs.ErrFull
	}

	const ins = `INSERT INTO participants (match_id, user_id) VALUES ($1,$2)`
	if _, err = tx.Exec(ctx, ins, matchID, userID); err != nil {
		return model.ClaimResult{}, err
	}
	newCount := total + 1
	if err = appendAudit(ctx, tx, matchID, model.ActionParticipantJoin, userID, fmt.Sprintf("count=%d", newCount)); err != nil {
		return model.ClaimResult{}, err
	}
	return model.ClaimResult{Count: newCount, RosterComplete: newCount == 2}, nil
}

// Leave removes a participant; only legal while the match is open.
func (r *MatchRepo) Leave(ctx context.Context, matchID uuid.UUID, userID string) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	var state string
	if err = tx.QueryRow(ctx, lockState, matchID).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if model.MatchState(state) != model.StateOpen {
		return errs.ErrNotOpen
	}

	const del = `DELETE FROM participants WHERE match_id=$1 AND user_id=$2`
	ct, err := tx.Exec(ctx, del, matchID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotParticipant
	}
	return appendAudit(ctx, tx, matchID, model.ActionParticipantLeft, userID, "")
}

// ActivateCheckout records the provisioned space ref and transitions the match
// to checkout_active. Called only after the external space exists. Re-checks
// state, roster and the ref column under the lock, so an at-least-once trigger
// can never record two spaces for one match.
func (r *MatchRepo) ActivateCheckout(ctx context.Context, matchID uuid.UUID, spaceRef string) (ref string, created bool, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const lock = `SELECT state, checkout_channel_id FROM matches WHERE id=$1 FOR UPDATE`
	var state string
	var existing *string
	if err = tx.QueryRow(ctx, lock, matchID).Scan(&state, &existing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, errs.ErrNotFound
		}
		return "", false, err
	}
	if existing != nil {
		return *existing, false, nil
	}
	if model.MatchState(state) != model.StateOpen {
		return "", false, fmt.Errorf("state %s: %w", state, errs.ErrNotReady)
	}

	const count = `SELECT COUNT(*) FROM participants WHERE match_id=$1`
	var n int
	if err = tx.QueryRow(ctx, count, matchID).Scan(&n); err != nil {
		return "", false, err
	}
	if n != 2 {
		return "", false, fmt.Errorf("participant count %d: %w", n, errs.ErrNotReady)
	}

	const upd = `UPDATE matches SET checkout_channel_id=$2, state='checkout_active' WHERE id=$1`
	if _, err = tx.Exec(ctx, upd, matchID, spaceRef); err != nil {
		return "", false, err
	}
	if err = appendAudit(ctx, tx, matchID, model.ActionCheckoutCreated, "", "space="+spaceRef); err != nil {
		return "", false, err
	}
	return spaceRef, true, nil
}

// ConfirmParticipant marks the acting participant as having confirmed payment.
// Repeated confirmation is a no-op and appends nothing.
func (r *MatchRepo) ConfirmParticipant(ctx context.Context, matchID uuid.UUID, userID string) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	var state string
	if err = tx.QueryRow(ctx, lockState, matchID).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	switch model.MatchState(state) {
	case model.StateCheckoutActive:
	case model.StateResolved:
		return errs.ErrAlreadyResolved
	default:
		return errs.ErrIllegalState
	}

	const sel = `SELECT confirmed FROM participants WHERE match_id=$1 AND user_id=$2`
	var confirmed bool
	if err = tx.QueryRow(ctx, sel, matchID, userID).Scan(&confirmed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrForbidden
		}
		return err
	}
	if confirmed {
		return nil
	}

	const upd = `UPDATE participants SET confirmed=true WHERE match_id=$1 AND user_id=$2`
	if _, err = tx.Exec(ctx, upd, matchID, userID); err != nil {
		return err
	}
	return appendAudit(ctx, tx, matchID, model.ActionPaymentConfirmed, userID, "")
}

// ProposeValue records a value proposal by the broker. Legal before resolution,
// once checkout is active; state is unchanged so the broker may re-propose.
func (r *MatchRepo) ProposeValue(ctx context.Context, matchID uuid.UUID, brokerID, value string) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	state, err := r.lockForBroker(ctx, tx, matchID, brokerID)
	if err != nil {
		return err
	}
	switch state {
	case model.StateCheckoutActive, model.StatePaymentConfirmed:
	case model.StateResolved:
		return errs.ErrAlreadyResolved
	default:
		return errs.ErrIllegalState
	}
	return appendAudit(ctx, tx, matchID, model.ActionValueProposed, brokerID, "value="+value)
}

// MarkPaid transitions the match to payment_confirmed. Broker only.
func (r *MatchRepo) MarkPaid(ctx context.Context, matchID uuid.UUID, brokerID string) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	state, err := r.lockForBroker(ctx, tx, matchID, brokerID)
	if err != nil {
		return err
	}
	switch state {
	case model.StateCheckoutActive:
	case model.StateResolved:
		return errs.ErrAlreadyResolved
	default:
		return errs.ErrIllegalState
	}

	const upd = `UPDATE matches SET state='payment_confirmed' WHERE id=$1`
	if _, err = tx.Exec(ctx, upd, matchID); err != nil {
		return err
	}
	return appendAudit(ctx, tx, matchID, model.ActionMarkedPaid, brokerID, "")
}

// Resolve records the outcome and moves the match to its terminal state.
func (r *MatchRepo) Resolve(ctx context.Context, matchID uuid.UUID, brokerID string, outcome model.Outcome) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	state, err := r.lockForBroker(ctx, tx, matchID, brokerID)
	if err != nil {
		return err
	}
	switch state {
	case model.StateCheckoutActive, model.StatePaymentConfirmed:
	case model.StateResolved:
		return errs.ErrAlreadyResolved
	default:
		return errs.ErrIllegalState
	}

	const upd = `UPDATE matches SET state='resolved' WHERE id=$1`
	if _, err = tx.Exec(ctx, upd, matchID); err != nil {
		return err
	}
	return appendAudit(ctx, tx, matchID, model.ActionResolved, brokerID, "winner="+string(outcome))
}

// OpenRosterComplete finds open matches with a full roster and no checkout
// space yet. These are matches whose provisioning trigger was lost (crash or
// external failure); the reconciler retries them.
func (r *MatchRepo) OpenRosterComplete(ctx context.Context) ([]uuid.UUID, error) {
	const q = `
SELECT m.id
FROM matches m
JOIN participants p ON p.match_id = m.id
WHERE m.state='open' AND m.checkout_channel_id IS NULL
GROUP BY m.id
HAVING COUNT(*) = 2`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// lockForBroker locks the match row and enforces the broker role.
func (r *MatchRepo) lockForBroker(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, actorID string) (model.MatchState, error) {
	var broker, state string
	if err := tx.QueryRow(ctx, lockBrokerState, matchID).Scan(&broker, &state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	if actorID != broker {
		return "", errs.ErrForbidden
	}
	return model.MatchState(state), nil
}
