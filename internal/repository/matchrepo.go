// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/gofrs/uuid/v5"
)

// MatchRepository owns match and participant rows. Every mutating method runs
// as a single transaction that locks the target match row first, so claim,
// leave and lifecycle operations against the same match are linearized while
// different matches never block each other. Each mutation appends its audit
// entry inside the same transaction.
type MatchRepository interface {
	// Create inserts a new open match together with its publication audit entry.
	Create(ctx context.Context, m *model.Match) error

	// Get loads a match by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Match, error)

	// Participants lists a match's participants in join order.
	Participants(ctx context.Context, id uuid.UUID) ([]model.Participant, error)

	// SetPublications persists the (channel, message) pairs where the offer
	// was rendered.
	SetPublications(ctx context.Context, id uuid.UUID, refs []model.PublicationRef) error

	// Claim admits a user into one of the two slots, or reports an idempotent
	// duplicate. The capacity check and the insert are one atomic unit.
	Claim(ctx context.Context, matchID uuid.UUID, userID string) (model.ClaimResult, error)

	// Leave removes a participant while the match is still open.
	Leave(ctx context.Context, matchID uuid.UUID, userID string) error

	// ActivateCheckout records the provisioned space and moves the match to
	// checkout_active, re-validating roster and state under the row lock.
	// When a space is already recorded it returns that ref with created=false.
	ActivateCheckout(ctx context.Context, matchID uuid.UUID, spaceRef string) (ref string, created bool, err error)

	// ConfirmParticipant sets the participant's confirmed flag. Idempotent.
	ConfirmParticipant(ctx context.Context, matchID uuid.UUID, userID string) error

	// ProposeValue records a broker value proposal without changing state.
	ProposeValue(ctx context.Context, matchID uuid.UUID, brokerID, value string) error

	// MarkPaid transitions checkout_active -> payment_confirmed.
	MarkPaid(ctx context.Context, matchID uuid.UUID, brokerID string) error

	// Resolve records the outcome and moves the match to its terminal state.
	Resolve(ctx context.Context, matchID uuid.UUID, brokerID string, outcome model.Outcome) error

	// OpenRosterComplete lists open matches that already hold two participants
	// but no checkout space. Used by the reconciler to recover missed triggers.
	OpenRosterComplete(ctx context.Context) ([]uuid.UUID, error)
}
