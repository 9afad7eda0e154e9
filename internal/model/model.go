// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// MatchState is the lifecycle state of a match.
type MatchState string

// Lifecycle states. Transitions only ever move forward:
// open -> checkout_active -> payment_confirmed -> resolved.
const (
	StateOpen             MatchState = "open"
	StateCheckoutActive   MatchState = "checkout_active"
	StatePaymentConfirmed MatchState = "payment_confirmed"
	StateResolved         MatchState = "resolved"
)

// Outcome designates the winning slot when the broker resolves a match.
type Outcome string

const (
	OutcomeParticipantA Outcome = "participant_a"
	OutcomeParticipantB Outcome = "participant_b"
)

// ValidOutcome reports whether o belongs to the closed outcome set.
func ValidOutcome(o Outcome) bool {
	return o == OutcomeParticipantA || o == OutcomeParticipantB
}

// MatchConfig is the offer payload carried through to presentation.
// Opaque to the admission and lifecycle logic.
type MatchConfig struct {
	Mode           string `json:"mode"`
	SuggestedValue string `json:"suggested_value,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	ButtonLabel    string `json:"button_label,omitempty"`
}

// PublicationRef points at one rendered copy of the offer.
// Owned by the presentation collaborator, persisted here for later edits.
type PublicationRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Match is one wager-coordination session from publication to resolution.
type Match struct {
	ID               uuid.UUID
	GuildID          string
	BrokerID         string
	Config           MatchConfig
	State            MatchState
	Publications     []PublicationRef
	CheckoutSpaceRef string // empty until checkout is provisioned, set exactly once
	CreatedAt        time.Time
}

// Participant is a claimed slot, keyed by (MatchID, UserID).
type Participant struct {
	MatchID   uuid.UUID
	UserID    string
	Confirmed bool
	JoinedAt  time.Time
}

// ClaimResult reports the outcome of an admission attempt.
type ClaimResult struct {
	// Count is the participant count after the operation.
	Count int
	// Already is set when the user had claimed a slot before; nothing changed.
	Already bool
	// RosterComplete is set only on the claim that filled the second slot.
	// It is the trigger for checkout provisioning.
	RosterComplete bool
}

// AuditEntry is one immutable record of a state-changing action.
type AuditEntry struct {
	ID        int64
	MatchID   *uuid.UUID
	Action    string
	ActorID   *string
	Detail    string
	CreatedAt time.Time
}

// Audit action kinds.
const (
	ActionMatchPublished   = "match_published"
	ActionParticipantJoin  = "participant_joined"
	ActionParticipantLeft  = "participant_left"
	ActionCheckoutCreated  = "checkout_created"
	ActionCheckoutFailed   = "checkout_create_failed"
	ActionValueProposed    = "value_proposed"
	ActionPaymentConfirmed = "payment_confirmed"
	ActionMarkedPaid       = "marked_paid"
	ActionResolved         = "resolved"
)
