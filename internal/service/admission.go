package service

import (
	"context"
	"errors"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// CheckoutTrigger consumes roster-completion facts. The trigger is fired after
// the claim transaction has committed and runs outside of it; delivery is at
// least once, the consumer is idempotent.
type CheckoutTrigger interface {
	TriggerCheckout(matchID uuid.UUID)
}

// AdmissionService is the atomic claim/leave operation over the two slots.
type AdmissionService interface {
	// Claim attempts to occupy a slot. The returned result distinguishes a
	// fresh acceptance from a benign duplicate.
	Claim(ctx context.Context, matchID uuid.UUID, userID string) (model.ClaimResult, error)
	// Leave gives a slot back while the match is still open.
	Leave(ctx context.Context, matchID uuid.UUID, userID string) error
}

type AdmissionServiceImpl struct {
	repo    repository.MatchRepository
	trigger CheckoutTrigger
}

// NewAdmissionService constructs AdmissionService. trigger may be nil when no
// provisioning follow-up is wanted (tests, tooling).
func NewAdmissionService(repo repository.MatchRepository, trigger CheckoutTrigger) *AdmissionServiceImpl {
	return &AdmissionServiceImpl{repo: repo, trigger: trigger}
}

// Claim delegates the atomic admission to the repository and hands the
// roster-complete fact to the checkout trigger.
func (s *AdmissionServiceImpl) Claim(ctx context.Context, matchID uuid.UUID, userID string) (model.ClaimResult, error) {
	if matchID == uuid.Nil || userID == "" {
		return model.ClaimResult{}, errors.New("validation: empty match/user id")
	}
	res, err := s.repo.Claim(ctx, matchID, userID)
	if err != nil {
		return model.ClaimResult{}, err
	}
	if res.RosterComplete && s.trigger != nil {
		s.trigger.TriggerCheckout(matchID)
	}
	return res, nil
}

// Leave removes the user's claim.
func (s *AdmissionServiceImpl) Leave(ctx context.Context, matchID uuid.UUID, userID string) error {
	if matchID == uuid.Nil || userID == "" {
		return errors.New("validation: empty match/user id")
	}
	return s.repo.Leave(ctx, matchID, userID)
}
