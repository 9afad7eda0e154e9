package service

import (
	"context"
	"errors"
	"time"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/platform"
	"github.com/bakaio/matchbroker/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// LifecycleService applies the legal state transitions after checkout:
// propose value, confirm payment, mark paid, resolve. Role and state checks
// happen inside the repository transaction; this layer validates inputs and
// posts the follow-up notifications into the checkout space.
type LifecycleService interface {
	ProposeValue(ctx context.Context, matchID uuid.UUID, actorID, value string) error
	ConfirmPayment(ctx context.Context, matchID uuid.UUID, actorID string) error
	MarkPaid(ctx context.Context, matchID uuid.UUID, actorID string) error
	Resolve(ctx context.Context, matchID uuid.UUID, actorID string, outcome model.Outcome) error
}

type LifecycleServiceImpl struct {
	repo        repository.MatchRepository
	platform    platform.Platform
	log         *zap.Logger
	callTimeout time.Duration
}

// NewLifecycleService constructs LifecycleService.
func NewLifecycleService(repo repository.MatchRepository, pf platform.Platform, log *zap.Logger, callTimeout time.Duration) *LifecycleServiceImpl {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &LifecycleServiceImpl{repo: repo, platform: pf, log: log, callTimeout: callTimeout}
}

// ProposeValue records the broker's proposal and announces it in the checkout
// space. Re-proposal before resolution is allowed.
func (s *LifecycleServiceImpl) ProposeValue(ctx context.Context, matchID uuid.UUID, actorID, value string) error {
	if matchID == uuid.Nil || actorID == "" {
		return errors.New("validation: empty match/actor id")
	}
	if value == "" {
		return errors.New("validation: empty value")
	}
	if err := s.repo.ProposeValue(ctx, matchID, actorID, value); err != nil {
		return err
	}
	s.notify(ctx, matchID, "Broker proposed the value: R$ "+value+". Participants, confirm once the payment is sent.")
	return nil
}

// ConfirmPayment marks the acting participant's confirmation. Idempotent.
func (s *LifecycleServiceImpl) ConfirmPayment(ctx context.Context, matchID uuid.UUID, actorID string) error {
	if matchID == uuid.Nil || actorID == "" {
		return errors.New("validation: empty match/actor id")
	}
	return s.repo.ConfirmParticipant(ctx, matchID, actorID)
}

// MarkPaid advances the match to payment_confirmed and announces it.
func (s *LifecycleServiceImpl) MarkPaid(ctx context.Context, matchID uuid.UUID, actorID string) error {
	if matchID == uuid.Nil || actorID == "" {
		return errors.New("validation: empty match/actor id")
	}
	if err := s.repo.MarkPaid(ctx, matchID, actorID); err != nil {
		return err
	}
	s.notify(ctx, matchID, "Broker marked the wager as paid. You may proceed.")
	return nil
}

// Resolve records the outcome and closes the match.
func (s *LifecycleServiceImpl) Resolve(ctx context.Context, matchID uuid.UUID, actorID string, outcome model.Outcome) error {
	if matchID == uuid.Nil || actorID == "" {
		return errors.New("validation: empty match/actor id")
	}
	if !model.ValidOutcome(outcome) {
		return errors.New("validation: unknown outcome")
	}
	return s.repo.Resolve(ctx, matchID, actorID, outcome)
}

// notify posts into the checkout space, best-effort: the state change has
// already committed and a lost message must not fail the operation.
func (s *LifecycleServiceImpl) notify(ctx context.Context, matchID uuid.UUID, message string) {
	m, err := s.repo.Get(ctx, matchID)
	if err != nil || m.CheckoutSpaceRef == "" {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.platform.NotifySpace(nctx, m.CheckoutSpaceRef, message); err != nil {
		s.log.Warn("checkout notification", zap.String("match", matchID.String()), zap.Error(err))
	}
}
