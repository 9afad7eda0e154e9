package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bakaio/matchbroker/internal/errs"
	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/platform"
	"github.com/bakaio/matchbroker/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// CheckoutResult reports the provisioning outcome.
type CheckoutResult struct {
	SpaceRef string
	// Created is false when the space already existed (idempotent re-run).
	Created bool
}

// CheckoutService provisions the private checkout space once the roster is
// complete. Ensure is idempotent: the trigger behind it is at-least-once.
type CheckoutService interface {
	CheckoutTrigger
	Ensure(ctx context.Context, matchID uuid.UUID) (CheckoutResult, error)
}

type CheckoutServiceImpl struct {
	repo        repository.MatchRepository
	audit       repository.AuditRepository
	platform    platform.Platform
	log         *zap.Logger
	callTimeout time.Duration
}

// NewCheckoutService constructs CheckoutService. callTimeout bounds each
// external platform call.
func NewCheckoutService(repo repository.MatchRepository, audit repository.AuditRepository, pf platform.Platform, log *zap.Logger, callTimeout time.Duration) *CheckoutServiceImpl {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &CheckoutServiceImpl{repo: repo, audit: audit, platform: pf, log: log, callTimeout: callTimeout}
}

// Ensure provisions the checkout space for a roster-complete match.
//
// The external creation call happens before any store commit: on failure the
// match stays open and a later Ensure re-derives the access set from the
// unchanged participant rows. Only after the space exists is the ref recorded
// and the state advanced, in one transaction.
func (s *CheckoutServiceImpl) Ensure(ctx context.Context, matchID uuid.UUID) (CheckoutResult, error) {
	m, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if m.CheckoutSpaceRef != "" {
		return CheckoutResult{SpaceRef: m.CheckoutSpaceRef}, nil
	}
	if m.State != model.StateOpen {
		return CheckoutResult{}, fmt.Errorf("state %s: %w", m.State, errs.ErrNotReady)
	}
	parts, err := s.repo.Participants(ctx, matchID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(parts) != 2 {
		return CheckoutResult{}, fmt.Errorf("participant count %d: %w", len(parts), errs.ErrNotReady)
	}

	members := []string{m.BrokerID, parts[0].UserID, parts[1].UserID}
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	ref, err := s.platform.CreateIsolatedSpace(cctx, matchID, members)
	cancel()
	if err != nil {
		s.log.Error("create isolated space",
			zap.String("match", matchID.String()),
			zap.Error(err),
		)
		if _, aerr := s.audit.Append(ctx, &matchID, model.ActionCheckoutFailed, nil, err.Error()); aerr != nil {
			s.log.Error("audit checkout failure", zap.Error(aerr))
		}
		return CheckoutResult{}, err
	}

	stored, created, err := s.repo.ActivateCheckout(ctx, matchID, ref)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !created {
		// Lost a provisioning race after the external call already succeeded.
		// The stored ref wins; the extra space stays empty.
		s.log.Warn("checkout already recorded, orphaned space",
			zap.String("match", matchID.String()),
			zap.String("space", stored),
			zap.String("orphan", ref),
		)
		return CheckoutResult{SpaceRef: stored}, nil
	}

	nctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	welcome := "Private checkout created. Only the two participants and the broker have access here. The broker can now propose a value."
	if err := s.platform.NotifySpace(nctx, ref, welcome); err != nil {
		s.log.Warn("checkout welcome message", zap.String("match", matchID.String()), zap.Error(err))
	}
	return CheckoutResult{SpaceRef: ref, Created: true}, nil
}

// TriggerCheckout runs Ensure in the background with bounded retries on
// external failures. Callers fire it right after a claim commit; anything it
// cannot recover is picked up later by the reconciler sweep.
func (s *CheckoutServiceImpl) TriggerCheckout(matchID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		b := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			_, err := s.Ensure(ctx, matchID)
			if errors.Is(err, errs.ErrExternalUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		})
		if err != nil {
			s.log.Error("checkout provisioning failed, leaving match for reconciler",
				zap.String("match", matchID.String()),
				zap.Error(err),
			)
		}
	}()
}
