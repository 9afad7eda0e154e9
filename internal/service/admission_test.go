package service

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/bakaio/matchbroker/internal/errs"
	"github.com/bakaio/matchbroker/internal/model"
)

type fakeTrigger struct{ fired chan uuid.UUID }

func newFakeTrigger() *fakeTrigger { return &fakeTrigger{fired: make(chan uuid.UUID, 1)} }

func (f *fakeTrigger) TriggerCheckout(matchID uuid.UUID) { f.fired <- matchID }

func TestAdmissionService_Claim_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewAdmissionService(&fakeMatchRepo{}, nil)

	if _, err := s.Claim(ctx, uuid.Nil, "user-1"); err == nil {
		t.Fatalf("want validation error on empty match id")
	}
	if _, err := s.Claim(ctx, uuid.Must(uuid.NewV4()), ""); err == nil {
		t.Fatalf("want validation error on empty user id")
	}
}

func TestAdmissionService_Claim_TriggersOnRosterComplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeMatchRepo{claimRes: model.ClaimResult{Count: 2, RosterComplete: true}}
	trig := newFakeTrigger()
	s := NewAdmissionService(repo, trig)

	matchID := uuid.Must(uuid.NewV4())
	res, err := s.Claim(ctx, matchID, "user-2")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.RosterComplete || res.Count != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	select {
	case got := <-trig.fired:
		if got != matchID {
			t.Fatalf("trigger fired for %s, want %s", got, matchID)
		}
	case <-time.After(time.Second):
		t.Fatalf("trigger not fired")
	}
}

func TestAdmissionService_Claim_NoTriggerOnFirstSlot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeMatchRepo{claimRes: model.ClaimResult{Count: 1}}
	trig := newFakeTrigger()
	s := NewAdmissionService(repo, trig)

	if _, err := s.Claim(ctx, uuid.Must(uuid.NewV4()), "user-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	select {
	case <-trig.fired:
		t.Fatalf("trigger must not fire for an incomplete roster")
	default:
	}
}

func TestAdmissionService_Claim_NoTriggerOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeMatchRepo{claimErr: errs.ErrFull}
	trig := newFakeTrigger()
	s := NewAdmissionService(repo, trig)

	if _, err := s.Claim(ctx, uuid.Must(uuid.NewV4()), "user-3"); err == nil {
		t.Fatalf("want error from repo")
	}
	select {
	case <-trig.fired:
		t.Fatalf("trigger must not fire on a failed claim")
	default:
	}
}

func TestAdmissionService_Leave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeMatchRepo{}
	s := NewAdmissionService(repo, nil)

	if err := s.Leave(ctx, uuid.Nil, "user-1"); err == nil {
		t.Fatalf("want validation error on empty match id")
	}
	if err := s.Leave(ctx, uuid.Must(uuid.NewV4()), "user-1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if repo.leaveIn != "user-1" {
		t.Fatalf("repo got user %q", repo.leaveIn)
	}
}
