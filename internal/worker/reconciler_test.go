package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/bakaio/matchbroker/internal/repository"
	"github.com/bakaio/matchbroker/internal/service"
)

type fakeRepo struct {
	repository.MatchRepository
	ids []uuid.UUID
	err error
}

func (f *fakeRepo) OpenRosterComplete(_ context.Context) ([]uuid.UUID, error) {
	return f.ids, f.err
}

type fakeCheckout struct {
	mu      sync.Mutex
	ensured []uuid.UUID
	errFor  map[uuid.UUID]error
}

func (f *fakeCheckout) Ensure(_ context.Context, matchID uuid.UUID) (service.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, matchID)
	if err := f.errFor[matchID]; err != nil {
		return service.CheckoutResult{}, err
	}
	return service.CheckoutResult{SpaceRef: "chan-" + matchID.String()[:4], Created: true}, nil
}

func (f *fakeCheckout) TriggerCheckout(_ uuid.UUID) {}

func TestReconciler_Sweep(t *testing.T) {
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())

	repo := &fakeRepo{ids: []uuid.UUID{a, b}}
	checkout := &fakeCheckout{errFor: map[uuid.UUID]error{a: errors.New("still down")}}
	r := NewReconciler(repo, checkout, zap.NewNop(), time.Minute)

	r.Sweep()

	if len(checkout.ensured) != 2 {
		t.Fatalf("ensured %d matches, want 2", len(checkout.ensured))
	}
	if checkout.ensured[0] != a || checkout.ensured[1] != b {
		t.Fatalf("ensured order %v", checkout.ensured)
	}
}

func TestReconciler_Sweep_ListError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	checkout := &fakeCheckout{}
	r := NewReconciler(repo, checkout, zap.NewNop(), time.Minute)

	r.Sweep()

	if len(checkout.ensured) != 0 {
		t.Fatalf("no provisioning when the listing fails")
	}
}

func TestReconciler_StartStop(t *testing.T) {
	repo := &fakeRepo{}
	r := NewReconciler(repo, &fakeCheckout{}, zap.NewNop(), time.Hour)
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Stop()
}
