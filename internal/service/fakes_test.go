package service

import (
	"context"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/platform"
	"github.com/bakaio/matchbroker/internal/repository"
)

type fakeMatchRepo struct {
	mu sync.Mutex

	match    *model.Match
	getErr   error
	parts    []model.Participant
	partsErr error

	createIn  *model.Match
	createErr error

	pubsIn  []model.PublicationRef
	pubsErr error

	claimRes   model.ClaimResult
	claimErr   error
	claimIn    string
	claimCalls int

	leaveErr error
	leaveIn  string

	activateRef     string
	activateCreated bool
	activateErr     error
	activateIn      string
	activateCalls   int

	confirmErr error
	confirmIn  string

	proposeErr   error
	proposeIn    string
	proposeValue string

	markPaidErr error
	markPaidIn  string

	resolveErr error
	resolveIn  model.Outcome

	rosterIDs []uuid.UUID
	rosterErr error
}

var _ repository.MatchRepository = (*fakeMatchRepo)(nil)

func (f *fakeMatchRepo) Create(_ context.Context, m *model.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createIn = m
	return f.createErr
}

func (f *fakeMatchRepo) Get(_ context.Context, _ uuid.UUID) (*model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	cp := *f.match
	return &cp, nil
}

func (f *fakeMatchRepo) Participants(_ context.Context, _ uuid.UUID) ([]model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Participant(nil), f.parts...), f.partsErr
}

func (f *fakeMatchRepo) SetPublications(_ context.Context, _ uuid.UUID, refs []model.PublicationRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pubsIn = append([]model.PublicationRef(nil), refs...)
	return f.pubsErr
}

func (f *fakeMatchRepo) Claim(_ context.Context, _ uuid.UUID, userID string) (model.ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimIn = userID
	f.claimCalls++
	return f.claimRes, f.claimErr
}

func (f *fakeMatchRepo) Leave(_ context.Context, _ uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveIn = userID
	return f.leaveErr
}

func (f *fakeMatchRepo) ActivateCheckout(_ context.Context, _ uuid.UUID, spaceRef string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateIn = spaceRef
	f.activateCalls++
	if f.activateErr != nil {
		return "", false, f.activateErr
	}
	ref := f.activateRef
	if ref == "" {
		ref = spaceRef
	}
	return ref, f.activateCreated, nil
}

func (f *fakeMatchRepo) ConfirmParticipant(_ context.Context, _ uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmIn = userID
	return f.confirmErr
}

func (f *fakeMatchRepo) ProposeValue(_ context.Context, _ uuid.UUID, brokerID, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposeIn, f.proposeValue = brokerID, value
	return f.proposeErr
}

func (f *fakeMatchRepo) MarkPaid(_ context.Context, _ uuid.UUID, brokerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markPaidIn = brokerID
	return f.markPaidErr
}

func (f *fakeMatchRepo) Resolve(_ context.Context, _ uuid.UUID, brokerID string, outcome model.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveIn = outcome
	return f.resolveErr
}

func (f *fakeMatchRepo) OpenRosterComplete(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.rosterIDs...), f.rosterErr
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	actions []string
	entries []model.AuditEntry
	limitIn int
	listErr error
}

var _ repository.AuditRepository = (*fakeAuditRepo)(nil)

func (f *fakeAuditRepo) Append(_ context.Context, _ *uuid.UUID, action string, _ *string, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return int64(len(f.actions)), nil
}

func (f *fakeAuditRepo) ListRecent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limitIn = limit
	return append([]model.AuditEntry(nil), f.entries...), f.listErr
}

func (f *fakeAuditRepo) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

type fakePlatform struct {
	mu sync.Mutex

	createRef     string
	createErr     error
	createCalls   int
	createMembers []string

	notifyErr error
	notes     []string
}

var _ platform.Platform = (*fakePlatform)(nil)

func (f *fakePlatform) CreateIsolatedSpace(_ context.Context, _ uuid.UUID, memberIDs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createMembers = append([]string(nil), memberIDs...)
	return f.createRef, f.createErr
}

func (f *fakePlatform) NotifySpace(_ context.Context, spaceRef, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, spaceRef+": "+message)
	return f.notifyErr
}

func (f *fakePlatform) notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notes...)
}
