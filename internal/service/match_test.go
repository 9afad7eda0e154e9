package service

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/bakaio/matchbroker/internal/model"
)

func TestMatchService_Publish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeMatchRepo{}
	s := NewMatchService(repo)

	if _, err := s.Publish(ctx, PublishInput{GuildID: "", BrokerID: "b"}); err == nil {
		t.Fatalf("want validation error on empty guild id")
	}

	m, err := s.Publish(ctx, PublishInput{
		GuildID:  "g1",
		BrokerID: "broker-1",
		Config:   model.MatchConfig{Mode: "1v1", SuggestedValue: "20"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if m.ID == uuid.Nil {
		t.Fatalf("id not assigned")
	}
	if m.State != model.StateOpen {
		t.Fatalf("state %q, want open", m.State)
	}
	if repo.createIn == nil || repo.createIn.Config.Mode != "1v1" {
		t.Fatalf("repo got %+v", repo.createIn)
	}
}

func TestMatchService_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	matchID := uuid.Must(uuid.NewV4())
	repo := &fakeMatchRepo{
		match: &model.Match{ID: matchID, GuildID: "g1", BrokerID: "broker-1", State: model.StateOpen},
		parts: []model.Participant{{MatchID: matchID, UserID: "user-1"}},
	}
	s := NewMatchService(repo)

	if _, _, err := s.Get(ctx, uuid.Nil); err == nil {
		t.Fatalf("want validation error on empty id")
	}

	m, parts, err := s.Get(ctx, matchID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.ID != matchID || len(parts) != 1 {
		t.Fatalf("got %+v / %d participants", m, len(parts))
	}
}

func TestMatchService_SetPublications(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeMatchRepo{}
	s := NewMatchService(repo)

	refs := []model.PublicationRef{{ChannelID: "c1", MessageID: "m1"}}
	if err := s.SetPublications(ctx, uuid.Nil, refs); err == nil {
		t.Fatalf("want validation error on empty id")
	}
	if err := s.SetPublications(ctx, uuid.Must(uuid.NewV4()), refs); err != nil {
		t.Fatalf("set publications: %v", err)
	}
	if len(repo.pubsIn) != 1 || repo.pubsIn[0].ChannelID != "c1" {
		t.Fatalf("repo got %+v", repo.pubsIn)
	}
}

func TestAuditService_Recent_Clamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeAuditRepo{}
	s := NewAuditService(repo, 100)

	if _, err := s.Recent(ctx, 0); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if repo.limitIn != 50 {
		t.Fatalf("default limit %d, want 50", repo.limitIn)
	}

	if _, err := s.Recent(ctx, 500); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if repo.limitIn != 100 {
		t.Fatalf("clamped limit %d, want 100", repo.limitIn)
	}
}
