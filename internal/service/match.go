// Package service contains application services for match publication,
// admission, checkout provisioning and lifecycle control.
package service

import (
	"context"
	"errors"

	"github.com/bakaio/matchbroker/internal/model"
	"github.com/bakaio/matchbroker/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// PublishInput carries the finished offer configuration at publish time.
// Draft state before publication lives in the gateway, never here.
type PublishInput struct {
	GuildID  string
	BrokerID string
	Config   model.MatchConfig
}

// MatchService covers publication and read access to matches.
type MatchService interface {
	// Publish creates a new open match from a finished configuration.
	Publish(ctx context.Context, in PublishInput) (*model.Match, error)
	// Get returns a match together with its participants.
	Get(ctx context.Context, id uuid.UUID) (*model.Match, []model.Participant, error)
	// SetPublications persists where the offer was rendered.
	SetPublications(ctx context.Context, id uuid.UUID, refs []model.PublicationRef) error
}

type MatchServiceImpl struct {
	repo repository.MatchRepository
}

// NewMatchService constructs MatchService.
func NewMatchService(repo repository.MatchRepository) *MatchServiceImpl {
	return &MatchServiceImpl{repo: repo}
}

// Publish validates the configuration and creates the match in the open state.
func (s *MatchServiceImpl) Publish(ctx context.Context, in PublishInput) (*model.Match, error) {
	if in.GuildID == "" || in.BrokerID == "" {
		return nil, errors.New("validation: empty guild/broker id")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m := &model.Match{
		ID:       id,
		GuildID:  in.GuildID,
		BrokerID: in.BrokerID,
		Config:   in.Config,
		State:    model.StateOpen,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get loads a match and its roster.
func (s *MatchServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Match, []model.Participant, error) {
	if id == uuid.Nil {
		return nil, nil, errors.New("validation: empty match id")
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	parts, err := s.repo.Participants(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return m, parts, nil
}

// SetPublications stores rendered message refs for later edits.
func (s *MatchServiceImpl) SetPublications(ctx context.Context, id uuid.UUID, refs []model.PublicationRef) error {
	if id == uuid.Nil {
		return errors.New("validation: empty match id")
	}
	return s.repo.SetPublications(ctx, id, refs)
}
