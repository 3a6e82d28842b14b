package service

import (
	"context"
	"errors"

	"github.com/planfest/planfest/internal/domain/model"
	apperrors "github.com/planfest/planfest/internal/errors"
	"github.com/planfest/planfest/internal/ports"
)

// EventService manages the tenant records that scope passphrases and grants.
type EventService struct {
	store ports.EventStore
}

// NewEventService constructs a new EventService.
func NewEventService(store ports.EventStore) *EventService {
	return &EventService{store: store}
}

// Create registers a new event.
func (s *EventService) Create(ctx context.Context, req model.CreateEventRequest) (model.Event, error) {
	ev, err := s.store.Create(ctx, req)
	if err != nil {
		return model.Event{}, apperrors.MapDBError(err)
	}
	return ev, nil
}

// Get returns one event, or a NotFound error.
func (s *EventService) Get(ctx context.Context, id int64) (model.Event, error) {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return model.Event{}, apperrors.NotFoundf("Event %d does not exist.", id)
		}
		return model.Event{}, apperrors.MapDBError(err)
	}
	return ev, nil
}

// List returns all events ordered by id.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	events, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return events, nil
}
