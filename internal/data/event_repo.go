package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planfest/planfest/internal/data/pgxutil"
	"github.com/planfest/planfest/internal/domain/model"
	"github.com/planfest/planfest/internal/ports"
)

// EventRepo implements ports.EventStore on Postgres.
type EventRepo struct {
	DB *sql.DB
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{DB: db}
}

var _ ports.EventStore = (*EventRepo)(nil)

// Create inserts a new event. Its passphrase counter starts at zero.
func (r *EventRepo) Create(ctx context.Context, req model.CreateEventRequest) (model.Event, error) {
	if err := req.Validate(); err != nil {
		return model.Event{}, err
	}

	var out model.Event
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO events (title, begin_date, end_date)
			VALUES ($1, $2, $3)
			RETURNING id, title, begin_date, end_date`,
			req.Title, req.BeginDate, req.EndDate)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Event])
		return err
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return out, nil
}

// Get returns one event, or ports.ErrNotFound.
func (r *EventRepo) Get(ctx context.Context, id int64) (model.Event, error) {
	var out model.Event
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, title, begin_date, end_date
			FROM events WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Event])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, ports.ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return out, nil
}

// List returns all events ordered by id.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, title, begin_date, end_date
			FROM events ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		events, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Event])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
