package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxEventTitleLen = 255

// Event is a tenant: every passphrase, and every grant a session holds,
// is scoped to exactly one event.
type Event struct {
	ID        int64     `json:"id"         db:"id"`
	Title     string    `json:"title"      db:"title"`
	BeginDate time.Time `json:"begin_date" db:"begin_date"`
	EndDate   time.Time `json:"end_date"   db:"end_date"`
}

// CreateEventRequest contains fields to create a new event.
type CreateEventRequest struct {
	Title     string    `json:"title"`
	BeginDate time.Time `json:"begin_date"`
	EndDate   time.Time `json:"end_date"`
}

func (r *CreateEventRequest) Validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return errors.New("title is required and cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxEventTitleLen {
		return errors.New("title cannot exceed 255 characters")
	}
	if r.EndDate.Before(r.BeginDate) {
		return errors.New("end_date must not precede begin_date")
	}
	return nil
}
