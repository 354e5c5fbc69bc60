package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minhchien137/MachineStatusUpdate/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// FindMachine returns the reference row for code, or nil when none exists.
	FindMachine(ctx context.Context, code string) (*model.Machine, error)
	// InsertEvent persists a new status event.
	InsertEvent(ctx context.Context, event *model.StatusEvent) error
	// FetchEvents returns the events within the query bounds ordered by
	// timestamp, ties broken by insertion order.
	FetchEvents(ctx context.Context, q EventQuery) ([]model.StatusEvent, error)
}

// EventQuery pre-selects events by inclusive timestamp bounds. Nil bounds are
// open; with any bound set, events without a timestamp are excluded.
// Timestamps are written and compared in UTC, since SQLite stores them as
// offset-suffixed text and compares them as strings.
type EventQuery struct {
	Since      *time.Time
	Until      *time.Time
	Descending bool
}

var procedureNameRe = regexp.MustCompile(`^[\w\[\]\.]+$`)

// Option configures a gormStore.
type Option func(*gormStore)

// WithInsertProcedure makes InsertEvent call the named stored procedure on SQL
// Server instead of inserting the row directly.
func WithInsertProcedure(name string) Option {
	return func(s *gormStore) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if !procedureNameRe.MatchString(name) {
			log.Printf("Warning: ignoring invalid insert procedure name %q", name)
			return
		}
		s.procedure = name
	}
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db        *gorm.DB
	procedure string
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) FindMachine(ctx context.Context, code string) (*model.Machine, error) {
	if code == "" {
		return nil, nil
	}
	var m model.Machine
	err := s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "SVNCode"}, Value: code}).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up machine %q: %w", code, err)
	}
	return &m, nil
}

func (s *gormStore) InsertEvent(ctx context.Context, e *model.StatusEvent) error {
	if e.Datetime != nil {
		utc := e.Datetime.UTC()
		e.Datetime = &utc
	}
	if s.procedure != "" && s.db.Dialector.Name() == "sqlserver" {
		err := s.db.WithContext(ctx).Exec(procedureCall(s.procedure),
			e.Code, e.Name, e.State, e.Operation, e.Description, e.Image, e.Datetime).Error
		if err != nil {
			return fmt.Errorf("failed to execute %s for machine %q: %w", s.procedure, e.Code, err)
		}
		return nil
	}

	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to insert status event for machine %q: %w", e.Code, err)
	}
	return nil
}

func (s *gormStore) FetchEvents(ctx context.Context, q EventQuery) ([]model.StatusEvent, error) {
	datetime := clause.Column{Name: "Datetime"}
	tx := s.db.WithContext(ctx).Model(&model.StatusEvent{})
	if q.Since != nil {
		tx = tx.Where(clause.Gte{Column: datetime, Value: q.Since.UTC()})
	}
	if q.Until != nil {
		tx = tx.Where(clause.Lte{Column: datetime, Value: q.Until.UTC()})
	}

	var events []model.StatusEvent
	err := tx.
		Order(clause.OrderByColumn{Column: datetime, Desc: q.Descending}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "Id"}, Desc: q.Descending}).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status events: %w", err)
	}
	return events, nil
}

// procedureCall builds the EXEC statement for the insert procedure. Arguments
// are code, name, state, operation, description, image and datetime.
func procedureCall(name string) string {
	return "EXEC " + name + " ?, ?, ?, ?, ?, ?, ?"
}
