// Package store holds the target repositories the check cycle persists to.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sjsage522/pricewatcher/internal/model"
)

// ErrNotFound is returned when a target id does not exist
var ErrNotFound = errors.New("store: target not found")

// Store is a target repository plus the housekeeping verbs used by tooling and tests
type Store interface {
	FindAll(ctx context.Context, filter model.Filter) ([]model.Target, error)
	UpdateSnapshot(ctx context.Context, id string, snapshot model.Snapshot) error
	AppendHistory(ctx context.Context, target model.Target, snapshot model.Snapshot) error

	Create(ctx context.Context, target model.Target) (model.Target, error)
	Delete(ctx context.Context, id string) error
	History(ctx context.Context, targetID string, limit int) ([]model.HistoryRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Open connects to the store selected by driver and runs its migrations
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)

	switch strings.ToLower(driver) {
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn)
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverMemory, "":
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate %s store: %w", driver, err)
	}
	return s, nil
}

func validateTarget(t model.Target) error {
	if t.Platform == "" {
		return errors.New("target platform is required")
	}
	if strings.TrimSpace(t.Reference) == "" {
		return errors.New("target reference is required")
	}
	if t.MinPrice < 0 {
		return fmt.Errorf("min price must be >= 0, got %v", t.MinPrice)
	}
	return nil
}
