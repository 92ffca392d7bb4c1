package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable wraps every failed read or write against the database.
	ErrUnavailable = errors.New("store unavailable")
)

// Relations read or written by the service.
const (
	tableAdmins      = "admin_users"
	tableProfiles    = "profiles"
	tableSupervisors = "supervisor_companies"
	tableMood        = "mood_entries"
	tableReports     = "reports"
	viewAlerts       = "v_global_recent_alerts"
	viewEmployees    = "v_dashboard_employees"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func (s *Store) query(ctx context.Context, op string, q *Query) (pgx.Rows, error) {
	sql, args := q.SQL()
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	return rows, nil
}

func (s *Store) count(ctx context.Context, op string, q *Query) (int, error) {
	sql, args := q.CountSQL()
	var n int
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, unavailable(op, err)
	}
	return n, nil
}
