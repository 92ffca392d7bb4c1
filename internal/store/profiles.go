package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IsAdmin reports whether the user is in the administrator registry.
func (s *Store) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.count(ctx, "admin lookup", From(tableAdmins).Eq("user_id", userID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetProfile loads a profile by id. It returns ErrNotFound when there is none.
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*wellbeing.Profile, error) {
	sql, args := From(tableProfiles,
		"id", "coalesce(name, '')", "coalesce(role, '')", "company_id", "coalesce(company_name, '')", "created_at",
	).Eq("id", userID).Limit(1).SQL()

	var (
		p         wellbeing.Profile
		role      string
		createdAt *time.Time
	)
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.Name, &role, &p.CompanyID, &p.CompanyName, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get profile", err)
	}
	p.Role = wellbeing.Role(role)
	if createdAt != nil {
		p.CreatedAt = *createdAt
	}
	return &p, nil
}

// LatestSupervisorCompany returns the company of the supervisor's most recent
// assignment, or nil when the supervisor has none.
func (s *Store) LatestSupervisorCompany(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	sql, args := From(tableSupervisors, "company_id").
		Eq("user_id", userID).
		OrderBy("created_at", true).
		Limit(1).
		SQL()

	var companyID *uuid.UUID
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&companyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("supervisor assignment", err)
	}
	return companyID, nil
}

// profileBatch bounds the size of an id list sent in one query.
const profileBatch = 100

// ProfileNames resolves display names for the given ids. Ids without a
// profile or with a blank name are absent from the map.
func (s *Store) ProfileNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	for start := 0; start < len(ids); start += profileBatch {
		end := min(start+profileBatch, len(ids))

		rows, err := s.query(ctx, "profile names",
			From(tableProfiles, "id", "coalesce(trim(name), '')").In("id", ids[start:end]))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				id   uuid.UUID
				name string
			)
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return nil, unavailable("scan profile name", err)
			}
			if name != "" {
				names[id] = name
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, unavailable("profile names", err)
		}
	}
	return names, nil
}
