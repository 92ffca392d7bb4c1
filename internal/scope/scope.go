package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
)

var (
	// ErrNotAuthenticated means there is no caller identity to resolve.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrProfileMissing means the caller is authenticated but has no profile row.
	ErrProfileMissing = errors.New("profile missing")
)

// Scope is the visibility boundary for every query issued during one request.
type Scope struct {
	CallerID           uuid.UUID      `json:"caller_id"`
	IsAdmin            bool           `json:"is_admin"`
	Role               wellbeing.Role `json:"role"`
	ProfileCompanyID   *uuid.UUID     `json:"profile_company_id,omitempty"`
	EffectiveCompanyID *uuid.UUID     `json:"effective_company_id,omitempty"`
}

// Empty reports whether a non-admin caller has no company binding.
// An empty scope sees nothing; it never widens to global visibility.
func (s Scope) Empty() bool {
	return !s.IsAdmin && s.EffectiveCompanyID == nil
}

// Visibility returns the store filter for this scope. ok is false for an
// empty scope, in which case callers must return empty results without querying.
func (s Scope) Visibility() (v wellbeing.Visibility, ok bool) {
	if s.IsAdmin {
		return wellbeing.Visibility{Global: true}, true
	}
	if s.EffectiveCompanyID == nil {
		return wellbeing.Visibility{}, false
	}
	return wellbeing.Visibility{CompanyID: *s.EffectiveCompanyID}, true
}

// Directory is the read surface the resolver needs.
type Directory interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*wellbeing.Profile, error)
	LatestSupervisorCompany(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

// Resolver turns a caller identity into a Scope.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
}

func NewResolver(dir Directory, logger *slog.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

// Resolve computes the caller's scope. A failed admin registry lookup counts as
// "not an admin"; a failed or empty profile lookup is fatal.
func (r *Resolver) Resolve(ctx context.Context, callerID uuid.UUID) (Scope, error) {
	if callerID == uuid.Nil {
		return Scope{}, ErrNotAuthenticated
	}

	isAdmin, err := r.dir.IsAdmin(ctx, callerID)
	if err != nil {
		r.logger.Warn("admin registry lookup failed", "caller_id", callerID, "error", err)
		isAdmin = false
	}

	profile, err := r.dir.GetProfile(ctx, callerID)
	if err != nil {
		return Scope{}, fmt.Errorf("%w: %w", ErrProfileMissing, err)
	}
	if profile == nil {
		return Scope{}, ErrProfileMissing
	}

	sc := Scope{
		CallerID:         callerID,
		IsAdmin:          isAdmin,
		Role:             profile.Role,
		ProfileCompanyID: profile.CompanyID,
	}

	switch {
	case isAdmin:
		sc.EffectiveCompanyID = nil
	case profile.Role == wellbeing.RoleSupervisor:
		companyID, err := r.dir.LatestSupervisorCompany(ctx, callerID)
		if err != nil {
			return Scope{}, fmt.Errorf("supervisor assignment: %w", err)
		}
		sc.EffectiveCompanyID = companyID
	default:
		sc.EffectiveCompanyID = profile.CompanyID
	}

	if sc.Empty() {
		r.logger.Info("caller has no company binding", "caller_id", callerID, "role", sc.Role)
	}
	return sc, nil
}
