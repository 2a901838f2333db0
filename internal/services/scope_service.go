package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
)

type scopeService struct {
	repo   repositories.Repository
	audit  AuditService
	logger *slog.Logger
}

func NewScopeService(repo repositories.Repository, audit AuditService, logger *slog.Logger) ScopeService {
	return &scopeService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// ===== SCOPE RESOLUTION =====

// ResolveScope is computed fresh on every call. Scopes depend on the org
// hierarchy and on grants, both of which admins can change at any moment, so
// they are never cached.
func (s *scopeService) ResolveScope(ctx context.Context, userID uint) (*Scope, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	scope := &Scope{
		UserID: user.ID,
		Role:   user.Role,
	}

	switch user.Role {
	case models.RoleAdmin:
		return scope, nil

	case models.RoleGovernorateAdmin:
		binding, err := s.repo.User().GetGovernorateBinding(ctx, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrGovAdminNeedsBinding
			}
			return nil, fmt.Errorf("failed to load governorate binding: %w", err)
		}
		scope.GovernorateID = &binding.GovernorateID
		return scope, nil

	case models.RoleEmployee:
		if user.HealthAdminID == nil {
			return nil, ErrEmployeeWithoutScope
		}
		healthAdmin, err := s.repo.Org().GetHealthAdmin(ctx, *user.HealthAdminID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrHealthAdminNotFound
			}
			return nil, fmt.Errorf("failed to load health administration: %w", err)
		}
		scope.HealthAdminID = user.HealthAdminID
		scope.GovernorateID = &healthAdmin.GovernorateID
		return scope, nil

	default:
		return nil, ErrInvalidRole
	}
}

// ===== SURVEY VISIBILITY =====

// ListVisibleSurveys returns the surveys the user may see. Admins see all,
// governorate admins see their governorate's surveys regardless of active
// state, employees see the union of their governorate's surveys and surveys
// granted to them directly, active only. Grants exist for employees; other
// roles never consult them.
func (s *scopeService) ListVisibleSurveys(ctx context.Context, userID uint, activeOnly bool) ([]*models.Survey, error) {
	scope, err := s.ResolveScope(ctx, userID)
	if err != nil {
		return nil, err
	}

	if scope.Role == models.RoleEmployee {
		activeOnly = true
	}

	if scope.IsAdmin() {
		filters := repositories.SurveyFilters{}
		if activeOnly {
			active := true
			filters.IsActive = &active
		}
		surveys, _, err := s.repo.Survey().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list surveys: %w", err)
		}
		return surveys, nil
	}

	var targeted []*models.Survey
	if scope.GovernorateID != nil {
		targeted, err = s.repo.Survey().ListByGovernorate(ctx, *scope.GovernorateID, activeOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to list governorate surveys: %w", err)
		}
	}

	if scope.Role != models.RoleEmployee {
		return targeted, nil
	}

	granted, err := s.repo.User().GetGrantedSurveys(ctx, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list granted surveys: %w", err)
	}

	return mergeSurveys(targeted, granted), nil
}

func (s *scopeService) CanAccessSurvey(ctx context.Context, userID, surveyID uint) (bool, error) {
	scope, err := s.ResolveScope(ctx, userID)
	if err != nil {
		return false, err
	}
	if scope.IsAdmin() {
		return true, nil
	}

	visible, err := s.ListVisibleSurveys(ctx, userID, false)
	if err != nil {
		return false, err
	}
	for i := range visible {
		if visible[i].ID == surveyID {
			return true, nil
		}
	}
	return false, nil
}

// ===== GRANTS =====

// SetUserGrants replaces the user's direct survey grants wholesale.
func (s *scopeService) SetUserGrants(ctx context.Context, userID uint, surveyIDs []uint, actorID uint) error {
	s.logger.Info("Replacing survey grants", "user_id", userID, "actor_id", actorID, "count", len(surveyIDs))

	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return NewPermissionError(actorID, userID, "user_survey_grant", "replace", "admin role required")
	}

	if _, err := s.repo.User().GetByID(ctx, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	seen := make(map[uint]bool, len(surveyIDs))
	deduped := make([]uint, 0, len(surveyIDs))
	for _, id := range surveyIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.repo.Survey().GetByID(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSurveyNotFound
			}
			return fmt.Errorf("failed to load survey %d: %w", id, err)
		}
		deduped = append(deduped, id)
	}

	previous, err := s.repo.User().GetGrantedSurveys(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("failed to load existing grants: %w", err)
	}

	return s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.User().ReplaceSurveyGrants(ctx, userID, deduped); err != nil {
			return fmt.Errorf("failed to replace survey grants: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "user_survey_grants", &userID,
			map[string]interface{}{"survey_ids": surveyIDList(previous)},
			map[string]interface{}{"survey_ids": deduped})
	})
}

func (s *scopeService) GetUserGrants(ctx context.Context, userID uint, actorID uint) ([]*models.Survey, error) {
	if userID != actorID {
		actor, err := s.repo.User().GetByID(ctx, actorID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to load actor: %w", err)
		}
		if actor.Role != models.RoleAdmin {
			return nil, NewPermissionError(actorID, userID, "user_survey_grant", "read", "admin role required")
		}
	}

	granted, err := s.repo.User().GetGrantedSurveys(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list granted surveys: %w", err)
	}
	return granted, nil
}

// ===== HELPERS =====

func mergeSurveys(a, b []*models.Survey) []*models.Survey {
	byID := make(map[uint]*models.Survey, len(a)+len(b))
	for _, sv := range a {
		byID[sv.ID] = sv
	}
	for _, sv := range b {
		if _, ok := byID[sv.ID]; !ok {
			byID[sv.ID] = sv
		}
	}

	merged := make([]*models.Survey, 0, len(byID))
	for _, sv := range byID {
		merged = append(merged, sv)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})
	return merged
}

func surveyIDList(surveys []*models.Survey) []uint {
	ids := make([]uint, 0, len(surveys))
	for i := range surveys {
		ids = append(ids, surveys[i].ID)
	}
	return ids
}
