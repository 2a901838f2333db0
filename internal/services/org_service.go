package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moh-surveys/survey-service/internal/cache"
	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/validator"
)

const (
	governorateListCacheKey    = "org:governorates"
	healthAdminListCachePrefix = "org:health_admins:"
	orgListCacheTTL            = 5 * time.Minute
)

type orgService struct {
	repo      repositories.Repository
	audit     AuditService
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewOrgService(repo repositories.Repository, audit AuditService, cacheService cache.CacheService, logger *slog.Logger, v *validator.Validator) OrgService {
	return &orgService{
		repo:      repo,
		audit:     audit,
		cache:     cacheService,
		logger:    logger,
		validator: v,
	}
}

// ===== GOVERNORATES =====

func (s *orgService) CreateGovernorate(ctx context.Context, req *CreateGovernorateRequest, actorID uint) (*models.Governorate, error) {
	s.logger.Info("Creating governorate", "actor_id", actorID, "name", req.Name)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, "governorate", "create"); err != nil {
		return nil, err
	}

	taken, err := s.repo.Org().GovernorateNameExists(ctx, req.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check governorate name: %w", err)
	}
	if taken {
		return nil, ErrGovernorateNameTaken
	}

	governorate := &models.Governorate{
		Name:        req.Name,
		Description: req.Description,
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Org().CreateGovernorate(ctx, governorate); err != nil {
			return fmt.Errorf("failed to create governorate: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditInsert, "governorates", &governorate.ID, nil, governorate)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrGovernorateNameTaken
		}
		return nil, err
	}

	s.invalidateOrgCaches(ctx)
	s.logger.Info("Governorate created", "governorate_id", governorate.ID)
	return governorate, nil
}

func (s *orgService) UpdateGovernorate(ctx context.Context, id uint, req *UpdateGovernorateRequest, actorID uint) (*models.Governorate, error) {
	s.logger.Info("Updating governorate", "governorate_id", id, "actor_id", actorID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, "governorate", "update"); err != nil {
		return nil, err
	}

	governorate, err := s.repo.Org().GetGovernorate(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGovernorateNotFound
		}
		return nil, fmt.Errorf("failed to load governorate: %w", err)
	}

	old := map[string]interface{}{"name": governorate.Name, "description": governorate.Description}

	changed := false
	if req.Name != nil && *req.Name != governorate.Name {
		taken, err := s.repo.Org().GovernorateNameExists(ctx, *req.Name, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to check governorate name: %w", err)
		}
		if taken {
			return nil, ErrGovernorateNameTaken
		}
		governorate.Name = *req.Name
		changed = true
	}
	if req.Description != nil && *req.Description != governorate.Description {
		governorate.Description = *req.Description
		changed = true
	}
	if !changed {
		return governorate, nil
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Org().UpdateGovernorate(ctx, governorate); err != nil {
			return fmt.Errorf("failed to update governorate: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "governorates", &id, old, map[string]interface{}{
			"name":        governorate.Name,
			"description": governorate.Description,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrgCaches(ctx)
	return governorate, nil
}

func (s *orgService) DeleteGovernorate(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deleting governorate", "governorate_id", id, "actor_id", actorID)

	if err := s.requireAdmin(ctx, actorID, "governorate", "delete"); err != nil {
		return err
	}

	governorate, err := s.repo.Org().GetGovernorate(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrGovernorateNotFound
		}
		return fmt.Errorf("failed to load governorate: %w", err)
	}

	hasAdmins, err := s.repo.Org().GovernorateHasHealthAdmins(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check governorate dependencies: %w", err)
	}
	if hasAdmins {
		return ErrGovernorateHasAdmins
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Org().DeleteGovernorate(ctx, id); err != nil {
			return fmt.Errorf("failed to delete governorate: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditDelete, "governorates", &id, governorate, nil)
	})
	if err != nil {
		return err
	}

	s.invalidateOrgCaches(ctx)
	s.logger.Info("Governorate deleted", "governorate_id", id)
	return nil
}

func (s *orgService) GetGovernorate(ctx context.Context, id uint) (*models.Governorate, error) {
	governorate, err := s.repo.Org().GetGovernorate(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGovernorateNotFound
		}
		return nil, fmt.Errorf("failed to get governorate: %w", err)
	}
	return governorate, nil
}

func (s *orgService) ListGovernorates(ctx context.Context) ([]*models.Governorate, error) {
	var cached []*models.Governorate
	if err := s.cache.Get(ctx, governorateListCacheKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Governorate list cache read failed", "error", err)
	}

	governorates, err := s.repo.Org().ListGovernorates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list governorates: %w", err)
	}

	if err := s.cache.Set(ctx, governorateListCacheKey, governorates, orgListCacheTTL); err != nil {
		s.logger.Warn("Governorate list cache write failed", "error", err)
	}
	return governorates, nil
}

// ===== HEALTH ADMINISTRATIONS =====

func (s *orgService) CreateHealthAdmin(ctx context.Context, req *CreateHealthAdminRequest, actorID uint) (*models.HealthAdministration, error) {
	s.logger.Info("Creating health administration", "actor_id", actorID, "name", req.Name, "governorate_id", req.GovernorateID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, "health_administration", "create"); err != nil {
		return nil, err
	}

	if _, err := s.repo.Org().GetGovernorate(ctx, req.GovernorateID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGovernorateNotFound
		}
		return nil, fmt.Errorf("failed to load governorate: %w", err)
	}

	taken, err := s.repo.Org().HealthAdminNameExists(ctx, req.Name, req.GovernorateID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check health administration name: %w", err)
	}
	if taken {
		return nil, ErrHealthAdminNameTaken
	}

	healthAdmin := &models.HealthAdministration{
		Name:          req.Name,
		Description:   req.Description,
		GovernorateID: req.GovernorateID,
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Org().CreateHealthAdmin(ctx, healthAdmin); err != nil {
			return fmt.Errorf("failed to create health administration: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditInsert, "health_administrations", &healthAdmin.ID, nil, healthAdmin)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrHealthAdminNameTaken
		}
		return nil, err
	}

	s.invalidateOrgCaches(ctx)
	s.logger.Info("Health administration created", "health_admin_id", healthAdmin.ID)
	return healthAdmin, nil
}

func (s *orgService) UpdateHealthAdmin(ctx context.Context, id uint, req *UpdateHealthAdminRequest, actorID uint) (*models.HealthAdministration, error) {
	s.logger.Info("Updating health administration", "health_admin_id", id, "actor_id", actorID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, "health_administration", "update"); err != nil {
		return nil, err
	}

	healthAdmin, err := s.repo.Org().GetHealthAdmin(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHealthAdminNotFound
		}
		return nil, fmt.Errorf("failed to load health administration: %w", err)
	}

	old := map[string]interface{}{
		"name":           healthAdmin.Name,
		"description":    healthAdmin.Description,
		"governorate_id": healthAdmin.GovernorateID,
	}

	changed := false
	targetGovID := healthAdmin.GovernorateID
	if req.GovernorateID != nil && *req.GovernorateID != healthAdmin.GovernorateID {
		if _, err := s.repo.Org().GetGovernorate(ctx, *req.GovernorateID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrGovernorateNotFound
			}
			return nil, fmt.Errorf("failed to load governorate: %w", err)
		}
		targetGovID = *req.GovernorateID
		changed = true
	}

	name := healthAdmin.Name
	if req.Name != nil && *req.Name != healthAdmin.Name {
		name = *req.Name
		changed = true
	}
	// Names are unique per governorate, so both a rename and a re-parent
	// must be checked against the target governorate.
	if name != healthAdmin.Name || targetGovID != healthAdmin.GovernorateID {
		taken, err := s.repo.Org().HealthAdminNameExists(ctx, name, targetGovID, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to check health administration name: %w", err)
		}
		if taken {
			return nil, ErrHealthAdminNameTaken
		}
	}
	healthAdmin.Name = name
	healthAdmin.GovernorateID = targetGovID

	if req.Description != nil && *req.Description != healthAdmin.Description {
		healthAdmin.Description = *req.Description
		changed = true
	}
	if !changed {
		return healthAdmin, nil
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Org().UpdateHealthAdmin(ctx, healthAdmin); err != nil {
			return fmt.Errorf("failed to update health administration: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "health_administrations", &id, old, map[string]interface{}{
			"name":           healthAdmin.Name,
			"description":    healthAdmin.Description,
			"governorate_id": healthAdmin.GovernorateID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateOrgCaches(ctx)
	return healthAdmin, nil
}

func (s *orgService) DeleteHealthAdmin(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deleting health administration", "health_admin_id", id, "actor_id", actorID)

	if err := s.requireAdmin(ctx, actorID, "health_administration", "delete"); err != nil {
		return err
	}

	healthAdmin, err := s.repo.Org().GetHealthAdmin(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrHealthAdminNotFound
		}
		return fmt.Errorf("failed to load health administration: %w", err)
	}

	hasUsers, err := s.repo.Org().HealthAdminHasUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check health administration dependencies: %w", err)
	}
	if hasUsers {
		return ErrHealthAdminHasUsers
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Org().DeleteHealthAdmin(ctx, id); err != nil {
			return fmt.Errorf("failed to delete health administration: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditDelete, "health_administrations", &id, healthAdmin, nil)
	})
	if err != nil {
		return err
	}

	s.invalidateOrgCaches(ctx)
	s.logger.Info("Health administration deleted", "health_admin_id", id)
	return nil
}

func (s *orgService) GetHealthAdmin(ctx context.Context, id uint) (*models.HealthAdministration, error) {
	healthAdmin, err := s.repo.Org().GetHealthAdmin(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrHealthAdminNotFound
		}
		return nil, fmt.Errorf("failed to get health administration: %w", err)
	}
	return healthAdmin, nil
}

func (s *orgService) ListHealthAdmins(ctx context.Context, governorateID *uint) ([]*models.HealthAdministration, error) {
	key := healthAdminListCachePrefix + "all"
	if governorateID != nil {
		key = fmt.Sprintf("%s%d", healthAdminListCachePrefix, *governorateID)
	}

	var cached []*models.HealthAdministration
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Health administration list cache read failed", "error", err)
	}

	healthAdmins, err := s.repo.Org().ListHealthAdmins(ctx, governorateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list health administrations: %w", err)
	}

	if err := s.cache.Set(ctx, key, healthAdmins, orgListCacheTTL); err != nil {
		s.logger.Warn("Health administration list cache write failed", "error", err)
	}
	return healthAdmins, nil
}

// ===== HELPERS =====

func (s *orgService) requireAdmin(ctx context.Context, actorID uint, resource, action string) error {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return NewPermissionError(actorID, 0, resource, action, "admin role required")
	}
	return nil
}

// Hierarchy reads are cached; anything that mutates it drops both list caches.
func (s *orgService) invalidateOrgCaches(ctx context.Context) {
	if err := s.cache.Delete(ctx, governorateListCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate governorate list cache", "error", err)
	}
	if err := s.cache.DeletePattern(ctx, healthAdminListCachePrefix+"*"); err != nil {
		s.logger.Warn("Failed to invalidate health administration list caches", "error", err)
	}
}
