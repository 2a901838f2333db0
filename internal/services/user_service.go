package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	audit     AuditService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, audit AuditService, logger *slog.Logger, v *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		audit:     audit,
		logger:    logger,
		validator: v,
	}
}

// ===== CRUD =====

func (s *userService) Create(ctx context.Context, req *CreateUserRequest, actorID uint) (*models.User, error) {
	s.logger.Info("Creating user", "actor_id", actorID, "username", req.Username, "role", req.Role)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, "user", "create"); err != nil {
		return nil, err
	}
	if err := s.validateRoleBindings(ctx, req.Role, req.HealthAdminID, req.GovernorateID); err != nil {
		return nil, err
	}

	taken, err := s.repo.User().UsernameExists(ctx, req.Username, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if req.Role == models.RoleEmployee {
		user.HealthAdminID = req.HealthAdminID
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.User().Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if req.Role == models.RoleGovernorateAdmin {
			if err := tx.User().BindGovernorate(ctx, user.ID, *req.GovernorateID); err != nil {
				return fmt.Errorf("failed to bind governorate: %w", err)
			}
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditInsert, "users", &user.ID, nil, auditUserView(user))
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID)
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uint, req *UpdateUserRequest, actorID uint) (*models.User, error) {
	s.logger.Info("Updating user", "user_id", id, "actor_id", actorID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, "user", "update"); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	role := user.Role
	if req.Role != nil {
		role = *req.Role
	}

	healthAdminID := user.HealthAdminID
	if req.HealthAdminID != nil {
		healthAdminID = req.HealthAdminID
	}
	governorateID := req.GovernorateID
	if governorateID == nil && role == models.RoleGovernorateAdmin {
		if binding, err := s.repo.User().GetGovernorateBinding(ctx, id); err == nil {
			governorateID = &binding.GovernorateID
		}
	}

	if err := s.validateRoleBindings(ctx, role, healthAdminID, governorateID); err != nil {
		return nil, err
	}

	old := auditUserView(user)

	if req.Username != nil && *req.Username != user.Username {
		taken, err := s.repo.User().UsernameExists(ctx, *req.Username, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		user.Username = *req.Username
	}

	user.Role = role
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	switch role {
	case models.RoleEmployee:
		user.HealthAdminID = healthAdminID
	default:
		user.HealthAdminID = nil
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.User().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		switch role {
		case models.RoleGovernorateAdmin:
			if err := tx.User().BindGovernorate(ctx, id, *governorateID); err != nil {
				return fmt.Errorf("failed to bind governorate: %w", err)
			}
		default:
			if err := tx.User().UnbindGovernorate(ctx, id); err != nil {
				return fmt.Errorf("failed to unbind governorate: %w", err)
			}
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "users", &id, old, auditUserView(user))
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deleting user", "user_id", id, "actor_id", actorID)

	if err := s.requireAdmin(ctx, actorID, "user", "delete"); err != nil {
		return err
	}
	if id == actorID {
		return NewBusinessRuleError("self_delete", "users cannot delete their own account", nil)
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.User().UnbindGovernorate(ctx, id); err != nil {
			return fmt.Errorf("failed to unbind governorate: %w", err)
		}
		if err := tx.User().ReplaceSurveyGrants(ctx, id, nil); err != nil {
			return fmt.Errorf("failed to clear survey grants: %w", err)
		}
		if err := tx.User().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditDelete, "users", &id, auditUserView(user), nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info("User deleted", "user_id", id)
	return nil
}

func (s *userService) GetByID(ctx context.Context, id uint, actorID uint) (*models.User, error) {
	if id != actorID {
		if err := s.requireAdmin(ctx, actorID, "user", "read"); err != nil {
			return nil, err
		}
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters, actorID uint) (*UserListResponse, error) {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}

	switch actor.Role {
	case models.RoleAdmin:
		// unrestricted
	case models.RoleGovernorateAdmin:
		binding, err := s.repo.User().GetGovernorateBinding(ctx, actorID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrGovAdminNeedsBinding
			}
			return nil, fmt.Errorf("failed to load governorate binding: %w", err)
		}
		filters.GovernorateID = &binding.GovernorateID
	default:
		return nil, NewPermissionError(actorID, 0, "user", "list", "employees cannot list users")
	}

	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserListResponse{
		Users:  users,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// ===== AUTHENTICATION =====

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.User().GetByUsername(ctx, username)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.User().TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// TouchActivity stamps the user's last-activity time. Failures are logged
// only; activity tracking never blocks a request.
func (s *userService) TouchActivity(ctx context.Context, userID uint) {
	if err := s.repo.User().TouchLastActivity(ctx, userID); err != nil {
		s.logger.Warn("Failed to record last activity", "user_id", userID, "error", err)
	}
}

// ===== HELPERS =====

// validateRoleBindings enforces which organizational link each role carries:
// employees hang off a health administration, governorate admins off a
// governorate, plain admins off neither.
func (s *userService) validateRoleBindings(ctx context.Context, role models.UserRole, healthAdminID, governorateID *uint) error {
	switch role {
	case models.RoleEmployee:
		if healthAdminID == nil {
			return ErrEmployeeNeedsAdmin
		}
		if _, err := s.repo.Org().GetHealthAdmin(ctx, *healthAdminID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrHealthAdminNotFound
			}
			return fmt.Errorf("failed to load health administration: %w", err)
		}
	case models.RoleGovernorateAdmin:
		if governorateID == nil {
			return ErrGovAdminNeedsBinding
		}
		if _, err := s.repo.Org().GetGovernorate(ctx, *governorateID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrGovernorateNotFound
			}
			return fmt.Errorf("failed to load governorate: %w", err)
		}
	case models.RoleAdmin:
		// no organizational binding
	default:
		return ErrInvalidRole
	}
	return nil
}

func (s *userService) requireAdmin(ctx context.Context, actorID uint, resource, action string) error {
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

// auditUserView is what goes into the audit log for a user row. Never the
// password hash.
func auditUserView(user *models.User) map[string]interface{} {
	view := map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	}
	if user.HealthAdminID != nil {
		view["health_admin_id"] = *user.HealthAdminID
	}
	return view
}
