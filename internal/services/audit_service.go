package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
)

type auditService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAuditService(repo repositories.Repository, logger *slog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger,
	}
}

// Record appends one audit entry through the given repository. Mutating
// services pass their transaction-bound repository so the entry commits or
// rolls back together with the change it describes.
func (s *auditService) Record(ctx context.Context, repo repositories.Repository, userID uint, action models.AuditAction, tableName string, recordID *uint, oldValue, newValue interface{}) error {
	entry := &models.AuditLogEntry{
		UserID:   userID,
		Action:   action,
		Entity:   tableName,
		RecordID: recordID,
	}

	var err error
	if entry.OldValue, err = marshalAuditValue(oldValue); err != nil {
		return fmt.Errorf("failed to encode audit old value: %w", err)
	}
	if entry.NewValue, err = marshalAuditValue(newValue); err != nil {
		return fmt.Errorf("failed to encode audit new value: %w", err)
	}

	if err := repo.Audit().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (s *auditService) Query(ctx context.Context, filters repositories.AuditFilters, actorID uint) (*AuditListResponse, error) {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, NewPermissionError(actorID, 0, "audit_log", "read", "admin role required")
	}

	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}

	entries, total, err := s.repo.Audit().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	return &AuditListResponse{
		Entries: entries,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

func marshalAuditValue(value interface{}) (datatypes.JSON, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(AuditChange{
		Fields: toFieldMap(value),
		At:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// toFieldMap flattens the given value into a map for the audit envelope.
// Maps pass through; structs round-trip through JSON.
func toFieldMap(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	data, err := json.Marshal(value)
	if err != nil {
		return map[string]interface{}{"value": fmt.Sprintf("%v", value)}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{"value": string(data)}
	}
	return m
}
