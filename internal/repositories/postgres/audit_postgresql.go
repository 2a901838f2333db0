package postgres

import (
	"context"
	"fmt"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"gorm.io/gorm"
)

type AuditPostgreSQL struct {
	db *gorm.DB
}

func NewAuditPostgreSQL(db *gorm.DB) repositories.AuditRepository {
	return &AuditPostgreSQL{db: db}
}

func (a *AuditPostgreSQL) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

// List applies the audit filters: exact matches on table and action,
// substring match on username, timestamp range, and a free-text search
// across serialized values, username, table and action.
func (a *AuditPostgreSQL) List(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditLogEntry, int64, error) {
	query := a.db.WithContext(ctx).
		Model(&models.AuditLogEntry{}).
		Joins("JOIN users u ON audit_log.user_id = u.id")

	if filters.TableName != "" {
		query = query.Where("audit_log.table_name = ?", filters.TableName)
	}
	if filters.Action != nil {
		query = query.Where("audit_log.action = ?", *filters.Action)
	}
	if filters.Username != "" {
		query = query.Where("u.username ILIKE ?", fmt.Sprintf("%%%s%%", filters.Username))
	}
	if filters.DateFrom != nil {
		query = query.Where("audit_log.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("audit_log.created_at <= ?", *filters.DateTo)
	}
	if filters.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", filters.Search)
		query = query.Where(
			"audit_log.old_value::text ILIKE ? OR audit_log.new_value::text ILIKE ? OR u.username ILIKE ? OR audit_log.table_name ILIKE ? OR audit_log.action ILIKE ?",
			pattern, pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var entries []*models.AuditLogEntry
	err := query.
		Preload("User").
		Order("audit_log.created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
