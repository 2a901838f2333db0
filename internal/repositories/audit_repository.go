package repositories

import (
	"context"

	"github.com/moh-surveys/survey-service/internal/models"
)

// AuditRepository is an append-only sink. Entries are created inside the
// transaction of the mutation they record; there is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	List(ctx context.Context, filters AuditFilters) ([]*models.AuditLogEntry, int64, error)
}
