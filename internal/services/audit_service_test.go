package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
)

func TestAuditService_Record(t *testing.T) {
	t.Run("wraps values in the change envelope", func(t *testing.T) {
		repo := newMockRepository()
		service := NewAuditService(repo, testLogger())

		var captured *models.AuditLogEntry
		repo.audit.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.AuditLogEntry)
		}).Return(nil)

		recordID := uint(42)
		err := service.Record(context.Background(), repo, 1, models.AuditUpdate, "surveys", &recordID,
			map[string]interface{}{"name": "Before"},
			map[string]interface{}{"name": "After"},
		)

		assert.NoError(t, err)
		assert.NotNil(t, captured)
		assert.Equal(t, uint(1), captured.UserID)
		assert.Equal(t, models.AuditUpdate, captured.Action)
		assert.Equal(t, "surveys", captured.Entity)
		assert.Equal(t, "audit_log", captured.TableName())
		assert.Equal(t, uint(42), *captured.RecordID)

		var change AuditChange
		assert.NoError(t, json.Unmarshal(captured.NewValue, &change))
		assert.Equal(t, "After", change.Fields["name"])
		assert.False(t, change.At.IsZero())
	})

	t.Run("nil values stay null", func(t *testing.T) {
		repo := newMockRepository()
		service := NewAuditService(repo, testLogger())

		var captured *models.AuditLogEntry
		repo.audit.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.AuditLogEntry)
		}).Return(nil)

		recordID := uint(7)
		err := service.Record(context.Background(), repo, 1, models.AuditInsert, "governorates", &recordID, nil, &models.Governorate{ID: 7, Name: "Cairo"})

		assert.NoError(t, err)
		assert.Nil(t, captured.OldValue)
		assert.NotNil(t, captured.NewValue)
	})

	t.Run("struct values flatten to field maps", func(t *testing.T) {
		repo := newMockRepository()
		service := NewAuditService(repo, testLogger())

		var captured *models.AuditLogEntry
		repo.audit.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.AuditLogEntry)
		}).Return(nil)

		recordID := uint(7)
		governorate := &models.Governorate{ID: 7, Name: "Cairo"}
		err := service.Record(context.Background(), repo, 1, models.AuditDelete, "governorates", &recordID, governorate, nil)

		assert.NoError(t, err)

		var change AuditChange
		assert.NoError(t, json.Unmarshal(captured.OldValue, &change))
		assert.Equal(t, "Cairo", change.Fields["name"])
	})
}

func TestAuditService_Query(t *testing.T) {
	t.Run("admin reads with clamped page size", func(t *testing.T) {
		repo := newMockRepository()
		service := NewAuditService(repo, testLogger())

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.audit.On("List", mock.Anything, mock.MatchedBy(func(f repositories.AuditFilters) bool {
			return f.Limit == 50
		})).Return([]*models.AuditLogEntry{{ID: 1}}, int64(1), nil)

		result, err := service.Query(context.Background(), repositories.AuditFilters{Limit: 500}, 1)

		assert.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
		assert.Equal(t, 50, result.Limit)
	})

	t.Run("explicit limit within range is kept", func(t *testing.T) {
		repo := newMockRepository()
		service := NewAuditService(repo, testLogger())

		repo.user.On("GetByID", mock.Anything, uint(1)).Return(adminUser(1), nil)
		repo.audit.On("List", mock.Anything, mock.MatchedBy(func(f repositories.AuditFilters) bool {
			return f.Limit == 25
		})).Return([]*models.AuditLogEntry{}, int64(0), nil)

		_, err := service.Query(context.Background(), repositories.AuditFilters{Limit: 25}, 1)

		assert.NoError(t, err)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		repo := newMockRepository()
		service := NewAuditService(repo, testLogger())

		repo.user.On("GetByID", mock.Anything, uint(2)).Return(govAdminUser(2), nil)

		_, err := service.Query(context.Background(), repositories.AuditFilters{}, 2)

		assert.True(t, IsUnauthorized(err))
		repo.audit.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}
