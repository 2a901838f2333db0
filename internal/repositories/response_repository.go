package repositories

import (
	"context"
	"time"

	"github.com/moh-surveys/survey-service/internal/models"
)

// ResponseRepository covers response records and their per-field answers.
type ResponseRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uint) (*models.Response, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Response, error) // Include survey, user, health admin
	List(ctx context.Context, filters ResponseFilters) ([]*models.Response, int64, error)

	// Answer management
	CreateDetails(ctx context.Context, details []*models.ResponseDetail) error
	GetDetails(ctx context.Context, responseID uint) ([]*models.ResponseDetail, error)
	GetDetail(ctx context.Context, detailID uint) (*models.ResponseDetail, error)
	UpdateDetailValue(ctx context.Context, detailID uint, value string) error

	// Per-day completion gate. Must be called inside the submit transaction;
	// the implementation locks matching rows so two concurrent completions
	// for the same (user, survey, day) cannot both pass.
	HasCompletedOn(ctx context.Context, userID, surveyID uint, day time.Time) (bool, error)
}
