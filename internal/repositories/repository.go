package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates all entity repositories. WithTx runs fn against a
// repository set bound to a single transaction; any error rolls the whole
// transaction back.
type Repository interface {
	Org() OrgRepository
	User() UserRepository
	Survey() SurveyRepository
	Response() ResponseRepository
	Audit() AuditRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}

// IsNotFoundError checks if error represents a "record not found" condition
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if error represents a uniqueness violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
