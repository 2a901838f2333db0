package postgres

import (
	"context"

	"github.com/moh-surveys/survey-service/internal/repositories"
	"gorm.io/gorm"
)

type repositoryManager struct {
	db       *gorm.DB
	org      repositories.OrgRepository
	user     repositories.UserRepository
	survey   repositories.SurveyRepository
	response repositories.ResponseRepository
	audit    repositories.AuditRepository
}

// NewRepository builds the PostgreSQL-backed repository set on top of a
// shared gorm handle.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repositoryManager{
		db:       db,
		org:      NewOrgPostgreSQL(db),
		user:     NewUserPostgreSQL(db),
		survey:   NewSurveyPostgreSQL(db),
		response: NewResponsePostgreSQL(db),
		audit:    NewAuditPostgreSQL(db),
	}
}

func (r *repositoryManager) Org() repositories.OrgRepository           { return r.org }
func (r *repositoryManager) User() repositories.UserRepository         { return r.user }
func (r *repositoryManager) Survey() repositories.SurveyRepository     { return r.survey }
func (r *repositoryManager) Response() repositories.ResponseRepository { return r.response }
func (r *repositoryManager) Audit() repositories.AuditRepository       { return r.audit }

// WithTx runs fn against a repository set bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *repositoryManager) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
