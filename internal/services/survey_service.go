package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moh-surveys/survey-service/internal/events"
	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/validator"
)

type surveyService struct {
	repo      repositories.Repository
	scope     ScopeService
	audit     AuditService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSurveyService(repo repositories.Repository, scope ScopeService, audit AuditService, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) SurveyService {
	return &surveyService{
		repo:      repo,
		scope:     scope,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *surveyService) Create(ctx context.Context, req *CreateSurveyRequest, actorID uint) (*SurveyResponse, error) {
	s.logger.Info("Creating survey", "actor_id", actorID, "name", req.Name, "field_count", len(req.Fields))

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, 0, "create"); err != nil {
		return nil, err
	}

	fields := make([]models.SurveyField, 0, len(req.Fields))
	for i, fr := range req.Fields {
		field, err := s.buildField(&fr, i)
		if err != nil {
			return nil, err
		}
		fields = append(fields, *field)
	}

	if err := s.checkGovernorates(ctx, req.GovernorateIDs); err != nil {
		return nil, err
	}

	survey := &models.Survey{
		Name:      req.Name,
		IsActive:  req.IsActive,
		CreatedBy: actorID,
		Fields:    fields,
	}

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Survey().Create(ctx, survey); err != nil {
			return fmt.Errorf("failed to create survey: %w", err)
		}
		if len(req.GovernorateIDs) > 0 {
			if err := tx.Survey().ReplaceGovernorateLinks(ctx, survey.ID, req.GovernorateIDs); err != nil {
				return fmt.Errorf("failed to link governorates: %w", err)
			}
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditInsert, "surveys", &survey.ID, nil, map[string]interface{}{
			"name":            survey.Name,
			"is_active":       survey.IsActive,
			"fields":          fieldAuditView(fields),
			"governorate_ids": req.GovernorateIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	if survey.IsActive {
		s.publish(ctx, events.NewSurveyPublishedEvent(survey.ID, survey.Name, req.GovernorateIDs, actorID))
	}

	s.logger.Info("Survey created", "survey_id", survey.ID)
	return s.GetByID(ctx, survey.ID, actorID)
}

func (s *surveyService) Update(ctx context.Context, id uint, req *UpdateSurveyRequest, actorID uint) (*SurveyResponse, error) {
	s.logger.Info("Updating survey", "survey_id", id, "actor_id", actorID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, id, "update"); err != nil {
		return nil, err
	}

	survey, err := s.getSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	wasActive := survey.IsActive
	old := map[string]interface{}{"name": survey.Name, "is_active": survey.IsActive}

	if req.Name != nil {
		survey.Name = *req.Name
	}
	if req.IsActive != nil {
		survey.IsActive = *req.IsActive
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Survey().Update(ctx, survey); err != nil {
			return fmt.Errorf("failed to update survey: %w", err)
		}
		if req.GovernorateIDs != nil {
			if err := s.checkGovernorates(ctx, req.GovernorateIDs); err != nil {
				return err
			}
			if err := tx.Survey().ReplaceGovernorateLinks(ctx, id, req.GovernorateIDs); err != nil {
				return fmt.Errorf("failed to replace governorate links: %w", err)
			}
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "surveys", &id, old, map[string]interface{}{
			"name":      survey.Name,
			"is_active": survey.IsActive,
		})
	})
	if err != nil {
		return nil, err
	}

	if !wasActive && survey.IsActive {
		s.publish(ctx, events.NewSurveyPublishedEvent(id, survey.Name, req.GovernorateIDs, actorID))
	}

	return s.GetByID(ctx, id, actorID)
}

// ===== FIELD RECONCILIATION =====

// ReconcileFields makes the survey's stored field set match the submitted
// list in one transaction. Entries carrying an ID update that field in
// place, entries without one become new fields, and stored fields missing
// from the list are deleted. The position in the list becomes FieldOrder
// for updates and inserts alike, so reordering is just resubmitting in the
// new order.
func (s *surveyService) ReconcileFields(ctx context.Context, surveyID uint, req *ReconcileFieldsRequest, actorID uint) (*SurveyResponse, error) {
	s.logger.Info("Reconciling survey fields", "survey_id", surveyID, "actor_id", actorID, "target_count", len(req.Fields), "force", req.Force)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, actorID, surveyID, "reconcile"); err != nil {
		return nil, err
	}

	survey, err := s.getSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.Survey().ListFields(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current fields: %w", err)
	}
	currentByID := make(map[uint]*models.SurveyField, len(current))
	for _, f := range current {
		currentByID[f.ID] = f
	}

	// Partition the target list. Position is the new display order.
	var updates, inserts []*models.SurveyField
	targetIDs := make(map[uint]bool, len(req.Fields))
	for i, fr := range req.Fields {
		field, err := s.buildField(&fr, i)
		if err != nil {
			return nil, err
		}
		if fr.ID != nil {
			if _, ok := currentByID[*fr.ID]; !ok {
				return nil, ErrFieldNotFound
			}
			field.ID = *fr.ID
			field.SurveyID = surveyID
			targetIDs[*fr.ID] = true
			updates = append(updates, field)
		} else {
			field.SurveyID = surveyID
			inserts = append(inserts, field)
		}
	}

	var toDelete []uint
	for _, f := range current {
		if !targetIDs[f.ID] {
			toDelete = append(toDelete, f.ID)
		}
	}

	// Deleting a field destroys its answers, so fields that already have
	// submitted answers are protected unless the caller forces it.
	answered, err := s.repo.Survey().FieldsWithAnswers(ctx, toDelete)
	if err != nil {
		return nil, fmt.Errorf("failed to check answered fields: %w", err)
	}
	if len(answered) > 0 && !req.Force {
		return nil, ErrFieldInUse
	}

	old := map[string]interface{}{"fields": fieldPtrAuditView(current)}

	var forced bool
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if len(toDelete) > 0 {
			// An answer submitted after the pre-check above must not be
			// destroyed without Force, so the check runs again under the
			// transaction right before the delete.
			answered, err := tx.Survey().FieldsWithAnswers(ctx, toDelete)
			if err != nil {
				return fmt.Errorf("failed to check answered fields: %w", err)
			}
			if len(answered) > 0 {
				if !req.Force {
					return ErrFieldInUse
				}
				if err := tx.Survey().DeleteFieldAnswers(ctx, answered); err != nil {
					return fmt.Errorf("failed to delete field answers: %w", err)
				}
				forced = true
			}
			if err := tx.Survey().DeleteFields(ctx, toDelete); err != nil {
				return fmt.Errorf("failed to delete fields: %w", err)
			}
		}
		for _, field := range updates {
			if err := tx.Survey().UpdateField(ctx, field); err != nil {
				return fmt.Errorf("failed to update field %d: %w", field.ID, err)
			}
		}
		for _, field := range inserts {
			if err := tx.Survey().CreateField(ctx, field); err != nil {
				return fmt.Errorf("failed to create field: %w", err)
			}
		}

		if req.Name != nil || req.IsActive != nil {
			if req.Name != nil {
				survey.Name = *req.Name
			}
			if req.IsActive != nil {
				survey.IsActive = *req.IsActive
			}
			if err := tx.Survey().Update(ctx, survey); err != nil {
				return fmt.Errorf("failed to update survey: %w", err)
			}
		}

		target := append(append([]*models.SurveyField{}, updates...), inserts...)
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "survey_fields", &surveyID, old, map[string]interface{}{
			"fields":      fieldPtrAuditView(target),
			"deleted_ids": toDelete,
			"forced":      forced,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Survey fields reconciled",
		"survey_id", surveyID,
		"updated", len(updates),
		"inserted", len(inserts),
		"deleted", len(toDelete))
	return s.GetByID(ctx, surveyID, actorID)
}

// ===== DELETION =====

// Delete removes the survey and everything hanging off it. Order matters
// for the foreign keys: response details, responses, fields, governorate
// links, then the survey row itself.
func (s *surveyService) Delete(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deleting survey", "survey_id", id, "actor_id", actorID)

	if err := s.requireAdmin(ctx, actorID, id, "delete"); err != nil {
		return err
	}

	survey, err := s.getSurvey(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Survey().DeleteResponseData(ctx, id); err != nil {
			return fmt.Errorf("failed to delete response data: %w", err)
		}

		fieldIDs, err := tx.Survey().GetFieldIDs(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list field ids: %w", err)
		}
		if len(fieldIDs) > 0 {
			if err := tx.Survey().DeleteFields(ctx, fieldIDs); err != nil {
				return fmt.Errorf("failed to delete fields: %w", err)
			}
		}

		if err := tx.Survey().DeleteSurveyRow(ctx, id); err != nil {
			return fmt.Errorf("failed to delete survey: %w", err)
		}

		return s.audit.Record(ctx, tx, actorID, models.AuditDelete, "surveys", &id, map[string]interface{}{
			"name":      survey.Name,
			"is_active": survey.IsActive,
		}, nil)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewSurveyDeletedEvent(id, survey.Name, actorID))
	s.logger.Info("Survey deleted", "survey_id", id)
	return nil
}

// ===== READ OPERATIONS =====

func (s *surveyService) GetByID(ctx context.Context, id uint, userID uint) (*SurveyResponse, error) {
	canAccess, err := s.scope.CanAccessSurvey(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "survey", "read", "survey not visible in user scope")
	}

	survey, err := s.repo.Survey().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}

	if stats, err := s.repo.Survey().GetStats(ctx, id); err == nil {
		survey.FieldCount = stats.FieldCount
		survey.ResponseCount = stats.TotalResponses
	}

	return &SurveyResponse{Survey: survey}, nil
}

func (s *surveyService) List(ctx context.Context, filters repositories.SurveyFilters, userID uint) (*SurveyListResponse, error) {
	scope, err := s.scope.ResolveScope(ctx, userID)
	if err != nil {
		return nil, err
	}

	if scope.IsAdmin() {
		if filters.Limit <= 0 || filters.Limit > 200 {
			filters.Limit = 50
		}
		surveys, total, err := s.repo.Survey().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list surveys: %w", err)
		}
		return &SurveyListResponse{
			Surveys: surveys,
			Total:   total,
			Limit:   filters.Limit,
			Offset:  filters.Offset,
		}, nil
	}

	activeOnly := filters.IsActive != nil && *filters.IsActive
	visible, err := s.scope.ListVisibleSurveys(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	return &SurveyListResponse{
		Surveys: visible,
		Total:   int64(len(visible)),
		Limit:   len(visible),
	}, nil
}

func (s *surveyService) ListFields(ctx context.Context, surveyID uint, userID uint) ([]*models.SurveyField, error) {
	canAccess, err := s.scope.CanAccessSurvey(ctx, userID, surveyID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, surveyID, "survey", "read", "survey not visible in user scope")
	}

	if _, err := s.getSurvey(ctx, surveyID); err != nil {
		return nil, err
	}

	fields, err := s.repo.Survey().ListFields(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return fields, nil
}

func (s *surveyService) SetActive(ctx context.Context, id uint, active bool, actorID uint) (*SurveyResponse, error) {
	return s.Update(ctx, id, &UpdateSurveyRequest{IsActive: &active}, actorID)
}

// ===== HELPERS =====

func (s *surveyService) getSurvey(ctx context.Context, id uint) (*models.Survey, error) {
	survey, err := s.repo.Survey().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	return survey, nil
}

// buildField turns a request entry into a model row at the given position.
// Non-dropdown fields get their options stripped rather than rejected.
func (s *surveyService) buildField(fr *SurveyFieldRequest, position int) (*models.SurveyField, error) {
	field := &models.SurveyField{
		Label:      fr.Label,
		Type:       fr.Type,
		IsRequired: fr.IsRequired,
		FieldOrder: position,
	}
	if fr.Type == models.FieldDropdown {
		field.Options = fr.Options
	}
	if err := s.validator.Field().ValidateDefinition(field); err != nil {
		return nil, NewValidationError("fields", err.Error(), fr.Label)
	}
	return field, nil
}

func (s *surveyService) checkGovernorates(ctx context.Context, governorateIDs []uint) error {
	for _, id := range governorateIDs {
		if _, err := s.repo.Org().GetGovernorate(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrGovernorateNotFound
			}
			return fmt.Errorf("failed to load governorate %d: %w", id, err)
		}
	}
	return nil
}

func (s *surveyService) requireAdmin(ctx context.Context, actorID, surveyID uint, action string) error {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return NewPermissionError(actorID, surveyID, "survey", action, "admin role required")
	}
	return nil
}

// publish sends a domain event. Event delivery is advisory; a broker outage
// must not fail the request that already committed.
func (s *surveyService) publish(ctx context.Context, event *events.SurveyEvent) {
	if err := s.publisher.PublishSurveyEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish survey event", "event_type", event.Type, "error", err)
	}
}

func fieldAuditView(fields []models.SurveyField) []map[string]interface{} {
	views := make([]map[string]interface{}, 0, len(fields))
	for i := range fields {
		views = append(views, singleFieldAuditView(&fields[i]))
	}
	return views
}

func fieldPtrAuditView(fields []*models.SurveyField) []map[string]interface{} {
	views := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		views = append(views, singleFieldAuditView(f))
	}
	return views
}

func singleFieldAuditView(f *models.SurveyField) map[string]interface{} {
	view := map[string]interface{}{
		"label":       f.Label,
		"type":        f.Type,
		"is_required": f.IsRequired,
		"field_order": f.FieldOrder,
	}
	if f.ID != 0 {
		view["id"] = f.ID
	}
	if len(f.Options) > 0 {
		view["options"] = []string(f.Options)
	}
	return view
}
