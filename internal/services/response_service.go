package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moh-surveys/survey-service/internal/events"
	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/validator"
)

type responseService struct {
	repo      repositories.Repository
	scope     ScopeService
	audit     AuditService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewResponseService(repo repositories.Repository, scope ScopeService, audit AuditService, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) ResponseService {
	return &responseService{
		repo:      repo,
		scope:     scope,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ===== SUBMISSION =====

func (s *responseService) Submit(ctx context.Context, req *SubmitResponseRequest, userID uint) (*ResponseDetailsResponse, error) {
	s.logger.Info("Submitting response", "survey_id", req.SurveyID, "user_id", userID, "completed", req.Completed, "answer_count", len(req.Answers))

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	actorScope, err := s.scope.ResolveScope(ctx, userID)
	if err != nil {
		return nil, err
	}
	if actorScope.HealthAdminID == nil {
		return nil, ErrEmployeeWithoutScope
	}

	canAccess, err := s.scope.CanAccessSurvey(ctx, userID, req.SurveyID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, req.SurveyID, "survey", "submit", "survey not visible in user scope")
	}

	survey, err := s.repo.Survey().GetByID(ctx, req.SurveyID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	if !survey.IsActive {
		return nil, ErrSurveyInactive
	}

	fields, err := s.repo.Survey().ListFields(ctx, req.SurveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey fields: %w", err)
	}
	fieldByID := make(map[uint]*models.SurveyField, len(fields))
	for _, f := range fields {
		fieldByID[f.ID] = f
	}

	answers := make(map[uint]string, len(req.Answers))
	for _, a := range req.Answers {
		field, ok := fieldByID[a.FieldID]
		if !ok {
			return nil, ErrAnswerFieldMismatch
		}
		if err := s.validator.Field().ValidateAnswer(field, a.Value); err != nil {
			return nil, NewValidationError("answers", err.Error(), a.FieldID)
		}
		answers[a.FieldID] = a.Value
	}

	if req.Completed {
		if missing := missingRequiredLabels(fields, answers); len(missing) > 0 {
			return nil, &MissingRequiredFieldsError{SurveyID: req.SurveyID, Labels: missing}
		}
	}

	response := &models.Response{
		SurveyID:      req.SurveyID,
		UserID:        userID,
		HealthAdminID: *actorScope.HealthAdminID,
		IsCompleted:   req.Completed,
		SubmittedAt:   time.Now().UTC(),
	}

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if req.Completed {
			done, err := tx.Response().HasCompletedOn(ctx, userID, req.SurveyID, response.SubmittedAt)
			if err != nil {
				return fmt.Errorf("failed to check daily completion: %w", err)
			}
			if done {
				return ErrAlreadyCompletedToday
			}
		}

		// The locked read above cannot see a row that does not exist yet, so
		// two concurrent first completions both pass it. The partial unique
		// index on completed responses breaks that tie.
		if err := tx.Response().Create(ctx, response); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyCompletedToday
			}
			return fmt.Errorf("failed to create response: %w", err)
		}

		details := make([]*models.ResponseDetail, 0, len(req.Answers))
		for _, a := range req.Answers {
			details = append(details, &models.ResponseDetail{
				ResponseID:  response.ID,
				FieldID:     a.FieldID,
				AnswerValue: a.Value,
			})
		}
		if err := tx.Response().CreateDetails(ctx, details); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}

		return s.audit.Record(ctx, tx, userID, models.AuditInsert, "responses", &response.ID, nil, map[string]interface{}{
			"survey_id":       response.SurveyID,
			"health_admin_id": response.HealthAdminID,
			"is_completed":    response.IsCompleted,
			"answer_count":    len(details),
		})
	})
	if err != nil {
		return nil, err
	}

	if req.Completed {
		s.publish(ctx, events.NewResponseCompletedEvent(
			response.ID, response.SurveyID, userID, response.HealthAdminID,
			response.SubmittedAt, len(req.Answers)))
	}

	s.logger.Info("Response submitted", "response_id", response.ID, "completed", req.Completed)
	return s.GetDetails(ctx, response.ID, userID)
}

// ===== ANSWER CORRECTION =====

// UpdateAnswer overwrites one stored answer. Allowed for the submitter, a
// governorate admin whose governorate covers the response's health
// administration, or a system admin. The old and new values land in exactly
// one audit entry committed with the change.
func (s *responseService) UpdateAnswer(ctx context.Context, detailID uint, req *UpdateAnswerRequest, actorID uint) (*models.ResponseDetail, error) {
	s.logger.Info("Updating answer", "detail_id", detailID, "actor_id", actorID)

	detail, err := s.repo.Response().GetDetail(ctx, detailID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("failed to load answer: %w", err)
	}

	response, err := s.repo.Response().GetByIDWithDetails(ctx, detail.ResponseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	if err := s.checkResponseAccess(ctx, response, actorID, "correct"); err != nil {
		return nil, err
	}

	if detail.Field.ID == 0 {
		return nil, ErrFieldNotFound
	}
	if err := s.validator.Field().ValidateAnswer(&detail.Field, req.Value); err != nil {
		return nil, NewValidationError("value", err.Error(), detail.FieldID)
	}

	oldValue := detail.AnswerValue

	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Response().UpdateDetailValue(ctx, detailID, req.Value); err != nil {
			return fmt.Errorf("failed to update answer: %w", err)
		}
		return s.audit.Record(ctx, tx, actorID, models.AuditUpdate, "response_details", &detailID,
			map[string]interface{}{"answer_value": oldValue},
			map[string]interface{}{"answer_value": req.Value})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewAnswerCorrectedEvent(
		response.ID, response.SurveyID, detail.FieldID, actorID, oldValue, req.Value))

	detail.AnswerValue = req.Value
	return detail, nil
}

// ===== READ OPERATIONS =====

func (s *responseService) List(ctx context.Context, filters repositories.ResponseFilters, userID uint) (*ResponseListResponse, error) {
	actorScope, err := s.scope.ResolveScope(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch actorScope.Role {
	case models.RoleAdmin:
		// unrestricted
	case models.RoleGovernorateAdmin:
		filters.GovernorateID = actorScope.GovernorateID
	default:
		filters.UserID = &userID
	}

	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}

	responses, total, err := s.repo.Response().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	return &ResponseListResponse{
		Responses: responses,
		Total:     total,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	}, nil
}

func (s *responseService) GetDetails(ctx context.Context, responseID uint, userID uint) (*ResponseDetailsResponse, error) {
	response, err := s.repo.Response().GetByIDWithDetails(ctx, responseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	if err := s.checkResponseAccess(ctx, response, userID, "read"); err != nil {
		return nil, err
	}

	details, err := s.repo.Response().GetDetails(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	return &ResponseDetailsResponse{
		Response: response,
		Details:  details,
	}, nil
}

// ===== HELPERS =====

// checkResponseAccess implements the read/correct permission: submitter,
// governorate admin covering the response's health administration, or admin.
func (s *responseService) checkResponseAccess(ctx context.Context, response *models.Response, actorID uint, action string) error {
	if response.UserID == actorID {
		return nil
	}

	actorScope, err := s.scope.ResolveScope(ctx, actorID)
	if err != nil {
		return err
	}
	if actorScope.IsAdmin() {
		return nil
	}

	if actorScope.Role == models.RoleGovernorateAdmin && actorScope.GovernorateID != nil {
		healthAdmin, err := s.repo.Org().GetHealthAdmin(ctx, response.HealthAdminID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrHealthAdminNotFound
			}
			return fmt.Errorf("failed to load health administration: %w", err)
		}
		if healthAdmin.GovernorateID == *actorScope.GovernorateID {
			return nil
		}
	}

	return NewPermissionError(actorID, response.ID, "response", action, "response outside actor scope")
}

func missingRequiredLabels(fields []*models.SurveyField, answers map[uint]string) []string {
	var missing []string
	for _, f := range fields {
		if !f.IsRequired {
			continue
		}
		if strings.TrimSpace(answers[f.ID]) == "" {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

func (s *responseService) publish(ctx context.Context, event *events.SurveyEvent) {
	if err := s.publisher.PublishSurveyEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish response event", "event_type", event.Type, "error", err)
	}
}
