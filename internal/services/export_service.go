package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	scope  ScopeService
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, scope ScopeService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		scope:  scope,
		logger: logger,
	}
}

// ===== RESPONSE EXPORT =====

// ExportResponses renders a survey's responses as a table: one row per
// response, one column per field in display order, answers matched by field
// id. The caller only gets responses their scope allows.
func (s *exportService) ExportResponses(ctx context.Context, surveyID uint, format ExportFormat, userID uint) (*ExportResult, error) {
	s.logger.Info("Exporting responses", "survey_id", surveyID, "format", format, "user_id", userID)

	canAccess, err := s.scope.CanAccessSurvey(ctx, userID, surveyID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, surveyID, "survey", "export", "survey not visible in user scope")
	}

	survey, err := s.repo.Survey().GetByID(ctx, surveyID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}

	fields, err := s.repo.Survey().ListFields(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey fields: %w", err)
	}

	filters := repositories.ResponseFilters{SurveyID: &surveyID}
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

	responses, _, err := s.repo.Response().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	headers := []string{"Response ID", "Submitted At", "Username", "Health Administration", "Completed"}
	for _, f := range fields {
		headers = append(headers, f.Label)
	}

	rows := make([][]string, 0, len(responses))
	for _, resp := range responses {
		details, err := s.repo.Response().GetDetails(ctx, resp.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load answers for response %d: %w", resp.ID, err)
		}
		byField := make(map[uint]string, len(details))
		for _, d := range details {
			byField[d.FieldID] = d.AnswerValue
		}

		row := []string{
			fmt.Sprintf("%d", resp.ID),
			resp.SubmittedAt.Format(time.RFC3339),
			resp.User.Username,
			resp.HealthAdmin.Name,
			fmt.Sprintf("%t", resp.IsCompleted),
		}
		for _, f := range fields {
			row = append(row, byField[f.ID])
		}
		rows = append(rows, row)
	}

	baseName := fmt.Sprintf("survey_%d_responses_%s", surveyID, time.Now().UTC().Format("20060102"))
	return s.render(format, sanitizeSheetName(survey.Name), baseName, headers, rows)
}

// ===== AUDIT EXPORT =====

func (s *exportService) ExportAuditLog(ctx context.Context, filters repositories.AuditFilters, format ExportFormat, actorID uint) (*ExportResult, error) {
	s.logger.Info("Exporting audit log", "format", format, "actor_id", actorID)

	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, NewPermissionError(actorID, 0, "audit_log", "export", "admin role required")
	}

	// Exports are unpaginated regardless of what the filter carries.
	filters.Limit = 0
	filters.Offset = 0

	entries, _, err := s.repo.Audit().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit entries: %w", err)
	}

	headers := []string{"ID", "Timestamp", "Username", "Action", "Table", "Record ID", "Old Value", "New Value"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		recordID := ""
		if e.RecordID != nil {
			recordID = fmt.Sprintf("%d", *e.RecordID)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			e.CreatedAt.Format(time.RFC3339),
			e.User.Username,
			string(e.Action),
			e.Entity,
			recordID,
			string(e.OldValue),
			string(e.NewValue),
		})
	}

	baseName := fmt.Sprintf("audit_log_%s", time.Now().UTC().Format("20060102"))
	return s.render(format, "Audit Log", baseName, headers, rows)
}

// ===== RENDERING =====

func (s *exportService) render(format ExportFormat, sheetName, baseName string, headers []string, rows [][]string) (*ExportResult, error) {
	switch format {
	case ExportCSV:
		data, err := renderCSV(headers, rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    baseName + ".csv",
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportXLSX:
		data, err := renderXLSX(sheetName, headers, rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    baseName + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, NewValidationError("format", "unsupported export format", format)
	}
}

func renderCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return []byte(buf.String()), nil
}

func renderXLSX(sheetName string, headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute data cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeSheetName keeps Excel happy: 31 chars max, no special characters.
func sanitizeSheetName(name string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")", ":", "-")
	name = replacer.Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	if strings.TrimSpace(name) == "" {
		name = "Responses"
	}
	return name
}
