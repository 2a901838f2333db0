package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/auth"
	"github.com/moh-surveys/survey-service/internal/models"
	"github.com/moh-surveys/survey-service/internal/repositories"
	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userService  services.UserService
	scopeService services.ScopeService
	tokens       *auth.TokenService
}

func NewUserHandler(userService services.UserService, scopeService services.ScopeService, tokens *auth.TokenService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:  NewBaseHandler(logger),
		userService:  userService,
		scopeService: scopeService,
		tokens:       tokens,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type setGrantsRequest struct {
	SurveyIDs []uint `json:"survey_ids"`
}

// CreateUser creates a new user with role-scoped organizational binding
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser updates a user's role, password or organizational binding
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser deletes a user
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting user", "target_user_id", id)

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUser retrieves one user
func (h *UserHandler) GetUser(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers lists users within the actor's scope
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	limit, offset := pagination(c)
	filters := repositories.UserFilters{
		Limit:  limit,
		Offset: offset,
	}
	if role := c.Query("role"); role != "" {
		userRole := models.UserRole(role)
		filters.Role = &userRole
	}
	filters.HealthAdminID = parseUintQueryPtr(c, "health_admin_id")
	filters.GovernorateID = parseUintQueryPtr(c, "governorate_id")

	users, err := h.userService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Login authenticates by username and password
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetScope returns the caller's resolved visibility scope
func (h *UserHandler) GetScope(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	scope, err := h.scopeService.ResolveScope(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scope)
}

// SetGrants replaces a user's direct survey grants
func (h *UserHandler) SetGrants(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req setGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	if err := h.scopeService.SetUserGrants(c.Request.Context(), id, req.SurveyIDs, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Survey grants replaced"})
}

// GetGrants lists a user's direct survey grants
func (h *UserHandler) GetGrants(c *gin.Context) {
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.currentUserID(c)
	if userID == 0 {
		return
	}

	surveys, err := h.scopeService.GetUserGrants(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, surveys)
}
