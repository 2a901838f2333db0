package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/moh-surveys/survey-service/internal/auth"
	"github.com/moh-surveys/survey-service/internal/services"
	"github.com/moh-surveys/survey-service/internal/utils"
)

type HandlerManager struct {
	orgHandler      *OrgHandler
	userHandler     *UserHandler
	surveyHandler   *SurveyHandler
	responseHandler *ResponseHandler
	auditHandler    *AuditHandler
	exportHandler   *ExportHandler
	tokens          *auth.TokenService
	users           services.UserService
}

type Services struct {
	Org      services.OrgService
	User     services.UserService
	Scope    services.ScopeService
	Survey   services.SurveyService
	Response services.ResponseService
	Audit    services.AuditService
	Export   services.ExportService
}

func NewHandlerManager(svc Services, tokens *auth.TokenService, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		orgHandler:      NewOrgHandler(svc.Org, logger),
		userHandler:     NewUserHandler(svc.User, svc.Scope, tokens, logger),
		surveyHandler:   NewSurveyHandler(svc.Survey, svc.Scope, logger),
		responseHandler: NewResponseHandler(svc.Response, logger),
		auditHandler:    NewAuditHandler(svc.Audit, svc.Export, logger),
		exportHandler:   NewExportHandler(svc.Export, logger),
		tokens:          tokens,
		users:           svc.User,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "survey-service",
		})
	})

	// API v1 routes
	root := router.Group("/api/v1")

	// Authentication
	root.POST("/login", hm.userHandler.Login)

	// Everything else requires a valid bearer token.
	v1 := root.Group("", AuthMiddleware(hm.tokens, hm.users))
	{
		// Organizational hierarchy
		governorates := v1.Group("/governorates")
		{
			governorates.POST("", hm.orgHandler.CreateGovernorate)
			governorates.GET("", hm.orgHandler.ListGovernorates)
			governorates.GET("/:id", hm.orgHandler.GetGovernorate)
			governorates.PUT("/:id", hm.orgHandler.UpdateGovernorate)
			governorates.DELETE("/:id", hm.orgHandler.DeleteGovernorate)
		}

		healthAdmins := v1.Group("/health-administrations")
		{
			healthAdmins.POST("", hm.orgHandler.CreateHealthAdmin)
			healthAdmins.GET("", hm.orgHandler.ListHealthAdmins)
			healthAdmins.GET("/:id", hm.orgHandler.GetHealthAdmin)
			healthAdmins.PUT("/:id", hm.orgHandler.UpdateHealthAdmin)
			healthAdmins.DELETE("/:id", hm.orgHandler.DeleteHealthAdmin)
		}

		// Users, scope and grants
		users := v1.Group("/users")
		{
			users.POST("", hm.userHandler.CreateUser)
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/me/scope", hm.userHandler.GetScope)
			users.GET("/:id", hm.userHandler.GetUser)
			users.PUT("/:id", hm.userHandler.UpdateUser)
			users.DELETE("/:id", hm.userHandler.DeleteUser)
			users.PUT("/:id/grants", hm.userHandler.SetGrants)
			users.GET("/:id/grants", hm.userHandler.GetGrants)
		}

		// Surveys and their fields
		surveys := v1.Group("/surveys")
		{
			surveys.POST("", hm.surveyHandler.CreateSurvey)
			surveys.GET("", hm.surveyHandler.ListSurveys)
			surveys.GET("/visible", hm.surveyHandler.ListVisible)
			surveys.GET("/:id", hm.surveyHandler.GetSurvey)
			surveys.PUT("/:id", hm.surveyHandler.UpdateSurvey)
			surveys.DELETE("/:id", hm.surveyHandler.DeleteSurvey)
			surveys.GET("/:id/fields", hm.surveyHandler.ListFields)
			surveys.PUT("/:id/reconcile", hm.surveyHandler.ReconcileFields)
			surveys.PUT("/:id/active", hm.surveyHandler.SetActive)
			surveys.GET("/:id/export", hm.exportHandler.ExportResponses)
		}

		// Responses and answers
		responses := v1.Group("/responses")
		{
			responses.POST("", hm.responseHandler.SubmitResponse)
			responses.GET("", hm.responseHandler.ListResponses)
			responses.GET("/:id/details", hm.responseHandler.GetResponseDetails)
			responses.PUT("/details/:detail_id", hm.responseHandler.UpdateAnswer)
		}

		// Audit trail
		auditLogs := v1.Group("/audit-logs")
		{
			auditLogs.GET("", hm.auditHandler.QueryAuditLog)
			auditLogs.GET("/export", hm.auditHandler.ExportAuditLog)
		}
	}
}
