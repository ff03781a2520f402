package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/arnavshah/restaurant-scheduler-api/internal/logging"
)

// NewRouter wires every route onto a fresh gin engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(logging.Middleware(h.Logger), gin.Recovery())

	r.GET("/", h.Index)
	r.GET("/healthz", h.Health)
	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/businesses", h.CreateBusiness)
		admin.GET("/businesses", h.ListBusinesses)
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Scheduler Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
		api.GET("/notifications/schedule/:draftId", h.NotificationStatus)
		api.POST("/notifications/schedule/:draftId/retry", h.RetryNotifications)
	}

	auto := api.Group("/auto-schedule/:businessId")
	auto.Use(h.BusinessScope())
	{
		auto.POST("/generate", h.Generate)
		auto.GET("/drafts/:draftId", h.GetDraft)
		auto.POST("/drafts/:draftId/publish", h.PublishDraft)
		auto.POST("/drafts/:draftId/discard", h.DiscardDraft)
		auto.PUT("/drafts/:draftId/assignments", h.UpdateAssignments)
		auto.GET("/drafts/:draftId/compare/:otherId", h.CompareDrafts)
	}

	biz := api.Group("/business/:businessId")
	biz.Use(h.BusinessScope())
	{
		biz.GET("/staff", h.ListStaff)
		biz.PUT("/staff", h.PutStaff)
		biz.PUT("/shifts", h.PutShifts)
		biz.PUT("/shift-templates", h.PutShiftTemplates)
		biz.POST("/import/csv", h.ImportCSV)

		biz.GET("/constraints", h.ListConstraints)
		biz.POST("/constraints", h.CreateConstraint)
		biz.GET("/constraints/:constraintId", h.GetConstraint)
		biz.PUT("/constraints/:constraintId", h.UpdateConstraint)
		biz.DELETE("/constraints/:constraintId", h.DeleteConstraint)

		biz.POST("/validate-assignment", h.ValidateAssignment)
		biz.POST("/assignments/:assignmentId/sick", h.CallInSick)
	}

	return r
}
