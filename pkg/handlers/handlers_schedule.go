package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

func (h *Handler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.GenerationTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.GenerationTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// ScheduleJSON runs the engine on an inline input without storing anything
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.runContext(c)
	defer cancel()
	draft, err := h.Engine.Run(ctx, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.RecordUsage(c, draft.TotalShifts, len(input.Staff))
	c.JSON(http.StatusOK, draft)
}

type generateRequest struct {
	DateRangeStart       string                       `json:"date_range_start" binding:"required"`
	DateRangeEnd         string                       `json:"date_range_end" binding:"required"`
	Constraints          []models.Constraint          `json:"constraints" binding:"omitempty,dive"`
	SpecialEvents        []models.SpecialEvent        `json:"specialEvents" binding:"omitempty,dive"`
	StaffNotes           map[string]string            `json:"staffNotes"`
	NotificationSettings *models.NotificationSettings `json:"notificationSettings"`
	Alternatives         int                          `json:"alternatives"`
}

func checkRange(start, end string) error {
	if _, err := scheduler.ParseDate(start); err != nil {
		return fmt.Errorf("%w: date_range_start: %v", scheduler.ErrInvalidInput, err)
	}
	if _, err := scheduler.ParseDate(end); err != nil {
		return fmt.Errorf("%w: date_range_end: %v", scheduler.ErrInvalidInput, err)
	}
	return nil
}

// Generate runs the engine over a business's stored data and saves the
// result as a pending draft. A failed or aborted run saves nothing.
func (h *Handler) Generate(c *gin.Context) {
	businessID := c.Param("businessId")
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkRange(req.DateRangeStart, req.DateRangeEnd); err != nil {
		h.respondError(c, err)
		return
	}

	input, err := database.LoadScheduleInput(h.DB, businessID, req.DateRangeStart, req.DateRangeEnd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if req.Constraints != nil {
		input.Constraints = req.Constraints
	}
	input.SpecialEvents = req.SpecialEvents
	input.StaffNotes = req.StaffNotes
	input.Alternatives = req.Alternatives

	ctx, cancel := h.runContext(c)
	defer cancel()
	draft, err := h.Engine.Run(ctx, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	draft.BusinessID = businessID
	draft.NotificationSettings = req.NotificationSettings
	if err := database.SaveDraft(h.DB, draft); err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("draft generated",
		zap.String("business_id", businessID),
		zap.String("draft_id", draft.ID),
		zap.Int("total_shifts", draft.TotalShifts),
		zap.Int("fully_staffed", draft.FullyStaffed))
	h.RecordUsage(c, draft.TotalShifts, len(input.Staff))
	c.JSON(http.StatusCreated, draft)
}

// GetDraft returns a stored draft
func (h *Handler) GetDraft(c *gin.Context) {
	draft, err := database.GetDraft(h.DB, c.Param("businessId"), c.Param("draftId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// PublishDraft commits a draft and notifies its staff. Notification
// problems are logged and never fail the publish.
func (h *Handler) PublishDraft(c *gin.Context) {
	draft, published, err := database.PublishDraft(h.DB, c.Param("businessId"), c.Param("draftId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	created := 0
	if published && h.Notifier != nil {
		records, err := h.Notifier.NotifyPublished(c.Request.Context(), draft)
		if err != nil {
			h.Logger.Warn("failed to notify staff", zap.String("draft_id", draft.ID), zap.Error(err))
		}
		created = len(records)
	}

	c.JSON(http.StatusOK, gin.H{
		"draft":         draft,
		"published":     published,
		"notifications": created,
	})
}

// DiscardDraft drops a pending draft
func (h *Handler) DiscardDraft(c *gin.Context) {
	draft, err := database.DiscardDraft(h.DB, c.Param("businessId"), c.Param("draftId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// CompareDrafts diffs a draft against another draft of the same business
func (h *Handler) CompareDrafts(c *gin.Context) {
	businessID := c.Param("businessId")
	current, err := database.GetDraft(h.DB, businessID, c.Param("draftId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	original, err := database.GetDraft(h.DB, businessID, c.Param("otherId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scheduler.Diff(original, current))
}

type assignmentChange struct {
	ShiftID string `json:"shift_id" binding:"required"`
	StaffID string `json:"staff_id" binding:"required"`
	Action  string `json:"action" binding:"omitempty,oneof=assign unassign"`
}

type changeResult struct {
	ShiftID    string                   `json:"shift_id"`
	StaffID    string                   `json:"staff_id"`
	Action     string                   `json:"action"`
	Validation *models.ValidationResult `json:"validation,omitempty"`
}

// UpdateAssignments applies manual edits to a draft and stores the result
// as a new pending draft whose parent is the edited one. Each assignment is
// validated against the state left by the edits before it; a change with
// validation errors rejects the whole request unless force is set.
func (h *Handler) UpdateAssignments(c *gin.Context) {
	businessID := c.Param("businessId")
	var req struct {
		Changes []assignmentChange `json:"changes" binding:"required,min=1,dive"`
		Force   bool               `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parent, err := database.GetDraft(h.DB, businessID, c.Param("draftId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if parent.Status == models.DraftDiscarded {
		h.respondError(c, fmt.Errorf("draft %s is discarded: %w", parent.ID, database.ErrConflict))
		return
	}

	base, err := database.LoadScheduleInput(h.DB, businessID, parent.DateRangeStart, parent.DateRangeEnd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	names := make(map[string]string, len(base.Staff))
	for _, s := range base.Staff {
		names[s.ID] = s.Name
	}

	child := cloneDraft(parent)
	results := make([]changeResult, 0, len(req.Changes))
	rejected := false
	for _, ch := range req.Changes {
		if ch.Action == "" {
			ch.Action = "assign"
		}
		idx := shiftIndex(child, ch.ShiftID)
		if idx < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("shift %s is not part of this draft", ch.ShiftID)})
			return
		}
		ds := &child.Shifts[idx]
		res := changeResult{ShiftID: ch.ShiftID, StaffID: ch.StaffID, Action: ch.Action}

		if ch.Action == "unassign" {
			kept := ds.Assignments[:0]
			for _, a := range ds.Assignments {
				if a.Active() && a.StaffID == ch.StaffID {
					continue
				}
				kept = append(kept, a)
			}
			ds.Assignments = kept
			results = append(results, res)
			continue
		}

		if holds(ds.Assignments, ch.StaffID) {
			results = append(results, res)
			continue
		}
		validation, err := h.Engine.ValidatePair(scheduler.DraftInput(base, child), ch.ShiftID, ch.StaffID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		res.Validation = &validation
		results = append(results, res)
		if !validation.Valid && !req.Force {
			rejected = true
			continue
		}

		confidence := validation.ConfidenceScore
		ds.Assignments = append(ds.Assignments, models.Assignment{
			ShiftID:         ch.ShiftID,
			StaffID:         ch.StaffID,
			StaffName:       names[ch.StaffID],
			Status:          models.AssignmentAssigned,
			ConfidenceScore: &confidence,
			ManualOverride:  true,
		})
	}

	if rejected {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "One or more assignments failed validation",
			"changes": results,
		})
		return
	}

	if err := h.Engine.Recount(base, child); err != nil {
		h.respondError(c, err)
		return
	}
	if err := database.SaveDraft(h.DB, child); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"draft":   child,
		"changes": results,
		"diff":    scheduler.Diff(parent, child),
	})
}

// cloneDraft copies a draft as the pending child of d. Assignment ids are
// cleared so the child's assignments get their own.
func cloneDraft(d *models.ScheduleDraft) *models.ScheduleDraft {
	child := *d
	child.ID = ""
	child.ParentID = d.ID
	child.Status = models.DraftPending
	child.AIGenerated = false
	child.CreatedAt = time.Time{}
	child.ModifiedAt = time.Time{}

	child.Shifts = make([]models.DraftShift, len(d.Shifts))
	for i, ds := range d.Shifts {
		ds.Assignments = append([]models.Assignment{}, ds.Assignments...)
		for j := range ds.Assignments {
			ds.Assignments[j].ID = ""
		}
		child.Shifts[i] = ds
	}
	child.Violations = append([]models.ConstraintViolation{}, d.Violations...)
	return &child
}

func shiftIndex(d *models.ScheduleDraft, shiftID string) int {
	for i, ds := range d.Shifts {
		if ds.Shift.ID == shiftID {
			return i
		}
	}
	return -1
}

func holds(assignments []models.Assignment, staffID string) bool {
	for _, a := range assignments {
		if a.Active() && a.StaffID == staffID {
			return true
		}
	}
	return false
}
