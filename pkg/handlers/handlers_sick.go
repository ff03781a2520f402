package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

// CallInSick marks a published assignment called_in_sick and searches for
// replacements among the remaining staff. Replacements are stored with the
// assignment's draft, the draft is recounted so its summary shows any
// shortfall left behind, and the replacements are notified like a publish.
func (h *Handler) CallInSick(c *gin.Context) {
	businessID := c.Param("businessId")
	sick, err := database.GetAssignment(h.DB, businessID, c.Param("assignmentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if models.AssignmentStatus(sick.Status) != models.AssignmentAssigned {
		h.respondError(c, fmt.Errorf("assignment %s is %s: %w", sick.ID, sick.Status, database.ErrConflict))
		return
	}

	draft, err := database.GetDraft(h.DB, businessID, sick.DraftID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	base, err := database.LoadScheduleInput(h.DB, businessID, draft.DateRangeStart, draft.DateRangeEnd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	input := scheduler.DraftInput(base, draft)
	for i := range input.CurrentAssignments {
		if input.CurrentAssignments[i].ID == sick.ID {
			input.CurrentAssignments[i].Status = models.AssignmentCalledInSick
		}
	}

	// Nobody who called in sick for this shift is asked to cover it
	exclude := []string{sick.StaffID}
	shift := models.Shift{ID: sick.ShiftID, Date: sick.ShiftDate}
	if idx := shiftIndex(draft, sick.ShiftID); idx >= 0 {
		shift = draft.Shifts[idx].Shift
		for _, a := range draft.Shifts[idx].Assignments {
			if a.Status == models.AssignmentCalledInSick {
				exclude = append(exclude, a.StaffID)
			}
		}
	}

	replacement, err := h.Engine.Replace(input, sick.ShiftID, exclude...)
	if err != nil {
		h.respondError(c, err)
		return
	}

	stored, updated, err := database.ApplySickCall(h.DB, sick, shift, replacement.Assignments, func(d *models.ScheduleDraft) error {
		d.Violations = append(d.Violations, replacement.Violations...)
		return h.Engine.Recount(base, d)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if stored == nil {
		stored = []models.Assignment{}
	}

	h.Logger.Info("staff called in sick",
		zap.String("business_id", businessID),
		zap.String("shift_id", sick.ShiftID),
		zap.String("staff_id", sick.StaffID),
		zap.Int("replacements", len(stored)))

	if h.Notifier != nil && len(stored) > 0 {
		_, err := h.Notifier.NotifyPublished(c.Request.Context(), &models.ScheduleDraft{
			ID:                   draft.ID,
			BusinessID:           businessID,
			NotificationSettings: draft.NotificationSettings,
			Shifts:               []models.DraftShift{{Shift: shift, Assignments: stored}},
		})
		if err != nil {
			h.Logger.Warn("failed to notify replacements", zap.String("draft_id", draft.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"assignment":    sick,
		"replacements":  stored,
		"shift_status":  replacement.Status,
		"violations":    replacement.Violations,
		"draft_summary": updated.Summary,
	})
}
