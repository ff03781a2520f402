package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

// ValidateInput checks a scheduling input without running it
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.Staff) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one staff member is required"})
		return
	}
	if len(input.Shifts) == 0 && len(input.ShiftTemplates) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one shift or shift template is required"})
		return
	}
	for _, con := range input.Constraints {
		if !con.ConstraintType.Known() {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Unknown constraint type: " + string(con.ConstraintType)})
			return
		}
	}
	if err := h.Engine.Check(input); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"staff_count":      len(input.Staff),
			"shift_count":      len(input.Shifts),
			"template_count":   len(input.ShiftTemplates),
			"constraint_count": len(input.Constraints),
		},
	})
}

// ValidateAssignment checks one staff/shift pairing against the business's
// active constraints. With draft_id the draft's assignments are the
// context; otherwise the published schedule of the shift's week is.
func (h *Handler) ValidateAssignment(c *gin.Context) {
	businessID := c.Param("businessId")
	var req struct {
		ShiftID string `json:"shift_id" binding:"required"`
		StaffID string `json:"staff_id" binding:"required"`
		DraftID string `json:"draft_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var input models.ScheduleInput
	if req.DraftID != "" {
		draft, err := database.GetDraft(h.DB, businessID, req.DraftID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		base, err := database.LoadScheduleInput(h.DB, businessID, draft.DateRangeStart, draft.DateRangeEnd)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input = scheduler.DraftInput(base, draft)
	} else {
		date, err := h.shiftDate(businessID, req.ShiftID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		start, end := isoWeek(date)
		input, err = database.LoadScheduleInput(h.DB, businessID, start, end)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	result, err := h.Engine.ValidatePair(input, req.ShiftID, req.StaffID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// shiftDate finds the date of a stored shift or of a template occurrence id
func (h *Handler) shiftDate(businessID, shiftID string) (time.Time, error) {
	var row database.Shift
	err := h.DB.Where("business_id = ? AND shift_id = ?", businessID, shiftID).First(&row).Error
	if err == nil {
		return scheduler.ParseDate(row.Date)
	}
	if i := strings.LastIndex(shiftID, "@"); i > 0 {
		if d, perr := scheduler.ParseDate(shiftID[i+1:]); perr == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("shift %s: %w", shiftID, database.ErrNotFound)
}

// isoWeek returns the Monday and Sunday of the week containing d
func isoWeek(d time.Time) (string, string) {
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return monday.Format("2006-01-02"), monday.AddDate(0, 0, 6).Format("2006-01-02")
}
