package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/models"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/scheduler"
)

func checkConstraint(t models.ConstraintType, p models.Priority) error {
	if !t.Known() {
		return fmt.Errorf("%w: unknown constraint_type %q", scheduler.ErrInvalidInput, t)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: unknown priority %q", scheduler.ErrInvalidInput, p)
	}
	return nil
}

// ListConstraints returns a business's constraints
func (h *Handler) ListConstraints(c *gin.Context) {
	rows, err := database.ListConstraints(h.DB, c.Param("businessId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if rows == nil {
		rows = []database.Constraint{}
	}
	c.JSON(http.StatusOK, gin.H{"constraints": rows})
}

// CreateConstraint stores a new constraint; unknown types are rejected
func (h *Handler) CreateConstraint(c *gin.Context) {
	var req models.Constraint
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkConstraint(req.ConstraintType, req.Priority); err != nil {
		h.respondError(c, err)
		return
	}

	req.ID = uuid.NewString()
	row, err := database.NewConstraint(c.Param("businessId"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.DB.Create(&row).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *Handler) loadConstraint(c *gin.Context) (*database.Constraint, bool) {
	var row database.Constraint
	err := h.DB.Where("business_id = ? AND id = ?", c.Param("businessId"), c.Param("constraintId")).First(&row).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Constraint not found"})
		return nil, false
	}
	return &row, true
}

// GetConstraint returns one constraint
func (h *Handler) GetConstraint(c *gin.Context) {
	row, ok := h.loadConstraint(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, row)
}

// UpdateConstraint applies a partial update; omitted fields are unchanged
func (h *Handler) UpdateConstraint(c *gin.Context) {
	var req struct {
		ConstraintType  *models.ConstraintType `json:"constraint_type"`
		ConstraintValue any                    `json:"constraint_value"`
		Priority        *models.Priority       `json:"priority"`
		IsActive        *bool                  `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, ok := h.loadConstraint(c)
	if !ok {
		return
	}
	current := row.ToModel()
	if req.ConstraintType != nil {
		current.ConstraintType = *req.ConstraintType
	}
	if req.ConstraintValue != nil {
		current.ConstraintValue = req.ConstraintValue
	}
	if req.Priority != nil {
		current.Priority = *req.Priority
	}
	if req.IsActive != nil {
		current.IsActive = req.IsActive
	}
	if err := checkConstraint(current.ConstraintType, current.Priority); err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := database.NewConstraint(row.BusinessID, current)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated.CreatedAt = row.CreatedAt
	if err := h.DB.Save(&updated).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteConstraint removes a constraint
func (h *Handler) DeleteConstraint(c *gin.Context) {
	res := h.DB.Where("business_id = ? AND id = ?", c.Param("businessId"), c.Param("constraintId")).
		Delete(&database.Constraint{})
	if res.Error != nil {
		h.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Constraint not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Constraint deleted"})
}
