package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotificationStatus reports delivery of a draft's publish notifications
func (h *Handler) NotificationStatus(c *gin.Context) {
	status, err := h.Notifier.Status(c.Request.Context(), c.GetString("businessID"), c.Param("draftId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RetryNotifications retries failed notifications of a draft. Without
// notification_ids every eligible failed record is retried.
func (h *Handler) RetryNotifications(c *gin.Context) {
	var req struct {
		NotificationIDs []string `json:"notification_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Notifier.Retry(c.Request.Context(), c.GetString("businessID"), c.Param("draftId"), req.NotificationIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
