package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/restaurant-scheduler-api/pkg/auth"
	"github.com/arnavshah/restaurant-scheduler-api/pkg/database"
)

// CreateBusiness registers a business and issues its first API key
func (h *Handler) CreateBusiness(c *gin.Context) {
	var req struct {
		ID        string `json:"id" binding:"required"`
		Name      string `json:"name" binding:"required"`
		Timezone  string `json:"timezone"`
		RateLimit int    `json:"rate_limit" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	if _, err := database.GetBusiness(h.DB, req.ID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Business already exists"})
		return
	}

	business := database.Business{ID: req.ID, Name: req.Name, Timezone: req.Timezone}
	if err := h.DB.Create(&business).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create business"})
		return
	}

	key, err := h.storeKey(req.Name, req.ID, req.RateLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"business": business, "key": key})
}

// ListBusinesses returns all registered businesses
func (h *Handler) ListBusinesses(c *gin.Context) {
	var businesses []database.Business
	h.DB.Order("id").Find(&businesses)
	c.JSON(http.StatusOK, gin.H{"businesses": businesses})
}

// storeKey issues the current key of a business. Once that key is revoked
// the next call moves the business to a new key version.
func (h *Handler) storeKey(name, businessID string, rateLimit int) (string, error) {
	var newest database.APIKey
	if err := h.DB.Where("business_id = ?", businessID).Order("version desc").Limit(1).Find(&newest).Error; err != nil {
		return "", err
	}
	version := newest.Version
	if newest.ID != 0 && newest.RevokedAt != nil {
		version++
	}

	key := h.Auth.GenerateKeyVersion(businessID, version)
	apiKey := database.APIKey{
		Key:        key,
		Name:       name,
		KeyPreview: auth.KeyPreview(key),
		BusinessID: businessID,
		Version:    version,
		RateLimit:  rateLimit,
	}
	// The key is deterministic per business and version, so re-issuing only renames it
	err := h.DB.Where(database.APIKey{Key: key}).
		Assign(database.APIKey{Name: name, RateLimit: rateLimit}).
		FirstOrCreate(&apiKey).Error
	return key, err
}

// GenerateKey issues the HMAC API key of a business
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name       string `json:"name"`
		BusinessID string `json:"business_id" binding:"required"`
		RateLimit  int    `json:"rate_limit" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := database.GetBusiness(h.DB, req.BusinessID); err != nil {
		h.respondError(c, err)
		return
	}

	if req.Name == "" {
		req.Name = req.BusinessID
	}
	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	key, err := h.storeKey(req.Name, req.BusinessID, req.RateLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        req.Name,
		"business_id": req.BusinessID,
		"key":         key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Order("id").Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey marks an API key revoked. The record is kept so the key cannot
// be tracked again; issuing a key for the business afterwards gives a new one.
func (h *Handler) RevokeKey(c *gin.Context) {
	var apiKey database.APIKey
	if err := h.DB.Where("id = ?", c.Param("id")).Limit(1).Find(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load key"})
		return
	}
	if apiKey.ID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	if apiKey.RevokedAt == nil {
		if err := h.DB.Model(&apiKey).Update("revoked_at", time.Now()).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not revoke key"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	res := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.APIUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
