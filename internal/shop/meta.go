package shop

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ROStatuses returns the canonical repair order statuses.
func (h *Handler) ROStatuses(c *gin.Context) {
	var statuses []ROStatus
	if err := h.db.WithContext(c.Request.Context()).Order("id").Find(&statuses).Error; err != nil {
		h.internalError(c, err, "ro status list failed")
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// ServiceCategories returns the dealership service categories.
func (h *Handler) ServiceCategories(c *gin.Context) {
	var categories []ServiceCategory
	if err := h.db.WithContext(c.Request.Context()).Order("code").Find(&categories).Error; err != nil {
		h.internalError(c, err, "service category list failed")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// ListParts returns up to 200 stocked parts.
func (h *Handler) ListParts(c *gin.Context) {
	var parts []Part
	if err := h.db.WithContext(c.Request.Context()).Limit(defaultListLimit).Find(&parts).Error; err != nil {
		h.internalError(c, err, "list parts failed")
		return
	}
	c.JSON(http.StatusOK, parts)
}
