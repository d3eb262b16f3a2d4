package shop

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stats returns the dashboard counters.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	var customers, vehicles, openROs int64
	if err := h.db.WithContext(ctx).Model(&Customer{}).Count(&customers).Error; err != nil {
		h.internalError(c, err, "customer count failed")
		return
	}
	if err := h.db.WithContext(ctx).Model(&Vehicle{}).Count(&vehicles).Error; err != nil {
		h.internalError(c, err, "vehicle count failed")
		return
	}
	if err := h.db.WithContext(ctx).Model(&RepairOrder{}).
		Where("closed_at IS NULL").Count(&openROs).Error; err != nil {
		h.internalError(c, err, "open ro count failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"vehicles":  vehicles,
		"open_ros":  openROs,
	})
}
