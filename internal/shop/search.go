package shop

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Search matches customers by name/email/phone and vehicles by VIN/plate,
// case-insensitively, returning up to 20 of each.
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "q must be at least 2 characters"})
		return
	}
	like := "%" + strings.ToLower(q) + "%"
	ctx := c.Request.Context()

	var customers []Customer
	err := h.db.WithContext(ctx).
		Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?",
			like, like, like, like,
		).
		Limit(20).Find(&customers).Error
	if err != nil {
		h.internalError(c, err, "customer search failed")
		return
	}

	var vehicles []Vehicle
	err = h.db.WithContext(ctx).
		Where("LOWER(vin) LIKE ? OR LOWER(plate) LIKE ?", like, like).
		Limit(20).Find(&vehicles).Error
	if err != nil {
		h.internalError(c, err, "vehicle search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers, "vehicles": vehicles})
}
