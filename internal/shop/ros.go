package shop

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type activeRO struct {
	ID           uint         `json:"id"`
	RONumber     string       `json:"ro_number"`
	CustomerName string       `json:"customer_name"`
	VehicleLabel string       `json:"vehicle_label"`
	AdvisorName  *string      `json:"advisor_name"`
	TechName     *string      `json:"tech_name"`
	OpenedAt     time.Time    `json:"opened_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	IsWaiter     bool         `json:"is_waiter"`
	Status       roStatusMeta `json:"status"`
}

type roStatusMeta struct {
	StatusCode string `json:"status_code"`
	Label      string `json:"label"`
	RoleOwner  string `json:"role_owner"`
	Color      string `json:"color"`
}

type activeRORow struct {
	ID           uint
	RONumber     string
	CustomerName string
	VehicleLabel string
	AdvisorName  *string
	TechName     *string
	OpenedAt     time.Time
	UpdatedAt    time.Time
	IsWaiter     bool
	StatusCode   string
	Label        string
	RoleOwner    string
	Color        string
}

var roSortColumns = map[string]string{
	"updated_at": "repair_orders.updated_at",
	"opened_at":  "repair_orders.opened_at",
	"ro_number":  "repair_orders.ro_number",
}

// ActiveROs returns open repair orders with their status metadata, filtered
// by owning role, waiter flag, free-text search and last-update time.
func (h *Handler) ActiveROs(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).
		Table("repair_orders").
		Select(`repair_orders.id, repair_orders.ro_number, repair_orders.customer_name,
			repair_orders.vehicle_label, repair_orders.advisor_name, repair_orders.tech_name,
			repair_orders.opened_at, repair_orders.updated_at, repair_orders.is_waiter,
			ro_statuses.status_code, ro_statuses.label, ro_statuses.role_owner, ro_statuses.color`).
		Joins("JOIN ro_statuses ON ro_statuses.status_code = repair_orders.status_code").
		Where("repair_orders.closed_at IS NULL")

	if owner := c.Query("owner"); owner != "" {
		switch owner {
		case "advisor", "technician", "parts", "foreman":
			q = q.Where("ro_statuses.role_owner = ?", owner)
		default:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid owner filter"})
			return
		}
	}
	if waiter := c.Query("waiter"); waiter != "" {
		v, err := strconv.ParseBool(waiter)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid waiter filter"})
			return
		}
		q = q.Where("repair_orders.is_waiter = ?", v)
	}
	if since := c.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid since timestamp"})
			return
		}
		q = q.Where("repair_orders.updated_at >= ?", ts)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"repair_orders.ro_number LIKE ? OR repair_orders.customer_name LIKE ? OR repair_orders.vehicle_label LIKE ?",
			like, like, like,
		)
	}

	sortCol, ok := roSortColumns[c.DefaultQuery("sort", "updated_at")]
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid sort column"})
		return
	}
	dir := c.DefaultQuery("dir", "desc")
	if dir != "asc" && dir != "desc" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid sort direction"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "limit must be between 1 and 1000"})
		return
	}

	var rows []activeRORow
	if err := q.Order(sortCol + " " + dir).Limit(limit).Scan(&rows).Error; err != nil {
		h.internalError(c, err, "active ros query failed")
		return
	}

	out := make([]activeRO, 0, len(rows))
	for _, r := range rows {
		out = append(out, activeRO{
			ID:           r.ID,
			RONumber:     r.RONumber,
			CustomerName: r.CustomerName,
			VehicleLabel: r.VehicleLabel,
			AdvisorName:  r.AdvisorName,
			TechName:     r.TechName,
			OpenedAt:     r.OpenedAt,
			UpdatedAt:    r.UpdatedAt,
			IsWaiter:     r.IsWaiter,
			Status: roStatusMeta{
				StatusCode: r.StatusCode,
				Label:      r.Label,
				RoleOwner:  r.RoleOwner,
				Color:      r.Color,
			},
		})
	}
	c.JSON(http.StatusOK, out)
}
