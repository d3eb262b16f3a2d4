package shop

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type vehicleCreate struct {
	CustomerID uint    `json:"customer_id" binding:"required"`
	VIN        string  `json:"vin" binding:"required,len=17"`
	Plate      *string `json:"plate" binding:"omitempty,max=16"`
	Year       *int    `json:"year"`
	Make       *string `json:"make" binding:"omitempty,max=40"`
	Model      *string `json:"model" binding:"omitempty,max=60"`
}

// ListVehicles returns up to 200 vehicles.
func (h *Handler) ListVehicles(c *gin.Context) {
	var vehicles []Vehicle
	if err := h.db.WithContext(c.Request.Context()).Limit(defaultListLimit).Find(&vehicles).Error; err != nil {
		h.internalError(c, err, "list vehicles failed")
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// FindVehicles looks vehicles up by VIN and/or plate query parameters.
func (h *Handler) FindVehicles(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&Vehicle{})
	if vin := c.Query("vin"); vin != "" {
		q = q.Where("vin = ?", vin)
	}
	if plate := c.Query("plate"); plate != "" {
		q = q.Where("plate = ?", plate)
	}

	var vehicles []Vehicle
	if err := q.Limit(50).Find(&vehicles).Error; err != nil {
		h.internalError(c, err, "find vehicles failed")
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// CreateVehicle inserts a vehicle.
func (h *Handler) CreateVehicle(c *gin.Context) {
	var req vehicleCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	vehicle := Vehicle{
		CustomerID: req.CustomerID,
		VIN:        req.VIN,
		Plate:      req.Plate,
		Year:       req.Year,
		Make:       req.Make,
		Model:      req.Model,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&vehicle).Error; err != nil {
		h.internalError(c, err, "create vehicle failed")
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}
