package shop

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type customerCreate struct {
	FirstName string  `json:"first_name" binding:"required,max=80"`
	LastName  string  `json:"last_name" binding:"required,max=80"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=32"`
}

// ListCustomers returns up to 200 customers.
func (h *Handler) ListCustomers(c *gin.Context) {
	var customers []Customer
	if err := h.db.WithContext(c.Request.Context()).Limit(defaultListLimit).Find(&customers).Error; err != nil {
		h.internalError(c, err, "list customers failed")
		return
	}
	c.JSON(http.StatusOK, customers)
}

// CreateCustomer inserts a customer.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req customerCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	customer := Customer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&customer).Error; err != nil {
		h.internalError(c, err, "create customer failed")
		return
	}
	c.JSON(http.StatusCreated, customer)
}
