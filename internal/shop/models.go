// Package shop holds the shop-management entities (customers, vehicles,
// repair orders) and their CRUD/search/stats handlers. It is deliberately
// plain plumbing around the session subsystem: it supplies the credential
// store and consumes the authenticated principal.
package shop

import (
	"time"

	"gorm.io/gorm"
)

// User is a credential record. The session subsystem treats its id (in string
// form) as the opaque principal subject; it never creates or destroys users.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex" json:"email"`
	Name         string    `gorm:"size:128" json:"name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Customer is a shop customer.
type Customer struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	FirstName string  `gorm:"size:80;index:ix_customer_name" json:"first_name"`
	LastName  string  `gorm:"size:80;index:ix_customer_name" json:"last_name"`
	Email     *string `gorm:"size:255;uniqueIndex" json:"email"`
	Phone     *string `gorm:"size:32;index" json:"phone"`

	Vehicles []Vehicle `json:"-"`
}

// Vehicle belongs to a customer and is looked up by VIN or plate.
type Vehicle struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	CustomerID uint    `gorm:"index" json:"customer_id"`
	VIN        string  `gorm:"size:17;uniqueIndex" json:"vin"`
	Plate      *string `gorm:"size:16;index" json:"plate"`
	Year       *int    `json:"year"`
	Make       *string `gorm:"size:40" json:"make"`
	Model      *string `gorm:"size:60" json:"model"`
}

// ROStatus is the canonical status metadata for repair orders: which role
// owns work in that state and what color the board renders it.
type ROStatus struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	StatusCode string `gorm:"size:64;uniqueIndex" json:"status_code"`
	Label      string `gorm:"size:128" json:"label"`
	RoleOwner  string `gorm:"size:32" json:"role_owner"` // technician | advisor | parts | foreman
	Color      string `gorm:"size:32" json:"color"`
}

// ServiceCategory is a dealership service category code.
type ServiceCategory struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	Code  string `gorm:"size:16;uniqueIndex" json:"code"`
	Label string `gorm:"size:128" json:"label"`
}

// RepairOrder is an RO on the active board. Customer and vehicle labels are
// denormalized so the board renders without joins beyond the status row.
type RepairOrder struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RONumber     string     `gorm:"size:32;uniqueIndex" json:"ro_number"`
	CustomerID   *uint      `gorm:"index" json:"customer_id"`
	VehicleID    *uint      `gorm:"index" json:"vehicle_id"`
	CustomerName string     `gorm:"size:128" json:"customer_name"`
	VehicleLabel string     `gorm:"size:128" json:"vehicle_label"`
	StatusCode   string     `gorm:"size:64;index" json:"status_code"`
	AdvisorName  *string    `gorm:"size:128" json:"advisor_name"`
	TechName     *string    `gorm:"size:128" json:"tech_name"`
	OpenedAt     time.Time  `gorm:"index" json:"opened_at"`
	UpdatedAt    time.Time  `gorm:"index" json:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	IsWaiter     bool       `json:"is_waiter"`
}

// Part is a stocked part.
type Part struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	SKU         string  `gorm:"size:64;uniqueIndex" json:"sku"`
	Description string  `gorm:"size:255" json:"description"`
	ListPrice   float64 `json:"list_price"`
}

// Migrate creates or updates the schema for every shop entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Customer{},
		&Vehicle{},
		&ROStatus{},
		&ServiceCategory{},
		&RepairOrder{},
		&Part{},
	)
}
