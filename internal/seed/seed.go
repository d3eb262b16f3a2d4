// Package seed populates demo and metadata tables on startup so a fresh dev
// environment has a workable board without manual setup. All seeding is
// idempotent: existing rows are left alone.
package seed

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revlinehq/revline/internal/shop"
)

var canonicalStatuses = []shop.ROStatus{
	{StatusCode: "OPEN", Label: "Open", RoleOwner: "advisor", Color: "green"},
	{StatusCode: "DIAG", Label: "Diagnosis", RoleOwner: "technician", Color: "yellow"},
	{StatusCode: "PARTS", Label: "Awaiting Parts", RoleOwner: "parts", Color: "purple"},
	{StatusCode: "READY", Label: "Ready for Pickup", RoleOwner: "advisor", Color: "teal"},
}

var serviceCategories = []shop.ServiceCategory{
	{Code: "31", Label: "Engine"},
	{Code: "32", Label: "Transmission"},
	{Code: "33", Label: "Brakes"},
	{Code: "34", Label: "Suspension"},
	{Code: "35", Label: "Electrical"},
	{Code: "36", Label: "Maintenance"},
}

var demoParts = []shop.Part{
	{SKU: "11427566327", Description: "Oil filter element", ListPrice: 18.40},
	{SKU: "34116794300", Description: "Front brake pad set", ListPrice: 121.95},
	{SKU: "13627551638", Description: "Crankshaft position sensor", ListPrice: 89.50},
}

// Meta upserts the canonical RO statuses and inserts service categories and
// demo parts when their tables are empty.
func Meta(db *gorm.DB, log zerolog.Logger) error {
	for _, status := range canonicalStatuses {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "status_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "role_owner", "color"}),
		}).Create(&status).Error
		if err != nil {
			return fmt.Errorf("seed ro status %s: %w", status.StatusCode, err)
		}
	}
	log.Info().Int("count", len(canonicalStatuses)).Msg("upserted canonical ro statuses")

	var categories int64
	if err := db.Model(&shop.ServiceCategory{}).Count(&categories).Error; err != nil {
		return err
	}
	if categories == 0 {
		if err := db.Create(&serviceCategories).Error; err != nil {
			return fmt.Errorf("seed service categories: %w", err)
		}
		log.Info().Int("count", len(serviceCategories)).Msg("seeded service categories")
	}

	var parts int64
	if err := db.Model(&shop.Part{}).Count(&parts).Error; err != nil {
		return err
	}
	if parts == 0 {
		if err := db.Create(&demoParts).Error; err != nil {
			return fmt.Errorf("seed parts: %w", err)
		}
	}

	return nil
}

type demoPair struct {
	firstName, lastName, email, phone string
	vin                               string
	year                              int
	make, model                       string
}

var demoPairs = []demoPair{
	{"Alex", "Young", "alex.young@example.com", "555-555-1212", "WBA1A9C57FV000001", 2015, "BMW", "228i"},
	{"Sam", "Miller", "sam.miller@example.com", "555-555-3434", "WBA3A5C57DF000002", 2013, "BMW", "328i"},
	{"Jamie", "Tran", "jamie.tran@example.com", "555-555-8989", "WBA8E1C57GK000003", 2016, "BMW", "428i"},
	{"Taylor", "Nguyen", "taylor.nguyen@example.com", "555-555-7777", "WBS3C9C50FP000004", 2015, "BMW", "M3"},
	{"Jordan", "Lee", "jordan.lee@example.com", "555-555-2323", "WBY1Z2C56FV000005", 2015, "BMW", "i3"},
	{"Riley", "Chen", "riley.chen@example.com", "555-555-0101", "WBAYE8C53DD000006", 2013, "BMW", "535i"},
}

var demoRONumbers = []string{"500978", "862830", "229583", "872143", "694077", "689652"}

var statusRotation = []string{"OPEN", "DIAG", "PARTS", "READY"}

// ActiveROs seeds a set of demo repair orders, with their customers and
// vehicles, when no repair order exists yet. Every canonical status appears
// at least once.
func ActiveROs(db *gorm.DB, log zerolog.Logger) error {
	var existing int64
	if err := db.Model(&shop.RepairOrder{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Debug().Msg("repair orders already present, skipping demo seed")
		return nil
	}

	now := time.Now().UTC()
	for i, pair := range demoPairs {
		customer, vehicle, err := ensurePair(db, pair)
		if err != nil {
			return err
		}

		opened := now.Add(-time.Duration(i) * 24 * time.Hour)
		ro := shop.RepairOrder{
			RONumber:     demoRONumbers[i%len(demoRONumbers)],
			CustomerID:   &customer.ID,
			VehicleID:    &vehicle.ID,
			CustomerName: customer.FirstName + " " + customer.LastName,
			VehicleLabel: fmt.Sprintf("%d %s %s", pair.year, pair.make, pair.model),
			StatusCode:   statusRotation[i%len(statusRotation)],
			OpenedAt:     opened,
			UpdatedAt:    opened,
			IsWaiter:     i%3 == 0,
		}
		if err := db.Create(&ro).Error; err != nil {
			return fmt.Errorf("seed repair order %s: %w", ro.RONumber, err)
		}
	}

	log.Info().Int("count", len(demoPairs)).Msg("seeded demo repair orders")
	return nil
}

func ensurePair(db *gorm.DB, pair demoPair) (*shop.Customer, *shop.Vehicle, error) {
	customer := shop.Customer{
		FirstName: pair.firstName,
		LastName:  pair.lastName,
		Email:     &pair.email,
		Phone:     &pair.phone,
	}
	err := db.Where(shop.Customer{Email: &pair.email}).FirstOrCreate(&customer).Error
	if err != nil {
		return nil, nil, fmt.Errorf("seed customer %s: %w", pair.email, err)
	}

	vehicle := shop.Vehicle{
		CustomerID: customer.ID,
		VIN:        pair.vin,
		Year:       &pair.year,
		Make:       &pair.make,
		Model:      &pair.model,
	}
	err = db.Where(shop.Vehicle{VIN: pair.vin}).FirstOrCreate(&vehicle).Error
	if err != nil {
		return nil, nil, fmt.Errorf("seed vehicle %s: %w", pair.vin, err)
	}

	return &customer, &vehicle, nil
}
