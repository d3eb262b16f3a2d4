package seed

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/revlinehq/revline/internal/shop"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, shop.Migrate(db))
	return db
}

func TestMetaIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.Nop()

	require.NoError(t, Meta(db, log))
	require.NoError(t, Meta(db, log))

	var statuses []shop.ROStatus
	require.NoError(t, db.Order("id").Find(&statuses).Error)
	require.Len(t, statuses, 4)
	assert.Equal(t, "OPEN", statuses[0].StatusCode)

	var categories, parts int64
	require.NoError(t, db.Model(&shop.ServiceCategory{}).Count(&categories).Error)
	require.NoError(t, db.Model(&shop.Part{}).Count(&parts).Error)
	assert.EqualValues(t, 6, categories)
	assert.EqualValues(t, 3, parts)
}

func TestMetaUpsertsChangedStatus(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.Nop()
	require.NoError(t, Meta(db, log))

	// A drifted label is corrected on the next startup.
	require.NoError(t, db.Model(&shop.ROStatus{}).
		Where("status_code = ?", "OPEN").Update("label", "stale").Error)
	require.NoError(t, Meta(db, log))

	var status shop.ROStatus
	require.NoError(t, db.Where("status_code = ?", "OPEN").First(&status).Error)
	assert.Equal(t, "Open", status.Label)
}

func TestActiveROsSeedsOnceWithAllStatuses(t *testing.T) {
	db := newTestDB(t)
	log := zerolog.Nop()
	require.NoError(t, Meta(db, log))

	require.NoError(t, ActiveROs(db, log))

	var ros []shop.RepairOrder
	require.NoError(t, db.Find(&ros).Error)
	require.Len(t, ros, len(demoPairs))

	seen := map[string]bool{}
	for _, ro := range ros {
		seen[ro.StatusCode] = true
		assert.NotNil(t, ro.CustomerID)
		assert.NotNil(t, ro.VehicleID)
		assert.NotEmpty(t, ro.CustomerName)
		assert.NotEmpty(t, ro.VehicleLabel)
	}
	for _, code := range statusRotation {
		assert.True(t, seen[code], code)
	}

	// A second run leaves the board alone.
	require.NoError(t, ActiveROs(db, log))
	var count int64
	require.NoError(t, db.Model(&shop.RepairOrder{}).Count(&count).Error)
	assert.EqualValues(t, len(demoPairs), count)
}
