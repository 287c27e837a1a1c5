package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gadget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestInstrumentGorm_RecordsQueryDuration(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, InstrumentGorm(db))
	require.NoError(t, db.AutoMigrate(&gadget{}))

	require.NoError(t, db.Create(&gadget{Name: "a"}).Error)
	var got []gadget
	require.NoError(t, db.Find(&got).Error)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(DatabaseQueryDuration), 2)
}
