package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pharmacy/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDB_IsolatedAndMigrated(t *testing.T) {
	a := NewSQLiteDB(t)
	b := NewSQLiteDB(t)

	require.NoError(t, a.Create(&models.DocumentSequenceModel{Kind: "SI", LastValue: 4}).Error)

	var count int64
	require.NoError(t, b.Model(&models.DocumentSequenceModel{}).Count(&count).Error)
	assert.Zero(t, count)

	for _, m := range models.All() {
		assert.True(t, a.Migrator().HasTable(m))
	}
}

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	assert.NotNil(t, m.DB)
	m.ExpectationsWereMet(t)
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())

	c.AdvanceDays(2)
	assert.Equal(t, start.AddDate(0, 0, 2), c.Now())

	c.Set(Date(2027, 1, 1))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), c.Now())
}

func TestWaitForCondition(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(10 * time.Millisecond)
		n.Store(1)
	}()
	RequireEventually(t, func() bool { return n.Load() == 1 }, time.Second)

	assert.False(t, WaitForCondition(t, func() bool { return false }, 20*time.Millisecond, 5*time.Millisecond))
}
