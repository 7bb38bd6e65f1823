package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCycleIdempotent(t *testing.T) {
	db := newTestDB(t)
	cycles := NewCycleService(db, 5)

	first, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	second, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM billing_cycles WHERE billing_year = 2568 AND billing_month = 10
	`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetOrCreateCycleBounds(t *testing.T) {
	db := newTestDB(t)
	cycles := NewCycleService(db, 5)

	// Buddhist year 2568 is Gregorian 2025
	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	assert.Equal(t, "2025-10-01", cycle.StartDate)
	assert.Equal(t, "2025-10-31", cycle.EndDate)
	assert.Equal(t, "2025-11-05", cycle.DueDate)
	assert.Equal(t, "open", cycle.Status)
}

func TestGetOrCreateCycleFebruaryLeapYear(t *testing.T) {
	db := newTestDB(t)
	cycles := NewCycleService(db, 5)

	// 2567 BE = 2024, a leap year
	cycle, err := cycles.GetOrCreate(2567, 2)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-01", cycle.StartDate)
	assert.Equal(t, "2024-02-29", cycle.EndDate)
}

func TestGetOrCreateCycleRejectsBadMonth(t *testing.T) {
	db := newTestDB(t)
	cycles := NewCycleService(db, 5)

	_, err := cycles.GetOrCreate(2568, 13)
	assert.Error(t, err)

	_, err = cycles.GetOrCreate(2568, 0)
	assert.Error(t, err)
}

func TestCycleUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	cycles := NewCycleService(db, 5)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	require.NoError(t, cycles.UpdateStatus(cycle.ID, "closed"))

	reloaded, err := cycles.GetByID(cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, "closed", reloaded.Status)

	assert.ErrorIs(t, cycles.UpdateStatus(9999, "closed"), ErrCycleNotFound)
}
