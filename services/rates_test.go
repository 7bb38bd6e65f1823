package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func TestResolveRatePicksLatestEffective(t *testing.T) {
	db := newTestDB(t)
	rates := NewRateService(db)

	addRate(t, db, UtilityElectric, 5.0, "2024-01-01")
	addRate(t, db, UtilityElectric, 6.0, "2024-06-01")

	rate, found, err := rates.ResolveRate(UtilityElectric, date(t, "2024-05-15"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5.0, rate)

	rate, found, err = rates.ResolveRate(UtilityElectric, date(t, "2024-07-01"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 6.0, rate)
}

func TestResolveRateOnBoundaryDate(t *testing.T) {
	db := newTestDB(t)
	rates := NewRateService(db)

	addRate(t, db, UtilityElectric, 5.0, "2024-01-01")
	addRate(t, db, UtilityElectric, 6.0, "2024-06-01")

	rate, found, err := rates.ResolveRate(UtilityElectric, date(t, "2024-06-01"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 6.0, rate)
}

func TestResolveRateBeforeAnyRate(t *testing.T) {
	db := newTestDB(t)
	rates := NewRateService(db)

	addRate(t, db, UtilityElectric, 5.0, "2024-01-01")

	rate, found, err := rates.ResolveRate(UtilityElectric, date(t, "2023-01-01"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0.0, rate)
}

func TestResolveRatePerUtilityType(t *testing.T) {
	db := newTestDB(t)
	rates := NewRateService(db)

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addRate(t, db, UtilityWater, 18.0, "2024-01-01")

	rate, found, err := rates.ResolveRate(UtilityWater, date(t, "2024-02-01"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 18.0, rate)
}
