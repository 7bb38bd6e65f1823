package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructMatchesGenerator(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, billing, aggregator := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "101")
	contractID := createContract(t, db, roomID, "Somchai")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addRate(t, db, UtilityWater, 18.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 9823, 173)
	addReading(t, db, roomID, cycle.ID, UtilityWater, 50, 80)

	bill, err := billing.CreateBill(contractID, cycle.ID, "")
	require.NoError(t, err)

	view, err := aggregator.Reconstruct(contractID, cycle.ID)
	require.NoError(t, err)

	// Underlying data unchanged: the reconstruction must equal the stored
	// bill exactly
	assert.Equal(t, bill.TotalAmount, view.TotalAmount)
	assert.Equal(t, bill.ElectricAmount, view.Electric.Amount)
	assert.Equal(t, bill.WaterAmount, view.Water.Amount)
	assert.Equal(t, bill.MaintenanceFee, view.MaintenanceFee)

	// And both must equal a fresh allocation over the same data
	alloc, err := allocator.Allocate(roomID, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, alloc.TotalAmount, view.TotalAmount)
}

func TestReconstructReflectsCorrectedReading(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, aggregator := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "102")
	contractID := createContract(t, db, roomID, "Somchai")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 200)

	bill, err := billing.CreateBill(contractID, cycle.ID, "")
	require.NoError(t, err)
	assert.Equal(t, testMaintenanceFee+600.0, bill.TotalAmount)

	// Operator fixes a mis-keyed end reading after the bill was drafted
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 150)

	view, err := aggregator.Reconstruct(contractID, cycle.ID)
	require.NoError(t, err)

	// The stored bill keeps its original amounts for audit
	var storedTotal float64
	require.NoError(t, db.QueryRow("SELECT total_amount FROM bills WHERE id = ?", bill.ID).Scan(&storedTotal))
	assert.Equal(t, testMaintenanceFee+600.0, storedTotal)

	// The reconstructed view follows the corrected data
	assert.Equal(t, testMaintenanceFee+300.0, view.TotalAmount)
	assert.Equal(t, 50.0, view.Electric.Usage)
}

func TestReconstructReflectsLateRateEntry(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, aggregator := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "103")
	contractID := createContract(t, db, roomID, "Somchai")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 200)

	// Rate missing at generation time: billed at 0 and flagged
	bill, err := billing.CreateBill(contractID, cycle.ID, "")
	require.NoError(t, err)
	assert.True(t, bill.RateWarning)
	assert.Equal(t, testMaintenanceFee, bill.TotalAmount)

	// Operator enters the forgotten rate afterwards
	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")

	view, err := aggregator.Reconstruct(contractID, cycle.ID)
	require.NoError(t, err)
	assert.False(t, view.RateWarning)
	assert.Equal(t, testMaintenanceFee+600.0, view.TotalAmount)
}

func TestReconstructUnknownBill(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, _, aggregator := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	_, err = aggregator.Reconstruct(42, cycle.ID)
	assert.ErrorIs(t, err, ErrBillNotFound)

	_, err = aggregator.ReconstructByID(42)
	assert.ErrorIs(t, err, ErrBillNotFound)
}

func TestListCycleOrdersByRoom(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, aggregator := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")

	roomB := createRoom(t, db, "202")
	roomA := createRoom(t, db, "201")
	contractB := createContract(t, db, roomB, "Somsak")
	contractA := createContract(t, db, roomA, "Somchai")

	addReading(t, db, roomA, cycle.ID, UtilityElectric, 0, 10)
	addReading(t, db, roomB, cycle.ID, UtilityElectric, 0, 20)

	_, err = billing.CreateBill(contractB, cycle.ID, "")
	require.NoError(t, err)
	_, err = billing.CreateBill(contractA, cycle.ID, "")
	require.NoError(t, err)

	views, err := aggregator.ListCycle(cycle.ID)
	require.NoError(t, err)

	require.Len(t, views, 2)
	assert.Equal(t, "201", views[0].RoomNumber)
	assert.Equal(t, "202", views[1].RoomNumber)
	assert.Equal(t, "Somchai Testsuk", views[0].TenantName)
}
