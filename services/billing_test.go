package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSplitsUtilityNotMaintenance(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, _, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "101")
	createContract(t, db, roomID, "Somchai")
	createContract(t, db, roomID, "Somsak")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 200) // 100 units, room total 600

	alloc, err := allocator.Allocate(roomID, cycle.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, alloc.TenantCount)
	assert.Equal(t, 300.0, alloc.ElectricAmount)
	// The maintenance fee is charged to every tenant in full, never split
	assert.Equal(t, testMaintenanceFee, alloc.MaintenanceFee)
	assert.Equal(t, 1300.0, alloc.TotalAmount)
}

func TestAllocateMissingUtilityContributesZero(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, _, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "102")
	createContract(t, db, roomID, "Somchai")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 0, 50)
	// no water reading recorded

	alloc, err := allocator.Allocate(roomID, cycle.ID)
	require.NoError(t, err)

	assert.Nil(t, alloc.Water)
	assert.Equal(t, 0.0, alloc.WaterAmount)
	assert.Equal(t, testMaintenanceFee+300.0, alloc.TotalAmount)
}

func TestAllocateTenantCountFloorsAtOne(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, _, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "103")
	addRate(t, db, UtilityWater, 18.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityWater, 10, 20)

	alloc, err := allocator.Allocate(roomID, cycle.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, alloc.TenantCount)
	assert.Equal(t, 180.0, alloc.WaterAmount)
}

func TestAllocateElectricRolloverEndToEnd(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, _, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "104")
	createContract(t, db, roomID, "Somchai")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 9823, 173)

	alloc, err := allocator.Allocate(roomID, cycle.ID)
	require.NoError(t, err)

	require.NotNil(t, alloc.Electric)
	assert.Equal(t, 350.0, alloc.Electric.Usage)
	assert.Equal(t, 2100.0, alloc.ElectricAmount)
}

func TestAllocateReturnsOnSingleConnection(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, _, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "106")
	createContract(t, db, roomID, "Somchai")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addRate(t, db, UtilityWater, 18.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 200)
	addReading(t, db, roomID, cycle.ID, UtilityWater, 10, 20)

	// The pool holds one connection; rate resolution during allocation must
	// not block behind the readings cursor.
	done := make(chan error, 1)
	var alloc *Allocation
	go func() {
		var err error
		alloc, err = allocator.Allocate(roomID, cycle.ID)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Allocate did not return, rate lookup starved the connection pool")
	}

	require.NotNil(t, alloc.Electric)
	require.NotNil(t, alloc.Water)
	assert.Equal(t, 600.0, alloc.ElectricAmount)
	assert.Equal(t, 180.0, alloc.WaterAmount)
}

func TestAllocateMissingRateFlagsWarning(t *testing.T) {
	db := newTestDB(t)
	cycles, _, allocator, _, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "105")
	createContract(t, db, roomID, "Somchai")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 200)
	// no electric rate entered at all

	alloc, err := allocator.Allocate(roomID, cycle.ID)
	require.NoError(t, err)

	assert.True(t, alloc.RateWarning)
	require.NotNil(t, alloc.Electric)
	assert.Equal(t, 0.0, alloc.Electric.Rate)
	assert.Equal(t, 0.0, alloc.ElectricAmount)
	// Billing proceeds with the maintenance fee only
	assert.Equal(t, testMaintenanceFee, alloc.TotalAmount)
}

func TestCreateBillRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "201")
	contractID := createContract(t, db, roomID, "Somchai")

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 100, 200)

	bill, err := billing.CreateBill(contractID, cycle.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "draft", bill.Status)

	_, err = billing.CreateBill(contractID, cycle.ID, "")
	assert.ErrorIs(t, err, ErrBillExists)

	assert.Equal(t, 1, countBills(t, db, contractID, cycle.ID))
}

func TestCreateBillRequiresMeterReading(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "202")
	contractID := createContract(t, db, roomID, "Somchai")

	_, err = billing.CreateBill(contractID, cycle.ID, "")
	assert.ErrorIs(t, err, ErrNoMeterReadings)
	assert.Equal(t, 0, countBills(t, db, contractID, cycle.ID))
}

func TestCreateBillUnknownContract(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	_, err = billing.CreateBill(12345, cycle.ID, "")
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestRunBillingIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	_, _, _, billing, _ := newTestServices(t, db)

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addRate(t, db, UtilityWater, 18.0, "2024-01-01")

	roomA := createRoom(t, db, "301")
	roomB := createRoom(t, db, "302")
	createContract(t, db, roomA, "Somchai")
	createContract(t, db, roomB, "Somsak")

	first, err := billing.RunBilling(2568, 10)
	require.NoError(t, err)
	// Cycle was created lazily, but no room has readings yet
	assert.Equal(t, 0, first.Created)
	assert.Equal(t, 2, first.SkippedNoReading)

	addReading(t, db, roomA, first.CycleID, UtilityElectric, 100, 200)
	addReading(t, db, roomB, first.CycleID, UtilityWater, 50, 80)

	second, err := billing.RunBilling(2568, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Created)
	assert.Equal(t, first.CycleID, second.CycleID)

	// Re-running must not double-bill
	third, err := billing.RunBilling(2568, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, third.Created)
	assert.Equal(t, 2, third.SkippedExisting)

	var total int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM bills WHERE cycle_id = ?", first.CycleID).Scan(&total))
	assert.Equal(t, 2, total)
}

func TestRunBillingSkipsBadRoomAndContinues(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")

	roomWithReading := createRoom(t, db, "401")
	roomWithout := createRoom(t, db, "402")
	createContract(t, db, roomWithReading, "Somchai")
	createContract(t, db, roomWithout, "Somsak")

	addReading(t, db, roomWithReading, cycle.ID, UtilityElectric, 0, 100)

	result, err := billing.RunBilling(2568, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.SkippedNoReading)
	assert.Equal(t, 0, result.Failed)
}

func TestUpdateBillStatus(t *testing.T) {
	db := newTestDB(t)
	cycles, _, _, billing, _ := newTestServices(t, db)

	cycle, err := cycles.GetOrCreate(2568, 10)
	require.NoError(t, err)

	roomID := createRoom(t, db, "501")
	contractID := createContract(t, db, roomID, "Somchai")
	addRate(t, db, UtilityElectric, 6.0, "2024-01-01")
	addReading(t, db, roomID, cycle.ID, UtilityElectric, 0, 10)

	bill, err := billing.CreateBill(contractID, cycle.ID, "")
	require.NoError(t, err)

	require.NoError(t, billing.UpdateStatus(bill.ID, "paid"))

	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM bills WHERE id = ?", bill.ID).Scan(&status))
	assert.Equal(t, "paid", status)

	assert.Error(t, billing.UpdateStatus(bill.ID, "cancelled"))
	assert.ErrorIs(t, billing.UpdateStatus(9999, "paid"), ErrBillNotFound)
}
