package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/napat44/dorm-billing/backend/database"
)

const testMaintenanceFee = 1000.0

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.InitDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServices(t *testing.T, db *sql.DB) (*CycleService, *RateService, *Allocator, *BillingService, *BillAggregator) {
	t.Helper()

	cycles := NewCycleService(db, 5)
	rates := NewRateService(db)
	allocator := NewAllocator(db, cycles, rates, testMaintenanceFee)
	billing := NewBillingService(db, cycles, allocator)
	aggregator := NewBillAggregator(db, allocator)
	return cycles, rates, allocator, billing, aggregator
}

func createRoom(t *testing.T, db *sql.DB, roomNumber string) int {
	t.Helper()

	var buildingID int
	err := db.QueryRow("SELECT id FROM buildings LIMIT 1").Scan(&buildingID)
	if err == sql.ErrNoRows {
		result, err := db.Exec("INSERT INTO buildings (name) VALUES ('Main Building')")
		require.NoError(t, err)
		id, _ := result.LastInsertId()
		buildingID = int(id)
	} else {
		require.NoError(t, err)
	}

	result, err := db.Exec(`
		INSERT INTO rooms (room_number, building_id, status) VALUES (?, ?, 'occupied')
	`, roomNumber, buildingID)
	require.NoError(t, err)

	id, _ := result.LastInsertId()
	return int(id)
}

func createContract(t *testing.T, db *sql.DB, roomID int, firstName string) int {
	t.Helper()

	result, err := db.Exec(`
		INSERT INTO tenants (first_name, last_name) VALUES (?, 'Testsuk')
	`, firstName)
	require.NoError(t, err)
	tenantID, _ := result.LastInsertId()

	result, err = db.Exec(`
		INSERT INTO contracts (tenant_id, room_id, start_date, status)
		VALUES (?, ?, '2025-01-01', 'active')
	`, tenantID, roomID)
	require.NoError(t, err)

	id, _ := result.LastInsertId()
	return int(id)
}

func addRate(t *testing.T, db *sql.DB, utilityCode string, ratePerUnit float64, effectiveDate string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO utility_rates (utility_type_id, rate_per_unit, effective_date)
		VALUES ((SELECT id FROM utility_types WHERE code = ?), ?, ?)
	`, utilityCode, ratePerUnit, effectiveDate)
	require.NoError(t, err)
}

func addReading(t *testing.T, db *sql.DB, roomID, cycleID int, utilityCode string, meterStart, meterEnd float64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO meter_readings (room_id, cycle_id, utility_type_id, meter_start, meter_end)
		VALUES (?, ?, (SELECT id FROM utility_types WHERE code = ?), ?, ?)
		ON CONFLICT(room_id, cycle_id, utility_type_id)
		DO UPDATE SET meter_start = excluded.meter_start, meter_end = excluded.meter_end
	`, roomID, cycleID, utilityCode, meterStart, meterEnd)
	require.NoError(t, err)
}

func countBills(t *testing.T, db *sql.DB, contractID, cycleID int) int {
	t.Helper()

	var count int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(*) FROM bills WHERE contract_id = ? AND cycle_id = ?
	`, contractID, cycleID).Scan(&count))
	return count
}
