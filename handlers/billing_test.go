package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napat44/dorm-billing/backend/database"
	"github.com/napat44/dorm-billing/backend/services"
)

func newTestBillingHandler(t *testing.T) (*BillingHandler, *sql.DB) {
	t.Helper()

	db, err := database.InitDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	cycles := services.NewCycleService(db, 5)
	rates := services.NewRateService(db)
	allocator := services.NewAllocator(db, cycles, rates, 1000)
	billing := services.NewBillingService(db, cycles, allocator)
	aggregator := services.NewBillAggregator(db, allocator)
	pdf := services.NewPDFGenerator("")

	return NewBillingHandler(db, cycles, billing, aggregator, pdf), db
}

func postReading(t *testing.T, h *BillingHandler, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/billing/readings", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.RecordReading(rec, req)
	return rec
}

func TestRecordReadingValidation(t *testing.T) {
	h, _ := newTestBillingHandler(t)

	rec := postReading(t, h, map[string]interface{}{
		"room_id": 1, "cycle_id": 1, "utility_code": "electric",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postReading(t, h, map[string]interface{}{
		"room_id": 1, "cycle_id": 1, "utility_code": "gas",
		"meter_start": 0.0, "meter_end": 10.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordReadingUnknownRoomAndCycle(t *testing.T) {
	h, db := newTestBillingHandler(t)

	rec := postReading(t, h, map[string]interface{}{
		"room_id": 999, "cycle_id": 1, "utility_code": "electric",
		"meter_start": 0.0, "meter_end": 10.0,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Room not found")

	result, err := db.Exec("INSERT INTO buildings (name) VALUES ('Main Building')")
	require.NoError(t, err)
	buildingID, _ := result.LastInsertId()
	result, err = db.Exec("INSERT INTO rooms (room_number, building_id) VALUES ('101', ?)", buildingID)
	require.NoError(t, err)
	roomID, _ := result.LastInsertId()

	rec = postReading(t, h, map[string]interface{}{
		"room_id": int(roomID), "cycle_id": 999, "utility_code": "electric",
		"meter_start": 0.0, "meter_end": 10.0,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cycle not found")
}

func TestRecordReadingReportsQueryFailure(t *testing.T) {
	h, db := newTestBillingHandler(t)

	// Break the room lookup outright; the handler must report the failure
	// instead of carrying on to the insert.
	_, err := db.Exec("DROP TABLE rooms")
	require.NoError(t, err)

	rec := postReading(t, h, map[string]interface{}{
		"room_id": 1, "cycle_id": 1, "utility_code": "electric",
		"meter_start": 0.0, "meter_end": 10.0,
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Database error")
}

func TestRecordReadingSuccess(t *testing.T) {
	h, db := newTestBillingHandler(t)

	result, err := db.Exec("INSERT INTO buildings (name) VALUES ('Main Building')")
	require.NoError(t, err)
	buildingID, _ := result.LastInsertId()
	result, err = db.Exec("INSERT INTO rooms (room_number, building_id) VALUES ('101', ?)", buildingID)
	require.NoError(t, err)
	roomID, _ := result.LastInsertId()

	cycle, err := services.NewCycleService(db, 5).GetOrCreate(2568, 10)
	require.NoError(t, err)

	rec := postReading(t, h, map[string]interface{}{
		"room_id": int(roomID), "cycle_id": cycle.ID, "utility_code": "electric",
		"meter_start": 9823.0, "meter_end": 173.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 350.0, resp["usage"])

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM meter_readings WHERE room_id = ? AND cycle_id = ?",
		roomID, cycle.ID).Scan(&count))
	assert.Equal(t, 1, count)
}
