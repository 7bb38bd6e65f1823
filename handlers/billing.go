package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/napat44/dorm-billing/backend/models"
	"github.com/napat44/dorm-billing/backend/services"
)

type BillingHandler struct {
	db             *sql.DB
	cycles         *services.CycleService
	billingService *services.BillingService
	aggregator     *services.BillAggregator
	pdfGenerator   *services.PDFGenerator
}

func NewBillingHandler(db *sql.DB, cycles *services.CycleService, billingService *services.BillingService,
	aggregator *services.BillAggregator, pdfGenerator *services.PDFGenerator) *BillingHandler {
	return &BillingHandler{
		db:             db,
		cycles:         cycles,
		billingService: billingService,
		aggregator:     aggregator,
		pdfGenerator:   pdfGenerator,
	}
}

func (h *BillingHandler) logToDatabase(action, details, ip string) {
	_, err := h.db.Exec(`
		INSERT INTO admin_logs (action, details, ip_address)
		VALUES (?, ?, ?)
	`, action, details, ip)
	if err != nil {
		log.Printf("[BILLING] Failed to write admin log: %v", err)
	}
}

type CycleRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (h *BillingHandler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	var req CycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	cycle, err := h.cycles.GetOrCreate(req.Year, req.Month)
	if err != nil {
		log.Printf("ERROR: Failed to resolve cycle %d/%d: %v", req.Month, req.Year, err)
		http.Error(w, "Failed to resolve billing cycle", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cycle)
}

func (h *BillingHandler) ListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.cycles.List()
	if err != nil {
		log.Printf("ERROR: Failed to list cycles: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cycles)
}

type CycleStatusRequest struct {
	Status string `json:"status"`
}

func (h *BillingHandler) UpdateCycleStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req CycleStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.cycles.UpdateStatus(id, req.Status); err != nil {
		if errors.Is(err, services.ErrCycleNotFound) {
			http.Error(w, "Cycle not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update cycle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": req.Status})
}

// MeterReadingRequest is the strict numeric boundary for operator-entered
// readings: values arrive as JSON numbers and are validated here before any
// computation sees them.
type MeterReadingRequest struct {
	RoomID      int      `json:"room_id"`
	CycleID     int      `json:"cycle_id"`
	UtilityCode string   `json:"utility_code"`
	MeterStart  *float64 `json:"meter_start"`
	MeterEnd    *float64 `json:"meter_end"`
}

func (h *BillingHandler) RecordReading(w http.ResponseWriter, r *http.Request) {
	var req MeterReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.MeterStart == nil || req.MeterEnd == nil {
		http.Error(w, "meter_start and meter_end are required", http.StatusBadRequest)
		return
	}
	if *req.MeterStart < 0 || *req.MeterEnd < 0 {
		http.Error(w, "Meter readings must not be negative", http.StatusBadRequest)
		return
	}
	if req.UtilityCode != services.UtilityElectric && req.UtilityCode != services.UtilityWater {
		http.Error(w, "utility_code must be electric or water", http.StatusBadRequest)
		return
	}

	var utilityTypeID int
	err := h.db.QueryRow(`SELECT id FROM utility_types WHERE code = ?`, req.UtilityCode).Scan(&utilityTypeID)
	if err != nil {
		http.Error(w, "Unknown utility type", http.StatusBadRequest)
		return
	}

	var exists int
	err = h.db.QueryRow(`SELECT 1 FROM rooms WHERE id = ?`, req.RoomID).Scan(&exists)
	if err == sql.ErrNoRows {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to check room %d: %v", req.RoomID, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	err = h.db.QueryRow(`SELECT 1 FROM billing_cycles WHERE id = ?`, req.CycleID).Scan(&exists)
	if err == sql.ErrNoRows {
		http.Error(w, "Cycle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to check cycle %d: %v", req.CycleID, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	// One reading per room/cycle/utility: a re-submission replaces the row.
	// A reading stays editable after a bill was generated from it; the
	// stored bill keeps its original amounts, only the reconstructed view
	// moves.
	_, err = h.db.Exec(`
		INSERT INTO meter_readings (room_id, cycle_id, utility_type_id, meter_start, meter_end)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(room_id, cycle_id, utility_type_id)
		DO UPDATE SET meter_start = excluded.meter_start, meter_end = excluded.meter_end,
		              updated_at = CURRENT_TIMESTAMP
	`, req.RoomID, req.CycleID, utilityTypeID, *req.MeterStart, *req.MeterEnd)

	if err != nil {
		log.Printf("ERROR: Failed to record reading: %v", err)
		http.Error(w, "Failed to record reading", http.StatusInternalServerError)
		return
	}

	usage := services.ComputeUsage(*req.MeterStart, *req.MeterEnd, req.UtilityCode)
	if usage < 0 {
		log.Printf("WARNING: Negative %s usage (%.0f) for room %d cycle %d, possible entry mistake",
			req.UtilityCode, usage, req.RoomID, req.CycleID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"room_id":      req.RoomID,
		"cycle_id":     req.CycleID,
		"utility_code": req.UtilityCode,
		"meter_start":  *req.MeterStart,
		"meter_end":    *req.MeterEnd,
		"usage":        usage,
	})
}

func (h *BillingHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	cycleID := r.URL.Query().Get("cycle_id")
	if cycleID == "" {
		http.Error(w, "cycle_id is required", http.StatusBadRequest)
		return
	}

	rows, err := h.db.Query(`
		SELECT mr.id, mr.room_id, mr.cycle_id, mr.utility_type_id, t.code,
		       mr.meter_start, mr.meter_end, mr.created_at, mr.updated_at
		FROM meter_readings mr
		JOIN utility_types t ON mr.utility_type_id = t.id
		WHERE mr.cycle_id = ?
		ORDER BY mr.room_id, t.code
	`, cycleID)
	if err != nil {
		log.Printf("ERROR: Failed to list readings: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	readings := []models.MeterReading{}
	for rows.Next() {
		var m models.MeterReading
		if err := rows.Scan(&m.ID, &m.RoomID, &m.CycleID, &m.UtilityTypeID, &m.UtilityCode,
			&m.MeterStart, &m.MeterEnd, &m.CreatedAt, &m.UpdatedAt); err == nil {
			readings = append(readings, m)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(readings)
}

func (h *BillingHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT r.id, r.utility_type_id, t.code, r.rate_per_unit, r.effective_date, r.created_at
		FROM utility_rates r
		JOIN utility_types t ON r.utility_type_id = t.id
		ORDER BY t.code, r.effective_date DESC
	`)
	if err != nil {
		log.Printf("ERROR: Failed to list rates: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	rates := []models.UtilityRate{}
	for rows.Next() {
		var rt models.UtilityRate
		if err := rows.Scan(&rt.ID, &rt.UtilityTypeID, &rt.UtilityCode, &rt.RatePerUnit,
			&rt.EffectiveDate, &rt.CreatedAt); err == nil {
			rates = append(rates, rt)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rates)
}

type RateRequest struct {
	UtilityCode   string   `json:"utility_code"`
	RatePerUnit   *float64 `json:"rate_per_unit"`
	EffectiveDate string   `json:"effective_date"`
}

// CreateRate appends a new rate row. Rates are never edited in place; a
// price change is a new row with a later effective date.
func (h *BillingHandler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.RatePerUnit == nil || *req.RatePerUnit < 0 {
		http.Error(w, "rate_per_unit must be a non-negative number", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.EffectiveDate); err != nil {
		http.Error(w, "effective_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var utilityTypeID int
	err := h.db.QueryRow(`SELECT id FROM utility_types WHERE code = ?`, req.UtilityCode).Scan(&utilityTypeID)
	if err != nil {
		http.Error(w, "Unknown utility type", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO utility_rates (utility_type_id, rate_per_unit, effective_date)
		VALUES (?, ?, ?)
	`, utilityTypeID, *req.RatePerUnit, req.EffectiveDate)
	if err != nil {
		log.Printf("ERROR: Failed to create rate: %v", err)
		http.Error(w, "Failed to create rate", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	log.Printf("SUCCESS: New %s rate %.2f effective %s (ID %d)", req.UtilityCode, *req.RatePerUnit, req.EffectiveDate, id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.UtilityRate{
		ID:            int(id),
		UtilityTypeID: utilityTypeID,
		UtilityCode:   req.UtilityCode,
		RatePerUnit:   *req.RatePerUnit,
		EffectiveDate: req.EffectiveDate,
	})
}

type CreateBillRequest struct {
	ContractID int    `json:"contract_id"`
	CycleID    int    `json:"cycle_id"`
	Status     string `json:"status"`
}

func (h *BillingHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	bill, err := h.billingService.CreateBill(req.ContractID, req.CycleID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBillExists):
			http.Error(w, "A bill already exists for this contract and cycle", http.StatusConflict)
		case errors.Is(err, services.ErrNoMeterReadings):
			http.Error(w, "Record the room's meter readings for this cycle before creating a bill", http.StatusPreconditionFailed)
		case errors.Is(err, services.ErrContractNotFound):
			http.Error(w, "Contract not found", http.StatusNotFound)
		case errors.Is(err, services.ErrCycleNotFound):
			http.Error(w, "Cycle not found", http.StatusNotFound)
		default:
			log.Printf("ERROR: Failed to create bill: %v", err)
			http.Error(w, "Failed to create bill", http.StatusInternalServerError)
		}
		return
	}

	h.logToDatabase("bill_created",
		fmt.Sprintf("Bill %d for contract %d, cycle %d, total %.2f", bill.ID, bill.ContractID, bill.CycleID, bill.TotalAmount),
		r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(bill)
}

type RunBillingRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (h *BillingHandler) RunBilling(w http.ResponseWriter, r *http.Request) {
	var req RunBillingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.billingService.RunBilling(req.Year, req.Month)
	if err != nil {
		log.Printf("ERROR: Batch billing run %d/%d failed: %v", req.Month, req.Year, err)
		http.Error(w, "Failed to run billing", http.StatusBadRequest)
		return
	}

	h.logToDatabase("billing_run",
		fmt.Sprintf("Cycle %d/%d: %d created, %d skipped", req.Month, req.Year, result.Created, result.SkippedExisting),
		r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *BillingHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	cycleID, err := strconv.Atoi(r.URL.Query().Get("cycle_id"))
	if err != nil {
		http.Error(w, "cycle_id is required", http.StatusBadRequest)
		return
	}

	views, err := h.aggregator.ListCycle(cycleID)
	if err != nil {
		log.Printf("ERROR: Failed to list bills for cycle %d: %v", cycleID, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (h *BillingHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	view, err := h.aggregator.ReconstructByID(id)
	if err != nil {
		if errors.Is(err, services.ErrBillNotFound) {
			http.Error(w, "Bill not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to reconstruct bill %d: %v", id, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

type BillStatusRequest struct {
	Status string `json:"status"`
}

func (h *BillingHandler) UpdateBillStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req BillStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.billingService.UpdateStatus(id, req.Status); err != nil {
		if errors.Is(err, services.ErrBillNotFound) {
			http.Error(w, "Bill not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": req.Status})
}

func (h *BillingHandler) GetBillPDF(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	view, err := h.aggregator.ReconstructByID(id)
	if err != nil {
		if errors.Is(err, services.ErrBillNotFound) {
			http.Error(w, "Bill not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	cycle, err := h.cycles.GetByID(view.CycleID)
	if err != nil {
		http.Error(w, "Cycle not found", http.StatusNotFound)
		return
	}

	pdfBytes, err := h.pdfGenerator.GenerateBillPDF(view, cycle)
	if err != nil {
		log.Printf("ERROR: Failed to generate PDF for bill %d: %v", id, err)
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bill-%d.pdf", id))
	w.Write(pdfBytes)
}
