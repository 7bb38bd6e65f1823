package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/mattn/go-sqlite3"

	"github.com/napat44/dorm-billing/backend/models"
)

// BillingService creates bills, one per (contract, cycle). Amounts are
// frozen on the bill row at creation time; later corrections to readings or
// rates show up only through the aggregator's reconstructed view.
type BillingService struct {
	db        *sql.DB
	cycles    *CycleService
	allocator *Allocator
}

func NewBillingService(db *sql.DB, cycles *CycleService, allocator *Allocator) *BillingService {
	return &BillingService{db: db, cycles: cycles, allocator: allocator}
}

// RunResult summarizes a batch billing run.
type RunResult struct {
	CycleID          int `json:"cycle_id"`
	Created          int `json:"created"`
	SkippedExisting  int `json:"skipped_existing"`
	SkippedNoReading int `json:"skipped_no_reading"`
	Failed           int `json:"failed"`
}

// CreateBill generates a single bill for a contract in a cycle. It fails
// with ErrBillExists when the contract is already billed for the cycle and
// with ErrNoMeterReadings when the contract's room has no reading recorded
// yet. The initial status defaults to draft.
func (bs *BillingService) CreateBill(contractID, cycleID int, status string) (*models.Bill, error) {
	if status == "" {
		status = "draft"
	}
	if status != "draft" && status != "sent" && status != "paid" {
		return nil, fmt.Errorf("invalid bill status %q", status)
	}

	var roomID int
	err := bs.db.QueryRow(`SELECT room_id FROM contracts WHERE id = ?`, contractID).Scan(&roomID)
	if err == sql.ErrNoRows {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}

	// Friendly pre-check; the UNIQUE(contract_id, cycle_id) index below is
	// the authoritative duplicate guard.
	exists, err := bs.billExists(contractID, cycleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBillExists
	}

	alloc, err := bs.allocator.Allocate(roomID, cycleID)
	if err != nil {
		return nil, err
	}
	if !alloc.HasReadings {
		return nil, fmt.Errorf("room %d, cycle %d: %w", roomID, cycleID, ErrNoMeterReadings)
	}

	return bs.insertBill(contractID, cycleID, status, alloc)
}

// RunBilling resolves (creating if needed) the cycle for (year, month) and
// generates a bill for every active contract whose room has at least one
// meter reading in the cycle. Re-running is idempotent: contracts that
// already have a bill are skipped. One room's bad data never aborts the
// run; failures are logged and counted.
func (bs *BillingService) RunBilling(year, month int) (*RunResult, error) {
	cycle, err := bs.cycles.GetOrCreate(year, month)
	if err != nil {
		return nil, err
	}

	log.Printf("[BILLING] === Batch run for cycle %d/%d (id %d) ===", month, year, cycle.ID)

	rows, err := bs.db.Query(`
		SELECT id, room_id FROM contracts WHERE status = 'active' ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type contractRow struct {
		id     int
		roomID int
	}
	contracts := []contractRow{}
	for rows.Next() {
		var c contractRow
		if err := rows.Scan(&c.id, &c.roomID); err != nil {
			continue
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &RunResult{CycleID: cycle.ID}

	for _, c := range contracts {
		exists, err := bs.billExists(c.id, cycle.ID)
		if err != nil {
			log.Printf("[BILLING] ERROR checking contract %d: %v", c.id, err)
			result.Failed++
			continue
		}
		if exists {
			result.SkippedExisting++
			continue
		}

		hasReading, err := bs.roomHasReading(c.roomID, cycle.ID)
		if err != nil {
			log.Printf("[BILLING] ERROR checking readings for room %d: %v", c.roomID, err)
			result.Failed++
			continue
		}
		if !hasReading {
			result.SkippedNoReading++
			continue
		}

		alloc, err := bs.allocator.Allocate(c.roomID, cycle.ID)
		if err != nil {
			log.Printf("[BILLING] ERROR allocating room %d for contract %d: %v", c.roomID, c.id, err)
			result.Failed++
			continue
		}

		if _, err := bs.insertBill(c.id, cycle.ID, "draft", alloc); err != nil {
			if errors.Is(err, ErrBillExists) {
				// Raced with a concurrent single creation
				result.SkippedExisting++
				continue
			}
			log.Printf("[BILLING] ERROR inserting bill for contract %d: %v", c.id, err)
			result.Failed++
			continue
		}
		result.Created++
	}

	log.Printf("[BILLING] === Run complete: %d created, %d already billed, %d without readings, %d failed ===",
		result.Created, result.SkippedExisting, result.SkippedNoReading, result.Failed)
	return result, nil
}

// UpdateStatus moves a bill between draft, sent and paid. Amounts are never
// updated in place.
func (bs *BillingService) UpdateStatus(billID int, status string) error {
	if status != "draft" && status != "sent" && status != "paid" {
		return fmt.Errorf("invalid bill status %q", status)
	}

	result, err := bs.db.Exec(`
		UPDATE bills SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, billID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (bs *BillingService) insertBill(contractID, cycleID int, status string, alloc *Allocation) (*models.Bill, error) {
	rateWarning := 0
	if alloc.RateWarning {
		rateWarning = 1
	}

	result, err := bs.db.Exec(`
		INSERT INTO bills (contract_id, cycle_id, maintenance_fee, electric_amount, water_amount, total_amount, status, rate_warning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, contractID, cycleID, alloc.MaintenanceFee, alloc.ElectricAmount, alloc.WaterAmount,
		alloc.TotalAmount, status, rateWarning)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, ErrBillExists
		}
		return nil, fmt.Errorf("failed to create bill: %v", err)
	}

	id, _ := result.LastInsertId()

	if alloc.RateWarning {
		log.Printf("[BILLING] WARNING: Bill %d generated with a missing rate (billed 0), review totals", id)
	}

	return &models.Bill{
		ID:             int(id),
		ContractID:     contractID,
		CycleID:        cycleID,
		MaintenanceFee: alloc.MaintenanceFee,
		ElectricAmount: alloc.ElectricAmount,
		WaterAmount:    alloc.WaterAmount,
		TotalAmount:    alloc.TotalAmount,
		Status:         status,
		RateWarning:    alloc.RateWarning,
	}, nil
}

func (bs *BillingService) billExists(contractID, cycleID int) (bool, error) {
	var one int
	err := bs.db.QueryRow(`
		SELECT 1 FROM bills WHERE contract_id = ? AND cycle_id = ?
	`, contractID, cycleID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (bs *BillingService) roomHasReading(roomID, cycleID int) (bool, error) {
	var one int
	err := bs.db.QueryRow(`
		SELECT 1 FROM meter_readings WHERE room_id = ? AND cycle_id = ? LIMIT 1
	`, roomID, cycleID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
