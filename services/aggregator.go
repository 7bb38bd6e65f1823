package services

import (
	"database/sql"

	"github.com/napat44/dorm-billing/backend/models"
)

// BillAggregator is the read side of billing. It never trusts the amounts
// stored on a bill row: every view is recomputed from the current meter
// readings, rates and contracts with the same allocation logic the
// generator uses, so corrections made after a bill was drafted are
// reflected in listings and exports.
type BillAggregator struct {
	db        *sql.DB
	allocator *Allocator
}

func NewBillAggregator(db *sql.DB, allocator *Allocator) *BillAggregator {
	return &BillAggregator{db: db, allocator: allocator}
}

// Reconstruct rebuilds the displayed amounts for an existing bill.
func (ba *BillAggregator) Reconstruct(contractID, cycleID int) (*models.BillView, error) {
	var billID int
	var status string
	err := ba.db.QueryRow(`
		SELECT id, status FROM bills WHERE contract_id = ? AND cycle_id = ?
	`, contractID, cycleID).Scan(&billID, &status)
	if err == sql.ErrNoRows {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}

	return ba.buildView(billID, contractID, cycleID, status)
}

// ReconstructByID rebuilds one bill looked up by its row id.
func (ba *BillAggregator) ReconstructByID(billID int) (*models.BillView, error) {
	var contractID, cycleID int
	var status string
	err := ba.db.QueryRow(`
		SELECT contract_id, cycle_id, status FROM bills WHERE id = ?
	`, billID).Scan(&contractID, &cycleID, &status)
	if err == sql.ErrNoRows {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}

	return ba.buildView(billID, contractID, cycleID, status)
}

// ListCycle reconstructs every bill in a cycle, ordered by room number.
func (ba *BillAggregator) ListCycle(cycleID int) ([]models.BillView, error) {
	rows, err := ba.db.Query(`
		SELECT b.id, b.contract_id, b.status
		FROM bills b
		JOIN contracts c ON b.contract_id = c.id
		JOIN rooms r ON c.room_id = r.id
		WHERE b.cycle_id = ?
		ORDER BY r.room_number, b.id
	`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type billRow struct {
		id         int
		contractID int
		status     string
	}
	billRows := []billRow{}
	for rows.Next() {
		var br billRow
		if err := rows.Scan(&br.id, &br.contractID, &br.status); err != nil {
			continue
		}
		billRows = append(billRows, br)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	views := []models.BillView{}
	for _, br := range billRows {
		view, err := ba.buildView(br.id, br.contractID, cycleID, br.status)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (ba *BillAggregator) buildView(billID, contractID, cycleID int, status string) (*models.BillView, error) {
	var roomID int
	var roomNumber, firstName, lastName string
	err := ba.db.QueryRow(`
		SELECT r.id, r.room_number, t.first_name, t.last_name
		FROM contracts c
		JOIN rooms r ON c.room_id = r.id
		JOIN tenants t ON c.tenant_id = t.id
		WHERE c.id = ?
	`, contractID).Scan(&roomID, &roomNumber, &firstName, &lastName)
	if err == sql.ErrNoRows {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}

	var dueDate string
	if err := ba.db.QueryRow(`SELECT due_date FROM billing_cycles WHERE id = ?`, cycleID).Scan(&dueDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}

	alloc, err := ba.allocator.Allocate(roomID, cycleID)
	if err != nil {
		return nil, err
	}

	return &models.BillView{
		BillID:         billID,
		ContractID:     contractID,
		CycleID:        cycleID,
		RoomNumber:     roomNumber,
		TenantName:     firstName + " " + lastName,
		MaintenanceFee: alloc.MaintenanceFee,
		Electric:       alloc.Electric,
		Water:          alloc.Water,
		TotalAmount:    alloc.TotalAmount,
		RateWarning:    alloc.RateWarning,
		Status:         status,
		DueDate:        dueDate,
	}, nil
}
