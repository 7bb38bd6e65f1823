package services

import (
	"database/sql"
	"log"

	"github.com/napat44/dorm-billing/backend/models"
)

// Allocation is one tenant's share of a room's utility cost for a cycle,
// plus the flat maintenance fee.
type Allocation struct {
	Electric       *models.UtilityLine
	Water          *models.UtilityLine
	MaintenanceFee float64
	ElectricAmount float64
	WaterAmount    float64
	TotalAmount    float64
	TenantCount    int
	HasReadings    bool
	RateWarning    bool
}

// Allocator turns a room's meter readings into per-tenant amounts. Utility
// cost is split evenly across the room's currently active contracts; the
// maintenance fee is charged to every tenant in full.
type Allocator struct {
	db             *sql.DB
	cycles         *CycleService
	rates          *RateService
	maintenanceFee float64
}

func NewAllocator(db *sql.DB, cycles *CycleService, rates *RateService, maintenanceFee float64) *Allocator {
	return &Allocator{db: db, cycles: cycles, rates: rates, maintenanceFee: maintenanceFee}
}

// Allocate computes one tenant's amounts for roomID in cycleID. A missing
// utility reading contributes 0 rather than failing; a bill with partial
// data can be generated and later corrected through the read-side view.
func (a *Allocator) Allocate(roomID, cycleID int) (*Allocation, error) {
	cycle, err := a.cycles.GetByID(cycleID)
	if err != nil {
		return nil, err
	}
	referenceDate := a.cycles.ReferenceDate(cycle)

	rows, err := a.db.Query(`
		SELECT t.code, mr.meter_start, mr.meter_end
		FROM meter_readings mr
		JOIN utility_types t ON mr.utility_type_id = t.id
		WHERE mr.room_id = ? AND mr.cycle_id = ?
	`, roomID, cycleID)
	if err != nil {
		return nil, err
	}

	// Snapshot the readings before resolving rates. The pool is a single
	// connection, so a nested query while this cursor is open would starve
	// waiting for it.
	type readingRow struct {
		code       string
		meterStart float64
		meterEnd   float64
	}
	readings := []readingRow{}
	for rows.Next() {
		var rr readingRow
		if err := rows.Scan(&rr.code, &rr.meterStart, &rr.meterEnd); err != nil {
			continue
		}
		readings = append(readings, rr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	alloc := &Allocation{MaintenanceFee: a.maintenanceFee}

	lines := map[string]*models.UtilityLine{}
	for _, rr := range readings {
		usage := ComputeUsage(rr.meterStart, rr.meterEnd, rr.code)
		rate, found, err := a.rates.ResolveRate(rr.code, referenceDate)
		if err != nil {
			return nil, err
		}
		if !found {
			alloc.RateWarning = true
		}

		lines[rr.code] = &models.UtilityLine{
			MeterStart: rr.meterStart,
			MeterEnd:   rr.meterEnd,
			Usage:      usage,
			Rate:       rate,
			Amount:     usage * rate,
		}
		alloc.HasReadings = true
	}

	tenantCount, err := a.activeTenantCount(roomID)
	if err != nil {
		return nil, err
	}
	alloc.TenantCount = tenantCount

	// Divide each utility's room total into the per-tenant share
	if line := lines[UtilityElectric]; line != nil {
		line.Amount = line.Amount / float64(tenantCount)
		alloc.Electric = line
		alloc.ElectricAmount = line.Amount
	}
	if line := lines[UtilityWater]; line != nil {
		line.Amount = line.Amount / float64(tenantCount)
		alloc.Water = line
		alloc.WaterAmount = line.Amount
	}

	alloc.TotalAmount = alloc.MaintenanceFee + alloc.ElectricAmount + alloc.WaterAmount
	return alloc, nil
}

// activeTenantCount counts the room's active contracts at allocation time,
// with a floor of 1 so an orphaned room never divides by zero.
func (a *Allocator) activeTenantCount(roomID int) (int, error) {
	var count int
	err := a.db.QueryRow(`
		SELECT COUNT(*) FROM contracts WHERE room_id = ? AND status = 'active'
	`, roomID).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count < 1 {
		log.Printf("[ALLOCATION] Room %d has no active contract, splitting by 1", roomID)
		count = 1
	}
	return count, nil
}
