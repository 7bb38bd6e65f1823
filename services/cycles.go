package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/napat44/dorm-billing/backend/models"
)

// buddhistYearOffset converts between the Buddhist-era years cycles are
// identified by and the Gregorian years the calendar math runs on.
const buddhistYearOffset = 543

// CycleService resolves billing cycles by (year, month), creating them
// lazily on first access.
type CycleService struct {
	db            *sql.DB
	dueDateOffset int
}

func NewCycleService(db *sql.DB, dueDateOffset int) *CycleService {
	return &CycleService{db: db, dueDateOffset: dueDateOffset}
}

// GetOrCreate returns the cycle for (year, month), creating it with derived
// calendar boundaries if it does not exist yet. Concurrent first callers are
// safe: the UNIQUE(billing_year, billing_month) index is the real guard, and
// a constraint violation on insert means someone else just created the row,
// so it is re-fetched instead of surfaced.
func (cs *CycleService) GetOrCreate(year, month int) (*models.BillingCycle, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid billing month %d", month)
	}
	if year < 1 {
		return nil, fmt.Errorf("invalid billing year %d", year)
	}

	cycle, err := cs.getByYearMonth(year, month)
	if err == nil {
		return cycle, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	start, end, due := cs.cycleBounds(year, month)

	_, err = cs.db.Exec(`
		INSERT INTO billing_cycles (billing_year, billing_month, start_date, end_date, due_date, status)
		VALUES (?, ?, ?, ?, ?, 'open')
	`, year, month, start, end, due)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			// Lost the creation race, the row exists now
			return cs.getByYearMonth(year, month)
		}
		return nil, fmt.Errorf("failed to create billing cycle: %v", err)
	}

	log.Printf("[CYCLES] Created cycle %d/%d (%s to %s, due %s)", month, year, start, end, due)
	return cs.getByYearMonth(year, month)
}

// GetByID fetches an existing cycle.
func (cs *CycleService) GetByID(cycleID int) (*models.BillingCycle, error) {
	cycle, err := scanCycle(cs.db.QueryRow(`
		SELECT id, billing_year, billing_month, start_date, end_date, due_date, status, created_at, updated_at
		FROM billing_cycles WHERE id = ?
	`, cycleID))
	if err == sql.ErrNoRows {
		return nil, ErrCycleNotFound
	}
	return cycle, err
}

// List returns all cycles, newest first.
func (cs *CycleService) List() ([]models.BillingCycle, error) {
	rows, err := cs.db.Query(`
		SELECT id, billing_year, billing_month, start_date, end_date, due_date, status, created_at, updated_at
		FROM billing_cycles
		ORDER BY billing_year DESC, billing_month DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cycles := []models.BillingCycle{}
	for rows.Next() {
		var c models.BillingCycle
		if err := rows.Scan(&c.ID, &c.BillingYear, &c.BillingMonth, &c.StartDate, &c.EndDate,
			&c.DueDate, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			continue
		}
		cycles = append(cycles, c)
	}
	return cycles, nil
}

// UpdateStatus changes a cycle's administrative status. Everything else on
// the row is immutable once bills reference it.
func (cs *CycleService) UpdateStatus(cycleID int, status string) error {
	result, err := cs.db.Exec(`
		UPDATE billing_cycles SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, cycleID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCycleNotFound
	}
	return nil
}

// ReferenceDate is the date rates are resolved at for a cycle: its end date,
// falling back to today when the stored date cannot be parsed.
func (cs *CycleService) ReferenceDate(cycle *models.BillingCycle) time.Time {
	if cycle != nil && cycle.EndDate != "" {
		if t, err := time.Parse("2006-01-02", cycle.EndDate); err == nil {
			return t
		}
	}
	return time.Now()
}

func (cs *CycleService) getByYearMonth(year, month int) (*models.BillingCycle, error) {
	return scanCycle(cs.db.QueryRow(`
		SELECT id, billing_year, billing_month, start_date, end_date, due_date, status, created_at, updated_at
		FROM billing_cycles WHERE billing_year = ? AND billing_month = ?
	`, year, month))
}

func (cs *CycleService) cycleBounds(year, month int) (start, end, due string) {
	gregorianYear := year - buddhistYearOffset

	first := time.Date(gregorianYear, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	dueDate := last.AddDate(0, 0, cs.dueDateOffset)

	return first.Format("2006-01-02"), last.Format("2006-01-02"), dueDate.Format("2006-01-02")
}

func scanCycle(row *sql.Row) (*models.BillingCycle, error) {
	var c models.BillingCycle
	err := row.Scan(&c.ID, &c.BillingYear, &c.BillingMonth, &c.StartDate, &c.EndDate,
		&c.DueDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
