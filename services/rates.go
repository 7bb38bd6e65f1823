package services

import (
	"database/sql"
	"log"
	"time"
)

// RateService resolves effective-dated utility rates. Rates are append-only
// rows; a price change is a new row with a later effective_date.
type RateService struct {
	db *sql.DB
}

func NewRateService(db *sql.DB) *RateService {
	return &RateService{db: db}
}

// ResolveRate returns the rate per unit for a utility type at a reference
// date: the most recent rate whose effective_date does not exceed it. When
// no rate row qualifies the resolved rate is 0 and found is false - billing
// proceeds with a zero price rather than failing, and callers use the flag
// to mark the bill for operator review.
func (rs *RateService) ResolveRate(utilityCode string, referenceDate time.Time) (rate float64, found bool, err error) {
	err = rs.db.QueryRow(`
		SELECT r.rate_per_unit
		FROM utility_rates r
		JOIN utility_types t ON r.utility_type_id = t.id
		WHERE t.code = ? AND r.effective_date <= ?
		ORDER BY r.effective_date DESC, r.id DESC
		LIMIT 1
	`, utilityCode, referenceDate.Format("2006-01-02")).Scan(&rate)

	if err == sql.ErrNoRows {
		log.Printf("[RATES] No %s rate effective at %s, billing with 0", utilityCode, referenceDate.Format("2006-01-02"))
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}
