package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/napat44/dorm-billing/backend/models"
	"github.com/napat44/dorm-billing/backend/services"
)

type DashboardHandler struct {
	db         *sql.DB
	aggregator *services.BillAggregator
}

func NewDashboardHandler(db *sql.DB, aggregator *services.BillAggregator) *DashboardHandler {
	return &DashboardHandler{db: db, aggregator: aggregator}
}

func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats models.DashboardStats

	h.db.QueryRow("SELECT COUNT(*) FROM buildings").Scan(&stats.TotalBuildings)
	h.db.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&stats.TotalRooms)
	h.db.QueryRow("SELECT COUNT(*) FROM rooms WHERE status = 'occupied'").Scan(&stats.OccupiedRooms)
	h.db.QueryRow("SELECT COUNT(*) FROM contracts WHERE status = 'active'").Scan(&stats.ActiveContracts)
	h.db.QueryRow("SELECT COUNT(*) FROM tenants").Scan(&stats.TotalTenants)

	// Cycle totals come from the aggregator so corrected readings and
	// rates show up here too
	if cycleIDStr := r.URL.Query().Get("cycle_id"); cycleIDStr != "" {
		cycleID, err := strconv.Atoi(cycleIDStr)
		if err != nil {
			http.Error(w, "Invalid cycle_id", http.StatusBadRequest)
			return
		}

		views, err := h.aggregator.ListCycle(cycleID)
		if err != nil {
			log.Printf("Error aggregating cycle %d: %v", cycleID, err)
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		stats.CycleBillCount = len(views)
		for _, view := range views {
			stats.CycleBilledTotal += view.TotalAmount
			if view.RateWarning {
				stats.CycleRateWarnings++
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *DashboardHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, action, COALESCE(details, ''), user_id, COALESCE(ip_address, ''), created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT 100
	`)
	if err != nil {
		log.Printf("Error listing logs: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	logs := []models.AdminLog{}
	for rows.Next() {
		var l models.AdminLog
		if err := rows.Scan(&l.ID, &l.Action, &l.Details, &l.UserID, &l.IPAddress, &l.CreatedAt); err == nil {
			logs = append(logs, l)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
