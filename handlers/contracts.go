package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/napat44/dorm-billing/backend/models"
)

type ContractHandler struct {
	db *sql.DB
}

func NewContractHandler(db *sql.DB) *ContractHandler {
	return &ContractHandler{db: db}
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT c.id, c.tenant_id, c.room_id, c.start_date, c.end_date, c.deposit, c.status,
		       c.created_at, c.updated_at,
		       t.first_name, t.last_name, rm.room_number
		FROM contracts c
		JOIN tenants t ON c.tenant_id = t.id
		JOIN rooms rm ON c.room_id = rm.id
	`
	args := []interface{}{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE c.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY rm.room_number, c.start_date"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("Error listing contracts: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}
	defer rows.Close()

	contracts := []models.Contract{}
	for rows.Next() {
		var c models.Contract
		var firstName, lastName, roomNumber string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.RoomID, &c.StartDate, &c.EndDate, &c.Deposit,
			&c.Status, &c.CreatedAt, &c.UpdatedAt, &firstName, &lastName, &roomNumber); err != nil {
			log.Printf("Error scanning contract: %v", err)
			continue
		}
		c.Tenant = &models.Tenant{ID: c.TenantID, FirstName: firstName, LastName: lastName}
		c.Room = &models.Room{ID: c.RoomID, RoomNumber: roomNumber}
		contracts = append(contracts, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contracts)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var c models.Contract
	err = h.db.QueryRow(`
		SELECT id, tenant_id, room_id, start_date, end_date, deposit, status, created_at, updated_at
		FROM contracts WHERE id = ?
	`, id).Scan(&c.ID, &c.TenantID, &c.RoomID, &c.StartDate, &c.EndDate, &c.Deposit,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Contract not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c models.Contract
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if c.TenantID == 0 || c.RoomID == 0 {
		http.Error(w, "tenant_id and room_id are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if c.Status == "" {
		c.Status = "active"
	}
	if c.Status != "active" && c.Status != "ended" {
		http.Error(w, "status must be active or ended", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO contracts (tenant_id, room_id, start_date, end_date, deposit, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.TenantID, c.RoomID, c.StartDate, c.EndDate, c.Deposit, c.Status)
	if err != nil {
		log.Printf("Error creating contract: %v", err)
		http.Error(w, "Failed to create contract", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	c.ID = int(id)

	// Multiple active contracts may share a room; the room is occupied as
	// long as one is active.
	if c.Status == "active" {
		h.db.Exec("UPDATE rooms SET status = 'occupied', updated_at = CURRENT_TIMESTAMP WHERE id = ?", c.RoomID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var c models.Contract
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if c.Status != "active" && c.Status != "ended" {
		http.Error(w, "status must be active or ended", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE contracts SET start_date = ?, end_date = ?, deposit = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.StartDate, c.EndDate, c.Deposit, c.Status, id)
	if err != nil {
		log.Printf("Error updating contract: %v", err)
		http.Error(w, "Failed to update contract", http.StatusInternalServerError)
		return
	}

	h.refreshRoomStatus(id)

	c.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// End closes a contract: sets the end date and flips status to ended.
func (h *ContractHandler) End(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req struct {
		EndDate string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.EndDate == "" {
		req.EndDate = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", req.EndDate); err != nil {
		http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		UPDATE contracts SET end_date = ?, status = 'ended', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.EndDate, id)
	if err != nil {
		http.Error(w, "Failed to end contract", http.StatusInternalServerError)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		http.Error(w, "Contract not found", http.StatusNotFound)
		return
	}

	h.refreshRoomStatus(id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ended", "end_date": req.EndDate})
}

func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var billCount int
	h.db.QueryRow("SELECT COUNT(*) FROM bills WHERE contract_id = ?", id).Scan(&billCount)
	if billCount > 0 {
		http.Error(w, "Contract has bills and cannot be deleted", http.StatusConflict)
		return
	}

	var roomID int
	h.db.QueryRow("SELECT room_id FROM contracts WHERE id = ?", id).Scan(&roomID)

	_, err = h.db.Exec("DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete contract", http.StatusInternalServerError)
		return
	}

	h.refreshRoomStatusByRoom(roomID)

	w.WriteHeader(http.StatusNoContent)
}

// refreshRoomStatus marks the contract's room vacant when its last active
// contract is gone.
func (h *ContractHandler) refreshRoomStatus(contractID int) {
	var roomID int
	if err := h.db.QueryRow("SELECT room_id FROM contracts WHERE id = ?", contractID).Scan(&roomID); err != nil {
		return
	}
	h.refreshRoomStatusByRoom(roomID)
}

func (h *ContractHandler) refreshRoomStatusByRoom(roomID int) {
	if roomID == 0 {
		return
	}

	var activeCount int
	h.db.QueryRow("SELECT COUNT(*) FROM contracts WHERE room_id = ? AND status = 'active'", roomID).Scan(&activeCount)

	status := "vacant"
	if activeCount > 0 {
		status = "occupied"
	}
	h.db.Exec("UPDATE rooms SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", status, roomID)
}
