package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/napat44/dorm-billing/backend/models"
)

type TenantHandler struct {
	db *sql.DB
}

func NewTenantHandler(db *sql.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, first_name, last_name, COALESCE(national_id, ''), COALESCE(phone, ''),
		       COALESCE(email, ''), COALESCE(emergency_contact, ''), COALESCE(notes, ''),
		       created_at, updated_at
		FROM tenants
		ORDER BY first_name, last_name
	`)
	if err != nil {
		log.Printf("Error listing tenants: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.NationalID, &t.Phone,
			&t.Email, &t.EmergencyContact, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			log.Printf("Error scanning tenant: %v", err)
			continue
		}
		tenants = append(tenants, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenants)
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var t models.Tenant
	err = h.db.QueryRow(`
		SELECT id, first_name, last_name, COALESCE(national_id, ''), COALESCE(phone, ''),
		       COALESCE(email, ''), COALESCE(emergency_contact, ''), COALESCE(notes, ''),
		       created_at, updated_at
		FROM tenants WHERE id = ?
	`, id).Scan(&t.ID, &t.FirstName, &t.LastName, &t.NationalID, &t.Phone,
		&t.Email, &t.EmergencyContact, &t.Notes, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Tenant not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if t.FirstName == "" || t.LastName == "" {
		http.Error(w, "first_name and last_name are required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO tenants (first_name, last_name, national_id, phone, email, emergency_contact, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.FirstName, t.LastName, t.NationalID, t.Phone, t.Email, t.EmergencyContact, t.Notes)
	if err != nil {
		log.Printf("Error creating tenant: %v", err)
		http.Error(w, "Failed to create tenant", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	t.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var t models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE tenants SET first_name = ?, last_name = ?, national_id = ?, phone = ?,
		       email = ?, emergency_contact = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.FirstName, t.LastName, t.NationalID, t.Phone, t.Email, t.EmergencyContact, t.Notes, id)
	if err != nil {
		log.Printf("Error updating tenant: %v", err)
		http.Error(w, "Failed to update tenant", http.StatusInternalServerError)
		return
	}

	t.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var contractCount int
	h.db.QueryRow("SELECT COUNT(*) FROM contracts WHERE tenant_id = ?", id).Scan(&contractCount)
	if contractCount > 0 {
		http.Error(w, "Tenant has contracts and cannot be deleted", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete tenant", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
