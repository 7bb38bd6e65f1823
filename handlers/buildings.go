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

type BuildingHandler struct {
	db *sql.DB
}

func NewBuildingHandler(db *sql.DB) *BuildingHandler {
	return &BuildingHandler{db: db}
}

func (h *BuildingHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, COALESCE(address, ''), COALESCE(notes, ''), created_at, updated_at
		FROM buildings
		ORDER BY name
	`)
	if err != nil {
		log.Printf("Error listing buildings: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}
	defer rows.Close()

	buildings := []models.Building{}
	for rows.Next() {
		var b models.Building
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
			log.Printf("Error scanning building: %v", err)
			continue
		}
		buildings = append(buildings, b)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buildings)
}

func (h *BuildingHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var b models.Building
	err = h.db.QueryRow(`
		SELECT id, name, COALESCE(address, ''), COALESCE(notes, ''), created_at, updated_at
		FROM buildings WHERE id = ?
	`, id).Scan(&b.ID, &b.Name, &b.Address, &b.Notes, &b.CreatedAt, &b.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Building not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error getting building: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b)
}

func (h *BuildingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b models.Building
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if b.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO buildings (name, address, notes) VALUES (?, ?, ?)
	`, b.Name, b.Address, b.Notes)
	if err != nil {
		log.Printf("Error creating building: %v", err)
		http.Error(w, "Failed to create building", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	b.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(b)
}

func (h *BuildingHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var b models.Building
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE buildings SET name = ?, address = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, b.Name, b.Address, b.Notes, id)
	if err != nil {
		log.Printf("Error updating building: %v", err)
		http.Error(w, "Failed to update building", http.StatusInternalServerError)
		return
	}

	b.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b)
}

func (h *BuildingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var roomCount int
	h.db.QueryRow("SELECT COUNT(*) FROM rooms WHERE building_id = ?", id).Scan(&roomCount)
	if roomCount > 0 {
		http.Error(w, "Building still has rooms", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM buildings WHERE id = ?", id)
	if err != nil {
		log.Printf("Error deleting building: %v", err)
		http.Error(w, "Failed to delete building", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
