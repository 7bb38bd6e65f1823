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

type RoomHandler struct {
	db *sql.DB
}

func NewRoomHandler(db *sql.DB) *RoomHandler {
	return &RoomHandler{db: db}
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, room_number, building_id, room_type_id, floor, status, COALESCE(notes, ''), created_at, updated_at
		FROM rooms
	`
	args := []interface{}{}
	if buildingID := r.URL.Query().Get("building_id"); buildingID != "" {
		query += " WHERE building_id = ?"
		args = append(args, buildingID)
	}
	query += " ORDER BY building_id, room_number"

	rows, err := h.db.Query(query, args...)
	if err != nil {
		log.Printf("Error listing rooms: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var rm models.Room
		if err := rows.Scan(&rm.ID, &rm.RoomNumber, &rm.BuildingID, &rm.RoomTypeID, &rm.Floor,
			&rm.Status, &rm.Notes, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			log.Printf("Error scanning room: %v", err)
			continue
		}
		rooms = append(rooms, rm)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var rm models.Room
	err = h.db.QueryRow(`
		SELECT id, room_number, building_id, room_type_id, floor, status, COALESCE(notes, ''), created_at, updated_at
		FROM rooms WHERE id = ?
	`, id).Scan(&rm.ID, &rm.RoomNumber, &rm.BuildingID, &rm.RoomTypeID, &rm.Floor,
		&rm.Status, &rm.Notes, &rm.CreatedAt, &rm.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rm)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rm models.Room
	if err := json.NewDecoder(r.Body).Decode(&rm); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if rm.RoomNumber == "" || rm.BuildingID == 0 {
		http.Error(w, "room_number and building_id are required", http.StatusBadRequest)
		return
	}
	if rm.Status == "" {
		rm.Status = "vacant"
	}
	if rm.Floor == 0 {
		rm.Floor = 1
	}

	result, err := h.db.Exec(`
		INSERT INTO rooms (room_number, building_id, room_type_id, floor, status, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rm.RoomNumber, rm.BuildingID, rm.RoomTypeID, rm.Floor, rm.Status, rm.Notes)
	if err != nil {
		log.Printf("Error creating room: %v", err)
		http.Error(w, "Failed to create room", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	rm.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rm)
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var rm models.Room
	if err := json.NewDecoder(r.Body).Decode(&rm); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE rooms SET room_number = ?, building_id = ?, room_type_id = ?, floor = ?,
		       status = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, rm.RoomNumber, rm.BuildingID, rm.RoomTypeID, rm.Floor, rm.Status, rm.Notes, id)
	if err != nil {
		log.Printf("Error updating room: %v", err)
		http.Error(w, "Failed to update room", http.StatusInternalServerError)
		return
	}

	rm.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rm)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var contractCount int
	h.db.QueryRow("SELECT COUNT(*) FROM contracts WHERE room_id = ?", id).Scan(&contractCount)
	if contractCount > 0 {
		http.Error(w, "Room has contracts and cannot be deleted", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete room", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type RoomTypeHandler struct {
	db *sql.DB
}

func NewRoomTypeHandler(db *sql.DB) *RoomTypeHandler {
	return &RoomTypeHandler{db: db}
}

func (h *RoomTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, monthly_rent, COALESCE(description, ''), created_at, updated_at
		FROM room_types ORDER BY name
	`)
	if err != nil {
		log.Printf("Error listing room types: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}
	defer rows.Close()

	types := []models.RoomType{}
	for rows.Next() {
		var t models.RoomType
		if err := rows.Scan(&t.ID, &t.Name, &t.MonthlyRent, &t.Description, &t.CreatedAt, &t.UpdatedAt); err == nil {
			types = append(types, t)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types)
}

func (h *RoomTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t models.RoomType
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if t.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO room_types (name, monthly_rent, description) VALUES (?, ?, ?)
	`, t.Name, t.MonthlyRent, t.Description)
	if err != nil {
		http.Error(w, "Failed to create room type", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	t.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

func (h *RoomTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var t models.RoomType
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE room_types SET name = ?, monthly_rent = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.Name, t.MonthlyRent, t.Description, id)
	if err != nil {
		http.Error(w, "Failed to update room type", http.StatusInternalServerError)
		return
	}

	t.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *RoomTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec("DELETE FROM room_types WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete room type", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
