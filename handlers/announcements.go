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

type AnnouncementHandler struct {
	db *sql.DB
}

func NewAnnouncementHandler(db *sql.DB) *AnnouncementHandler {
	return &AnnouncementHandler{db: db}
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, COALESCE(body, ''), is_published, created_at, updated_at
		FROM announcements
		ORDER BY created_at DESC
	`)
	if err != nil {
		log.Printf("Error listing announcements: %v", err)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]interface{}{})
		return
	}
	defer rows.Close()

	announcements := []models.Announcement{}
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.IsPublished, &a.CreatedAt, &a.UpdatedAt); err == nil {
			announcements = append(announcements, a)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(announcements)
}

func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var a models.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if a.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	result, err := h.db.Exec(`
		INSERT INTO announcements (title, body, is_published) VALUES (?, ?, ?)
	`, a.Title, a.Body, a.IsPublished)
	if err != nil {
		log.Printf("Error creating announcement: %v", err)
		http.Error(w, "Failed to create announcement", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	a.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var a models.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec(`
		UPDATE announcements SET title = ?, body = ?, is_published = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, a.Title, a.Body, a.IsPublished, id)
	if err != nil {
		http.Error(w, "Failed to update announcement", http.StatusInternalServerError)
		return
	}

	a.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a)
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	_, err = h.db.Exec("DELETE FROM announcements WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete announcement", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
