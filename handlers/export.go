package handlers

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/napat44/dorm-billing/backend/models"
	"github.com/napat44/dorm-billing/backend/services"
)

// ExportHandler streams a cycle's bills as CSV. It goes through the
// aggregator, so exported amounts always reflect the current readings and
// rates rather than the amounts frozen at generation time.
type ExportHandler struct {
	cycles     *services.CycleService
	aggregator *services.BillAggregator
}

func NewExportHandler(cycles *services.CycleService, aggregator *services.BillAggregator) *ExportHandler {
	return &ExportHandler{cycles: cycles, aggregator: aggregator}
}

func (h *ExportHandler) ExportBills(w http.ResponseWriter, r *http.Request) {
	cycleID, err := strconv.Atoi(r.URL.Query().Get("cycle_id"))
	if err != nil {
		http.Error(w, "cycle_id is required", http.StatusBadRequest)
		return
	}

	cycle, err := h.cycles.GetByID(cycleID)
	if err != nil {
		http.Error(w, "Cycle not found", http.StatusNotFound)
		return
	}

	views, err := h.aggregator.ListCycle(cycleID)
	if err != nil {
		log.Printf("Export error: %v", err)
		http.Error(w, "Failed to export bills", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	filename := fmt.Sprintf("bills-%d-%02d.csv", cycle.BillingYear, cycle.BillingMonth)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"Bill ID", "Room", "Tenant",
		"Electric Start", "Electric End", "Electric Usage", "Electric Rate", "Electric Amount",
		"Water Start", "Water End", "Water Usage", "Water Rate", "Water Amount",
		"Maintenance Fee", "Total", "Status", "Due Date", "Rate Warning",
	}
	if err := writer.Write(header); err != nil {
		log.Printf("Error writing CSV: %v", err)
		return
	}

	for _, view := range views {
		row := []string{
			strconv.Itoa(view.BillID),
			view.RoomNumber,
			view.TenantName,
		}
		row = append(row, utilityColumns(view.Electric)...)
		row = append(row, utilityColumns(view.Water)...)
		row = append(row,
			fmt.Sprintf("%.2f", view.MaintenanceFee),
			fmt.Sprintf("%.2f", view.TotalAmount),
			view.Status,
			view.DueDate,
			strconv.FormatBool(view.RateWarning),
		)

		if err := writer.Write(row); err != nil {
			log.Printf("Error writing CSV: %v", err)
			return
		}
	}
}

func utilityColumns(line *models.UtilityLine) []string {
	if line == nil {
		return []string{"", "", "", "", "0.00"}
	}
	return []string{
		fmt.Sprintf("%.0f", line.MeterStart),
		fmt.Sprintf("%.0f", line.MeterEnd),
		fmt.Sprintf("%.0f", line.Usage),
		fmt.Sprintf("%.2f", line.Rate),
		fmt.Sprintf("%.2f", line.Amount),
	}
}
