package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/napat44/dorm-billing/backend/models"
)

// PDFGenerator renders bill statements. It is fed exclusively by the
// aggregator's reconstructed view; it never recomputes usage or amounts.
type PDFGenerator struct {
	dormName string
}

func NewPDFGenerator(dormName string) *PDFGenerator {
	if dormName == "" {
		dormName = "Dormitory Office"
	}
	return &PDFGenerator{dormName: dormName}
}

// GenerateBillPDF renders one reconstructed bill to a PDF document.
func (pg *PDFGenerator) GenerateBillPDF(view *models.BillView, cycle *models.BillingCycle) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 123, 255)
	pdf.Cell(0, 10, pg.dormName)
	pdf.Ln(9)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, fmt.Sprintf("Utility Bill #%d - %02d/%d", view.BillID, cycle.BillingMonth, cycle.BillingYear))
	pdf.Ln(10)

	// Status badge
	pdf.SetFillColor(212, 237, 218)
	pdf.SetTextColor(21, 87, 36)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, view.Status, "", 0, "C", true, 0, "")
	pdf.Ln(12)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Room %s - %s", view.RoomNumber, view.TenantName))
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Billing period: %s to %s", cycle.StartDate, cycle.EndDate))
	pdf.Ln(4)
	pdf.Cell(0, 5, fmt.Sprintf("Due date: %s", view.DueDate))
	pdf.Ln(10)

	// Table header
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(50, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Meter Start", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Meter End", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 7, "Units", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 7, "Rate", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 0, "R", true, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 9)
	pg.utilityRow(pdf, "Electricity", view.Electric)
	pg.utilityRow(pdf, "Water", view.Water)

	pdf.CellFormat(130, 7, "Maintenance fee", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, fmt.Sprintf("%.2f", view.MaintenanceFee), "1", 0, "R", false, 0, "")
	pdf.Ln(7)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(130, 8, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, fmt.Sprintf("%.2f", view.TotalAmount), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	if view.RateWarning {
		pdf.SetTextColor(200, 120, 0)
		pdf.SetFont("Arial", "B", 9)
		pdf.Cell(0, 5, "Note: a utility rate was missing for this period and was billed at 0. Please contact the office.")
		pdf.Ln(10)
		pdf.SetTextColor(0, 0, 0)
	}

	// Payment QR with the bill reference and amount for the office scanner
	qrPayload := fmt.Sprintf("DORMBILL|%d|%s|%.2f|%s", view.BillID, view.RoomNumber, view.TotalAmount, view.DueDate)
	qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
	if err == nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("payment-qr", opts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("payment-qr", 15, pdf.GetY(), 35, 35, false, opts, 0, "")
		pdf.SetXY(55, pdf.GetY()+14)
		pdf.SetFont("Arial", "", 9)
		pdf.Cell(0, 5, "Scan to reference this bill when paying at the office.")
	}

	pdf.SetY(-25)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.Cell(0, 5, fmt.Sprintf("Generated %s", time.Now().Format("02.01.2006 15:04")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render bill PDF: %v", err)
	}
	return buf.Bytes(), nil
}

func (pg *PDFGenerator) utilityRow(pdf *gofpdf.Fpdf, label string, line *models.UtilityLine) {
	if line == nil {
		pdf.CellFormat(50, 7, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(80, 7, "no reading", "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, "0.00", "1", 0, "R", false, 0, "")
		pdf.Ln(7)
		return
	}

	pdf.CellFormat(50, 7, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.0f", line.MeterStart), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.0f", line.MeterEnd), "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, fmt.Sprintf("%.0f", line.Usage), "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, fmt.Sprintf("%.2f", line.Rate), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", line.Amount), "1", 0, "R", false, 0, "")
	pdf.Ln(7)
}
