package kitchen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"arepazo-bot/models"
	"arepazo-bot/services"

	"github.com/jung-kurt/gofpdf"
)

// WriteInvoice renders a one-page PDF for the order under dir and returns
// the file path. The directory is created on demand.
func WriteInvoice(dir string, o *models.Order) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("invoice dir: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("El Arepazo"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Factura de venta"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, tr("Orden: "+o.Code), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Fecha: %s  Hora: %s", o.Date, o.Time)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Cliente: "+o.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Dirección: "+o.Address), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr("Detalle"), "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range strings.Split(o.Items, "\n") {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, tr("Total: "+services.FormatPrice(o.Total)), "T", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr("Método de pago: "+o.PaymentMethod), "", 1, "R", false, 0, "")
	if o.PaymentMethod == models.PaymentCash && o.CashTendered > 0 {
		change := services.FormatPrice(o.ChangeDue)
		if change == "" { // exact cash, zero change
			change = "$ 0"
		}
		pdf.CellFormat(0, 5, tr("Paga con: "+services.FormatPrice(o.CashTendered)), "", 1, "R", false, 0, "")
		pdf.CellFormat(0, 5, tr("Cambio: "+change), "", 1, "R", false, 0, "")
	}

	path := filepath.Join(dir, fmt.Sprintf("factura_%s.pdf", o.Code))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write invoice %s: %w", o.Code, err)
	}
	return path, nil
}
