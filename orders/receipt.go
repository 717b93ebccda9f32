package orders

import (
	"bytes"
	"fmt"

	"fancystore/models"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// QRPayload is what the receipt's QR code encodes.
func QRPayload(o *models.Order) string {
	return fmt.Sprintf("%s|%s", o.GatewayOrderID, o.GatewayPaymentID)
}

func amountLabel(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "Amount paid"
	case models.OrderFailed:
		return "Amount (payment failed)"
	}
	return "Amount due"
}

// RenderReceipt draws an A4 receipt for the order.
func RenderReceipt(v *models.OrderView) ([]byte, error) {
	o := &v.Order
	qrPNG, err := qrcode.Encode(QRPayload(o), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Fancy Store receipt "+o.ID, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Fancy Store - Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	for _, row := range [][2]string{
		{"Order", o.ID},
		{"Gateway order", o.GatewayOrderID},
		{"Payment", o.GatewayPaymentID},
		{"Status", string(o.Status)},
		{"Date", o.CreatedAt.Format("02 Jan 2006 15:04 MST")},
	} {
		pdf.Cell(35, 7, row[0]+":")
		pdf.Cell(0, 7, row[1])
		pdf.Ln(7)
	}
	pdf.Ln(3)

	d := o.DeliveryDetails
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Deliver to")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(110, 6, fmt.Sprintf("%s\n%s\n%s - %s\nPhone: %s", d.Name, d.Address, d.City, d.Pincode, d.Phone), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Unit", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, item := range v.Items {
		name := item.Name
		if item.Product == nil {
			name += " (unavailable)"
		}
		unit := decimal.NewFromFloat(item.UnitCost)
		line := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		pdf.CellFormat(90, 8, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprint(item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, unit.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, line.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, amountLabel(o.Status)+" ("+o.Currency+")", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, decimal.NewFromFloat(o.Amount).StringFixed(2), "1", 1, "R", false, 0, "")

	imageOpts := gofpdf.ImageOptions{
		ImageType: "PNG",
	}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
