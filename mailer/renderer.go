package mailer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"mealscan/model"
)

// CouponRenderer renders a one-page PDF booklet with one QR coupon per
// meal slot. The QR payload is "<ticketId>|<meal>".
type CouponRenderer struct{}

// NewCouponRenderer constructs the default PDF renderer.
func NewCouponRenderer() *CouponRenderer {
	return &CouponRenderer{}
}

// RenderCoupon builds the coupon PDF for one participant.
func (r *CouponRenderer) RenderCoupon(p *model.Participant, ev *model.Event, meals []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pdf.SetAutoPageBreak(false, 0)

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, ev.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s | %s", ev.Date.Format("02 Jan 2006"), ev.Venue), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Participant block
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, p.Name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if p.RollNo != "" {
		pdf.CellFormat(0, 6, "Roll No: "+p.RollNo, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Ticket ID: "+p.TicketID, "", 1, "L", false, 0, "")
	if p.FoodPreference != "" {
		pdf.CellFormat(0, 6, "Food: "+p.FoodPreference, "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	// One QR per meal, two per row.
	const qrSize = 45.0
	x, y := 15.0, pdf.GetY()
	for i, meal := range meals {
		payload := p.TicketID + "|" + meal
		png, err := qrcode.Encode(payload, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("error encoding QR for %s: %w", meal, err)
		}
		name := "qr-" + meal
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.ImageOptions(name, x, y, qrSize, qrSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetXY(x, y+qrSize+1)
		pdf.CellFormat(qrSize, 6, meal, "", 0, "C", false, 0, "")

		if i%2 == 0 {
			x += qrSize + 45
		} else {
			x = 15
			y += qrSize + 12
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error writing coupon pdf: %w", err)
	}
	return buf.Bytes(), nil
}
