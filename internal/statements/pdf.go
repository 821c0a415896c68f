package statements

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"invobridge/funding-portal-backend/internal/funding"
)

func renderPDF(b *funding.RepaymentBreakdown) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Repayment Statement", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, fmt.Sprintf("Pool %s", b.PoolID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// Summary block
	pdf.SetTextColor(0, 0, 0)
	summary := []struct {
		label string
		value string
	}{
		{"Status", string(b.Status)},
		{"Currency", b.Currency},
		{"Total principal", formatAmount(b.TotalPrincipal)},
		{"Total interest", formatAmount(b.TotalInterest)},
		{"Total expected", formatAmount(b.TotalExpected)},
		{"Platform fee", fmt.Sprintf("%d bps", b.FeeBps)},
		{"Suggested repayment", formatAmount(b.SuggestedRepayment)},
	}
	for _, item := range summary {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Table header
	widths := []float64{52, 24, 28, 28, 28, 28}
	headers := []string{"Investor", "Tranche", "Principal", "Interest", "Expected", "Actual"}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for i, entry := range b.Entries {
		if i%2 == 1 {
			pdf.SetFillColor(242, 242, 242)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		actual := "-"
		if entry.ActualReturn != nil {
			actual = formatAmount(*entry.ActualReturn)
		}
		cells := []string{
			entry.InvestorID.String()[:8],
			string(entry.Tranche),
			formatAmount(entry.Principal),
			formatAmount(entry.Interest),
			formatAmount(entry.ExpectedReturn),
			actual,
		}
		for j, cell := range cells {
			align := "R"
			if j < 2 {
				align = "L"
			}
			pdf.CellFormat(widths[j], 7, cell, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
