package statements

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"invobridge/funding-portal-backend/internal/funding"
)

const statementSheet = "Statement"

func renderXLSX(b *funding.RepaymentBreakdown) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", statementSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// Summary block at the top, table below.
	summary := [][2]interface{}{
		{"Pool", b.PoolID.String()},
		{"Status", string(b.Status)},
		{"Currency", b.Currency},
		{"Total principal", formatAmount(b.TotalPrincipal)},
		{"Total interest", formatAmount(b.TotalInterest)},
		{"Total expected", formatAmount(b.TotalExpected)},
		{"Platform fee (bps)", b.FeeBps},
		{"Suggested repayment", formatAmount(b.SuggestedRepayment)},
	}
	for i, item := range summary {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		f.SetCellValue(statementSheet, labelCell, item[0])
		f.SetCellValue(statementSheet, valueCell, item[1])
	}

	headerRow := len(summary) + 2
	for i, col := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		f.SetCellValue(statementSheet, cell, col)
		f.SetCellStyle(statementSheet, cell, cell, headerStyle)
	}

	for rowIdx, entry := range b.Entries {
		rowNum := headerRow + 1 + rowIdx
		var actual interface{}
		if entry.ActualReturn != nil {
			actual = formatAmount(*entry.ActualReturn)
		} else {
			actual = ""
		}
		values := []interface{}{
			entry.InvestmentID.String(),
			entry.InvestorID.String(),
			string(entry.Tranche),
			formatAmount(entry.Principal),
			formatAmount(entry.Interest),
			formatAmount(entry.ExpectedReturn),
			actual,
		}
		for colIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			f.SetCellValue(statementSheet, cell, val)
		}
	}

	f.SetColWidth(statementSheet, "A", "B", 38)
	f.SetColWidth(statementSheet, "C", "G", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
