package statements

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"invobridge/funding-portal-backend/internal/funding"
)

var csvHeader = []string{
	"investment_id", "investor_id", "tranche",
	"principal", "interest", "expected_return", "actual_return",
}

func renderCSV(b *funding.RepaymentBreakdown) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, entry := range b.Entries {
		actual := ""
		if entry.ActualReturn != nil {
			actual = strconv.FormatInt(*entry.ActualReturn, 10)
		}
		record := []string{
			entry.InvestmentID.String(),
			entry.InvestorID.String(),
			string(entry.Tranche),
			strconv.FormatInt(entry.Principal, 10),
			strconv.FormatInt(entry.Interest, 10),
			strconv.FormatInt(entry.ExpectedReturn, 10),
			actual,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	totals := []string{
		"TOTAL", "", "",
		strconv.FormatInt(b.TotalPrincipal, 10),
		strconv.FormatInt(b.TotalInterest, 10),
		strconv.FormatInt(b.TotalExpected, 10),
		"",
	}
	if err := w.Write(totals); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
