// Package export renders trip settlement reports as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/triptab/triptab/internal/models"
)

const (
	sharesSheet  = "Shares"
	summarySheet = "Summary"
)

// TripReport renders two sheets: every share in the trip, and the
// per-debtor/creditor pair totals. Self-shares (the payer owing
// themselves) are listed but excluded from the pair summary.
func TripReport(shares []models.ShareWithBill, names map[string]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeShares(f, shares, names); err != nil {
		return nil, err
	}
	if err := writeSummary(f, shares, names); err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	return buf, nil
}

func writeShares(f *excelize.File, shares []models.ShareWithBill, names map[string]string) error {
	if _, err := f.NewSheet(sharesSheet); err != nil {
		return fmt.Errorf("failed to create shares sheet: %w", err)
	}

	headers := []string{"Bill", "Date", "Paid By", "Owed By", "Share", "Paid", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sharesSheet, cell, h)
	}

	for i, s := range shares {
		row := i + 2
		f.SetCellValue(sharesSheet, fmt.Sprintf("A%d", row), s.Bill.Title)
		f.SetCellValue(sharesSheet, fmt.Sprintf("B%d", row),
			time.Unix(s.Bill.CreatedAt, 0).UTC().Format("2006-01-02"))
		f.SetCellValue(sharesSheet, fmt.Sprintf("C%d", row), displayName(names, s.Bill.PaidByUserID))
		f.SetCellValue(sharesSheet, fmt.Sprintf("D%d", row), displayName(names, s.Share.UserID))
		f.SetCellValue(sharesSheet, fmt.Sprintf("E%d", row), s.Share.AmountShare)
		f.SetCellValue(sharesSheet, fmt.Sprintf("F%d", row), s.Share.AmountPaid)
		f.SetCellValue(sharesSheet, fmt.Sprintf("G%d", row), string(s.Share.Status))
	}
	return nil
}

func writeSummary(f *excelize.File, shares []models.ShareWithBill, names map[string]string) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headers := []string{"Debtor", "Creditor", "Owed", "Paid", "Outstanding"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, h)
	}

	type pair struct{ debtor, creditor string }
	owed := make(map[pair]float64)
	paid := make(map[pair]float64)
	for _, s := range shares {
		if s.Share.UserID == s.Bill.PaidByUserID {
			continue
		}
		p := pair{debtor: s.Share.UserID, creditor: s.Bill.PaidByUserID}
		owed[p] += s.Share.AmountShare
		paid[p] += s.Share.AmountPaid
	}

	pairs := make([]pair, 0, len(owed))
	for p := range owed {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].debtor != pairs[j].debtor {
			return pairs[i].debtor < pairs[j].debtor
		}
		return pairs[i].creditor < pairs[j].creditor
	})

	for i, p := range pairs {
		row := i + 2
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), displayName(names, p.debtor))
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), displayName(names, p.creditor))
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), owed[p])
		f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), paid[p])
		f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), owed[p]-paid[p])
	}
	return nil
}

// displayName falls back to the raw ID when the user is unknown, so a
// report never drops a row over a missing profile.
func displayName(names map[string]string, userID string) string {
	if name, ok := names[userID]; ok && name != "" {
		return name
	}
	return userID
}
