package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/services/i18n"
)

// XLSXContentType is the media type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LedgerFilename names the export, e.g. public_ledger_2024-05-01.xlsx.
func LedgerFilename(now time.Time) string {
	return fmt.Sprintf("public_ledger_%s.xlsx", now.Format("2006-01-02"))
}

// GenerateLedgerWorkbook writes the public transactions ledger and a
// project summary sheet. Amounts are written as numbers in currency units
// so spreadsheets can sum them.
func GenerateLedgerWorkbook(ctx context.Context, projects []backend.PublicProject, rows []dashboard.LedgerRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFormat := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	// --- Transactions ---
	txSheet := i18n.T(ctx, "public.transactions")
	if err := f.SetSheetName("Sheet1", txSheet); err != nil {
		return nil, err
	}
	txHeaders := []any{
		"Project ID",
		i18n.T(ctx, "government.name"),
		i18n.T(ctx, "public.date"),
		i18n.T(ctx, "public.type"),
		i18n.T(ctx, "public.milestone"),
		i18n.T(ctx, "public.amount"),
	}
	if err := f.SetSheetRow(txSheet, "A1", &txHeaders); err != nil {
		return nil, err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{r.ProjectID, r.ProjectName, r.Date, r.Type, r.Milestone, units(r.Amount)}
		if err := f.SetSheetRow(txSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := formatSheet(f, txSheet, headerStyle, moneyStyle, "F2", fmt.Sprintf("F%d", len(rows)+1), len(rows), []colWidth{
		{"A", "A", 12}, {"B", "E", 24}, {"F", "F", 16},
	}); err != nil {
		return nil, err
	}

	// --- Projects ---
	projectSheet := i18n.T(ctx, "public.projects")
	if _, err := f.NewSheet(projectSheet); err != nil {
		return nil, err
	}
	projectHeaders := []any{
		"Project ID",
		i18n.T(ctx, "government.name"),
		"Status",
		i18n.T(ctx, "common.budget"),
		i18n.T(ctx, "common.released"),
		i18n.T(ctx, "common.milestones"),
	}
	if err := f.SetSheetRow(projectSheet, "A1", &projectHeaders); err != nil {
		return nil, err
	}
	for i, p := range projects {
		completed, total := p.Progress()
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{p.ID, p.Name, p.Status, units(p.Budget), units(p.FundsReleased), fmt.Sprintf("%d/%d", completed, total)}
		if err := f.SetSheetRow(projectSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := formatSheet(f, projectSheet, headerStyle, moneyStyle, "D2", fmt.Sprintf("E%d", len(projects)+1), len(projects), []colWidth{
		{"A", "A", 12}, {"B", "F", 20},
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

type colWidth struct {
	from, to string
	width    float64
}

// formatSheet bolds the header row, applies the money format to the
// moneyFrom:moneyTo range when the sheet has rows, and sets column widths.
func formatSheet(f *excelize.File, sheet string, headerStyle, moneyStyle int, moneyFrom, moneyTo string, rowCount int, widths []colWidth) error {
	if err := f.SetCellStyle(sheet, "A1", "F1", headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	if rowCount > 0 {
		if err := f.SetCellStyle(sheet, moneyFrom, moneyTo, moneyStyle); err != nil {
			return fmt.Errorf("failed to style %s amounts: %w", sheet, err)
		}
	}
	for _, w := range widths {
		if err := f.SetColWidth(sheet, w.from, w.to, w.width); err != nil {
			return fmt.Errorf("failed to size %s columns %s:%s: %w", sheet, w.from, w.to, err)
		}
	}
	return nil
}

func units(m backend.Money) float64 {
	return m.AsDecimal().InexactFloat64()
}
