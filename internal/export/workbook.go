// Package export writes spend breakdowns to xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tally/internal/core"
	"tally/internal/spend"
)

const (
	SummarySheet = "Summary"
	DetailsSheet = "Details"

	// numFmtAmount is the built-in "#,##0.00" format.
	numFmtAmount = 4
	// numFmtPercent is the built-in "0.00%" format.
	numFmtPercent = 10
)

// Report is a breakdown together with the drill-down of each of its
// categories, all computed from one snapshot.
type Report struct {
	Options   spend.Options
	Breakdown spend.Breakdown
	Details   map[core.Category][]spend.Contribution
}

// Build evaluates opts over snap.
func Build(snap spend.Snapshot, opts spend.Options) Report {
	b := spend.Aggregate(snap, opts)
	details := make(map[core.Category][]spend.Contribution, len(b.Categories))
	for _, ct := range b.Categories {
		details[ct.Category] = spend.DrillDown(snap, ct.Category, opts)
	}
	return Report{Options: opts, Breakdown: b, Details: details}
}

// WriteWorkbook renders r as an xlsx workbook with a Summary sheet (one row
// per category plus a total) and a Details sheet (one row per contribution,
// in category order).
func WriteWorkbook(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailsSheet); err != nil {
		return fmt.Errorf("add details sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeSummary(f, styles, r); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := writeDetails(f, styles, r); err != nil {
		return fmt.Errorf("write details: %w", err)
	}

	err = f.SetDocProps(&excelize.DocProperties{
		Title:       "Spend report " + r.Options.Window.String(),
		Subject:     string(r.Options.View),
		Description: fmt.Sprintf("view=%s window=%s wishlist=%t", r.Options.View, r.Options.Window, r.Options.IncludeWishlist),
		Creator:     "tally",
	})
	if err != nil {
		return fmt.Errorf("set properties: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header, amount, percent, total int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	if s.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return s, fmt.Errorf("amount style: %w", err)
	}
	if s.percent, err = f.NewStyle(&excelize.Style{NumFmt: numFmtPercent}); err != nil {
		return s, fmt.Errorf("percent style: %w", err)
	}
	if s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: numFmtAmount}); err != nil {
		return s, fmt.Errorf("total style: %w", err)
	}
	return s, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSummary(f *excelize.File, st styles, r Report) error {
	if err := writeRow(f, SummarySheet, 1, "Category", "Amount", "Share"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "C1", st.header); err != nil {
		return err
	}

	total := r.Breakdown.Total
	row := 2
	for _, ct := range r.Breakdown.Categories {
		share := 0.0
		if total.Cents > 0 {
			share = float64(ct.Value.Cents) / float64(total.Cents)
		}
		if err := writeRow(f, SummarySheet, row, string(ct.Category), ct.Value.Units(), share); err != nil {
			return err
		}
		row++
	}
	if row > 2 {
		if err := f.SetCellStyle(SummarySheet, "B2", fmt.Sprintf("B%d", row-1), st.amount); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, "C2", fmt.Sprintf("C%d", row-1), st.percent); err != nil {
			return err
		}
	}

	if err := writeRow(f, SummarySheet, row, "Total", total.Units()); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), st.total); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "A", 20)
}

func writeDetails(f *excelize.File, st styles, r Report) error {
	if err := writeRow(f, DetailsSheet, 1, "Category", "Kind", "Name", "Amount", "ID"); err != nil {
		return err
	}
	if err := f.SetCellStyle(DetailsSheet, "A1", "E1", st.header); err != nil {
		return err
	}

	row := 2
	for _, ct := range r.Breakdown.Categories {
		for _, c := range r.Details[ct.Category] {
			if err := writeRow(f, DetailsSheet, row, string(c.Category), string(c.Kind), c.Name(), c.Amount.Units(), c.ID()); err != nil {
				return err
			}
			row++
		}
	}
	if row > 2 {
		if err := f.SetCellStyle(DetailsSheet, "D2", fmt.Sprintf("D%d", row-1), st.amount); err != nil {
			return err
		}
	}
	return f.SetColWidth(DetailsSheet, "A", "C", 20)
}
