// Package report renders funnel tables into styled Excel workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/aa-analytics/funnelreport/internal/funnel"
)

const sheetName = "Funnel Dashboard"

var columnWidths = []float64{45, 45, 14, 15, 55, 14, 16}

// ExcelRenderer writes one workbook per funnel table under OutputDir.
type ExcelRenderer struct {
	OutputDir string
}

type styles struct {
	gray     int
	grayWrap int
	green    int
	dropoff  int
	subcause int
	border   int
	noteWrap int
}

// Render writes the table to <entity>-<dateLabel>.xlsx and returns the path.
// Percentages are rounded to one decimal here and nowhere earlier.
func (r *ExcelRenderer) Render(t *funnel.Table, dateLabel string) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "report: create output dir")
	}
	path := filepath.Join(r.OutputDir, fmt.Sprintf("%s-%s.xlsx", SafeFileName(t.Entity), dateLabel))

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", errors.Wrap(err, "report: rename sheet")
	}
	for i, w := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return "", errors.Wrap(err, "report: set column width")
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return "", err
	}
	if err := writeSummary(f, st, t); err != nil {
		return "", err
	}
	if err := writeFunnel(f, st, t); err != nil {
		return "", err
	}

	if err := f.SaveAs(path); err != nil {
		return "", errors.Wrapf(err, "report: save %s", path)
	}
	return path, nil
}

// SafeFileName flattens entity IDs (which carry '@' and may carry path
// characters) into a safe file name component.
func SafeFileName(entity string) string {
	replacer := strings.NewReplacer("@", "-", "/", "-", "\\", "-", ":", "-", " ", "_", "..", "-")
	s := replacer.Replace(strings.TrimSpace(entity))
	if s == "" {
		return "entity"
	}
	return s
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	mk := func(fill string, wrap bool) int {
		if err != nil {
			return 0
		}
		s := &excelize.Style{
			Border: []excelize.Border{
				{Type: "left", Color: "000000", Style: 1},
				{Type: "right", Color: "000000", Style: 1},
				{Type: "top", Color: "000000", Style: 1},
				{Type: "bottom", Color: "000000", Style: 1},
			},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: wrap},
		}
		if fill != "" {
			s.Fill = excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1}
		}
		var id int
		id, err = f.NewStyle(s)
		return id
	}
	st.gray = mk("#D9D9D9", false)
	st.grayWrap = mk("#D9D9D9", true)
	st.green = mk("#AAECC6", false)
	st.dropoff = mk("#F5C8A7", false)
	st.subcause = mk("#FAE4D3", false)
	st.border = mk("", false)
	st.noteWrap = mk("", true)
	if err != nil {
		return styles{}, errors.Wrap(err, "report: build styles")
	}
	return st, nil
}

// writeSummary emits the two headline percentages and the journey note.
// The sheet keeps a leading blank row, so content starts at row 2.
func writeSummary(f *excelize.File, st styles, t *funnel.Table) error {
	cells := []struct {
		cell  string
		value any
		style int
	}{
		{"A2", "Summary", st.gray},
		{"B2", "% of initial users", st.gray},
		{"A3", "Percentage of initial users who approved the consent", st.border},
		{"B3", funnel.Round1(t.ConsentApprovalPct), st.border},
		{"A4", "Percentage of initial users who shared their data", st.border},
		{"B4", funnel.Round1(t.DataSharingPct), st.border},
	}
	for _, c := range cells {
		if err := f.SetCellValue(sheetName, c.cell, c.value); err != nil {
			return errors.Wrap(err, "report: summary cell")
		}
		if err := f.SetCellStyle(sheetName, c.cell, c.cell, c.style); err != nil {
			return errors.Wrap(err, "report: summary style")
		}
	}
	if err := f.MergeCell(sheetName, "D2", "E2"); err != nil {
		return errors.Wrap(err, "report: merge note header")
	}
	if err := f.MergeCell(sheetName, "D3", "E3"); err != nil {
		return errors.Wrap(err, "report: merge note body")
	}
	_ = f.SetCellValue(sheetName, "D2", "Note")
	_ = f.SetCellStyle(sheetName, "D2", "E2", st.grayWrap)
	_ = f.SetCellValue(sheetName, "D3", funnel.Note)
	_ = f.SetCellStyle(sheetName, "D3", "E3", st.noteWrap)
	return nil
}

func writeFunnel(f *excelize.File, st styles, t *funnel.Table) error {
	// Band header splitting success and dropoff sides.
	if err := f.MergeCell(sheetName, "C6", "D6"); err != nil {
		return errors.Wrap(err, "report: merge band")
	}
	if err := f.MergeCell(sheetName, "F6", "G6"); err != nil {
		return errors.Wrap(err, "report: merge band")
	}
	_ = f.SetCellValue(sheetName, "C6", "Successful Users")
	_ = f.SetCellValue(sheetName, "F6", "Dropped off Users")
	_ = f.SetCellStyle(sheetName, "C6", "D6", st.gray)
	_ = f.SetCellStyle(sheetName, "F6", "G6", st.gray)

	headers := []string{"Stage", "Positive Action", "Count", "% of initial users", "Dropoff Cause", "Count", "% of initial users"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, st.gray)
	}

	row := 8
	for _, fr := range t.Rows {
		if err := writeStageRow(f, st, row, fr); err != nil {
			return err
		}
		for i, sub := range fr.Subcauses {
			if err := writeSubcauseRow(f, st, row+1+i, sub); err != nil {
				return err
			}
		}
		if n := len(fr.Subcauses); n > 0 {
			top, _ := excelize.CoordinatesToCellName(1, row)
			bottom, _ := excelize.CoordinatesToCellName(1, row+n)
			if err := f.MergeCell(sheetName, top, bottom); err != nil {
				return errors.Wrapf(err, "report: merge stage %q", fr.Stage)
			}
			_ = f.SetCellStyle(sheetName, top, bottom, st.grayWrap)
		}
		row += 1 + len(fr.Subcauses)
	}
	return nil
}

func writeStageRow(f *excelize.File, st styles, row int, fr funnel.Row) error {
	set := func(col int, value any, style int) error {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return errors.Wrapf(err, "report: stage row %d", row)
		}
		return f.SetCellStyle(sheetName, cell, cell, style)
	}
	if err := set(1, fr.Stage, st.gray); err != nil {
		return err
	}
	if err := set(2, fr.PositiveAction, st.green); err != nil {
		return err
	}
	if err := set(3, fr.SuccessCount, st.green); err != nil {
		return err
	}
	if err := set(4, funnel.Round1(fr.SuccessPct), st.green); err != nil {
		return err
	}
	if err := set(5, fr.DropoffCause, st.dropoff); err != nil {
		return err
	}
	if err := set(6, fr.DropoffCount, st.dropoff); err != nil {
		return err
	}
	return set(7, funnel.Round1(fr.DropoffPct), st.dropoff)
}

func writeSubcauseRow(f *excelize.File, st styles, row int, sub funnel.Subcause) error {
	for col := 2; col <= 4; col++ {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		if err := f.SetCellStyle(sheetName, cell, cell, st.border); err != nil {
			return errors.Wrapf(err, "report: subcause row %d", row)
		}
	}
	set := func(col int, value any, style int) error {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return errors.Wrapf(err, "report: subcause row %d", row)
		}
		return f.SetCellStyle(sheetName, cell, cell, style)
	}
	if err := set(5, "↳"+sub.Label, st.subcause); err != nil {
		return err
	}
	if err := set(6, sub.Count, st.border); err != nil {
		return err
	}
	return set(7, funnel.Round1(sub.Pct), st.border)
}
