// Package report renders transcripts into downloadable workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/openlms/progression/internal/progression"
)

const sheetName = "Transcript"

// WriteTranscript renders the transcript as an xlsx workbook: one row per
// block with the learner, cohort average and cohort max columns on the
// 20-point scale, and an overall row at the bottom. Empty blocks show a
// dash instead of a number.
func WriteTranscript(w io.Writer, tr *progression.Transcript) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	header := []any{"Block", "Sequence", "Graded", "Your Average /20", "Cohort Average /20", "Cohort Max /20"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	row := 2
	for _, b := range tr.PerBlock {
		cells := []any{
			b.Name,
			b.SequenceNumber,
			b.GradedCount,
			cellValue(b.LearnerAverage),
			cellValue(b.CohortAverage),
			cellValue(b.CohortMax),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("writing block row %d: %w", row, err)
		}
		row++
	}

	overall := []any{
		"Overall", "", "",
		cellValue(tr.Overall.LearnerAverage),
		cellValue(tr.Overall.CohortAverage),
		"",
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheetName, cell, &overall); err != nil {
		return fmt.Errorf("writing overall row: %w", err)
	}
	if err := f.SetRowStyle(sheetName, row, row, bold); err != nil {
		return fmt.Errorf("styling overall row: %w", err)
	}

	if err := f.SetColWidth(sheetName, "A", "A", 32); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "D", "F", 18); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func cellValue(v *float64) any {
	if v == nil {
		return "-"
	}
	return *v
}
