package spreadsheet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Writer builds an xlsx workbook sheet by sheet in memory.
type Writer struct {
	file        *excelize.File
	sheets      int
	keepDefault bool
}

func NewWriter() *Writer {
	return &Writer{file: excelize.NewFile()}
}

// AddSheet appends a worksheet with the given header and data rows. Sheets
// appear in the output in the order they are added.
func (w *Writer) AddSheet(name string, header []string, rows [][]string) error {
	index, err := w.file.NewSheet(name)
	if err != nil {
		return errors.Wrapf(err, "creating sheet %q", name)
	}
	if name == "Sheet1" {
		w.keepDefault = true
	}

	if err := w.writeRow(name, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.writeRow(name, i+2, row); err != nil {
			return err
		}
	}

	if w.sheets == 0 {
		w.file.SetActiveSheet(index)
	}
	w.sheets++
	return nil
}

func (w *Writer) writeRow(sheet string, rowNum int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &row); err != nil {
		return errors.Wrapf(err, "writing row %d of sheet %q", rowNum, sheet)
	}
	return nil
}

// SheetCount reports how many sheets have been added so far.
func (w *Writer) SheetCount() int {
	return w.sheets
}

// Save writes the workbook to path through a uniquely named temporary file in
// the same directory, renaming it into place on success. A failed save never
// leaves a partial workbook at the destination.
func (w *Writer) Save(path string) error {
	defer w.file.Close()

	if w.sheets > 0 && !w.keepDefault {
		// The codec seeds every new workbook with a default sheet.
		if err := w.file.DeleteSheet("Sheet1"); err != nil {
			return errors.Wrap(err, "removing default sheet")
		}
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := w.file.SaveAs(tmp); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "moving output into place at %s", path)
	}
	return nil
}
