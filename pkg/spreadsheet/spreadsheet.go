// Package spreadsheet wraps the xlsx codec used by the merge pipeline. The
// pipeline only needs a small surface: open a workbook, list its sheets, read
// a sheet into rows of strings, and write a new workbook sheet by sheet.
package spreadsheet

import (
	"bytes"
	"os"
	"slices"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Workbook is a read-only view over an opened xlsx file.
type Workbook struct {
	file   *excelize.File
	path   string
	sheets []string
}

// Open reads the file at path and parses it as an xlsx workbook. Non-xlsx
// content is rejected before handing the bytes to the codec so that a renamed
// CSV or a truncated download fails with a clear message.
func Open(path string) (*Workbook, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return OpenBytes(content, path)
}

func OpenBytes(content []byte, path string) (*Workbook, error) {
	if !IsExcelFile(content) {
		return nil, errors.Errorf("%s is not an xlsx workbook", path)
	}

	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	return &Workbook{
		file:   file,
		path:   path,
		sheets: file.GetSheetList(),
	}, nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// Sheets returns the worksheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return slices.Clone(w.sheets)
}

func (w *Workbook) HasSheet(name string) bool {
	return slices.Contains(w.sheets, name)
}

// ReadSheet returns all rows of the named sheet, header row included. A
// missing or unreadable sheet yields an empty result rather than an error;
// callers that care about presence should use HasSheet first.
func (w *Workbook) ReadSheet(name string) [][]string {
	if !w.HasSheet(name) {
		return [][]string{}
	}

	rows, err := w.file.GetRows(name)
	if err != nil {
		zap.S().Named("spreadsheet").Warnf("could not read sheet %q of %s: %v", name, w.path, err)
		return [][]string{}
	}

	return rows
}

// SplitSheet separates the header row from the data rows.
func SplitSheet(rows [][]string) (header []string, data [][]string) {
	if len(rows) == 0 {
		return []string{}, [][]string{}
	}
	return rows[0], rows[1:]
}

// IsExcelFile probes content for the xlsx zip signature and confirms the
// codec can actually open it.
func IsExcelFile(content []byte) bool {
	if len(content) < 2 {
		return false
	}

	if content[0] == 0x50 && content[1] == 0x4B {
		f, err := excelize.OpenReader(bytes.NewReader(content))
		if err != nil {
			return false
		}
		defer f.Close()
		return true
	}

	return false
}
