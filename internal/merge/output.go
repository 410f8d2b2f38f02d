package merge

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/kubev2v/rvtools-merge/pkg/spreadsheet"
)

const sourceFileColumn = "Source File"

// writeOutput writes the consolidated workbook. Sheets that ended up with no
// rows are omitted.
func (m *Merger) writeOutput(buffers map[string]*sheetBuffer, order []string, outputPath string) error {
	w := spreadsheet.NewWriter()

	for _, name := range order {
		buf := buffers[name]
		if buf == nil || len(buf.rows) == 0 {
			continue
		}
		if err := w.AddSheet(name, m.outputHeader(buf.columns), buf.rows); err != nil {
			return err
		}
	}

	return w.Save(outputPath)
}

func (m *Merger) outputHeader(columns []string) []string {
	if !m.opts.IncludeSourceFileName {
		return columns
	}
	header := make([]string, 0, len(columns)+1)
	header = append(header, columns...)
	return append(header, sourceFileColumn)
}

// writeAzureFailures writes the side workbook listing the vInfo rows Azure
// Migrate validation rejected, one reason per row.
func (m *Merger) writeAzureFailures(info *sheetBuffer, result *AzureValidationResult, outputPath string) error {
	w := spreadsheet.NewWriter()

	base := m.outputHeader(info.columns)
	header := make([]string, 0, len(base)+1)
	header = append(header, base...)
	header = append(header, "Failure Reason")
	rows := make([][]string, 0, len(result.FailedRows))
	for _, failed := range result.FailedRows {
		row := make([]string, 0, len(failed.Row)+1)
		row = append(row, failed.Row...)
		rows = append(rows, append(row, string(failed.Reason)))
	}

	if err := w.AddSheet("FailedRows", header, rows); err != nil {
		return err
	}

	path := sidePath(outputPath, "_FailedAzureMigrateValidation")
	m.log.Infof("writing %d failed validation rows to %s", len(rows), path)
	return w.Save(path)
}

// writeAnonymizationMap writes the audit workbook with one sheet per category
// that anonymized at least one value. Rows are sorted by file then original
// value so reruns produce identical workbooks.
func (m *Merger) writeAnonymizationMap(outputPath string) error {
	mappings := m.anonymizer.Mappings()
	empty := true
	for _, byFile := range mappings {
		if len(byFile) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return nil
	}

	w := spreadsheet.NewWriter()
	for _, category := range Categories() {
		byFile := mappings[category]
		if len(byFile) == 0 {
			continue
		}

		files := make([]string, 0, len(byFile))
		for file := range byFile {
			files = append(files, file)
		}
		sort.Strings(files)

		var rows [][]string
		for _, file := range files {
			originals := make([]string, 0, len(byFile[file]))
			for original := range byFile[file] {
				originals = append(originals, original)
			}
			sort.Strings(originals)
			for _, original := range originals {
				rows = append(rows, []string{file, original, byFile[file][original]})
			}
		}

		header := []string{sourceFileColumn, "Original Value", "Anonymized Value"}
		if err := w.AddSheet(category.Display(), header, rows); err != nil {
			return err
		}
	}

	path := sidePath(outputPath, "_AnonymizationMapping")
	m.log.Infof("writing anonymization mapping to %s", path)
	return w.Save(path)
}

// sidePath derives a side-artifact path next to the main output:
// merged.xlsx -> merged<suffix>.xlsx.
func sidePath(outputPath, suffix string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + suffix + ext
}
