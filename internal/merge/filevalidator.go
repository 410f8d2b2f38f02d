package merge

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kubev2v/rvtools-merge/internal/schema"
	"github.com/kubev2v/rvtools-merge/pkg/spreadsheet"
)

// ValidateFile checks whether one input file is mergeable: it must parse as
// an xlsx workbook, carry the minimum required sheet with all of its
// mandatory columns and at least one data row. Unless
// ignoreMissingOptionalSheets is set, the other required sheets are checked
// too; their absence is recorded as a skippable issue and does not fail the
// file. Every finding lands in issues; the return value reports whether the
// file can be merged.
func ValidateFile(ctx context.Context, path string, cfg *schema.Config, ignoreMissingOptionalSheets bool, issues *IssueList) bool {
	if ctx.Err() != nil {
		return false
	}

	name := filepath.Base(path)
	log := zap.S().Named("validate")

	wb, err := spreadsheet.Open(path)
	if err != nil {
		issues.Append(name, false, "cannot open or parse file: %v", err)
		return false
	}
	defer wb.Close()

	minimum := cfg.MinimumRequired()
	if !wb.HasSheet(minimum.Name) {
		issues.Append(name, false, "required sheet %q not found", minimum.Name)
		return false
	}

	header, data := spreadsheet.SplitSheet(wb.ReadSheet(minimum.Name))
	mappings := ResolveColumns(header, minimum.MandatoryColumns, minimum.Aliases())
	if missing := missingColumns(minimum.MandatoryColumns, mappings); len(missing) > 0 {
		issues.Append(name, false, "sheet %q is missing mandatory columns: %s",
			minimum.Name, strings.Join(missing, ", "))
		return false
	}

	if len(data) == 0 {
		issues.Append(name, false, "no data rows in sheet %q, at least one entry is required", minimum.Name)
		return false
	}

	if !ignoreMissingOptionalSheets {
		for _, sheetName := range cfg.RequiredSheets() {
			if sheetName == minimum.Name || wb.HasSheet(sheetName) {
				continue
			}
			issues.Append(name, true, "required sheet %q not found", sheetName)
		}
	}

	log.Debugf("%s passed validation", name)
	return true
}
