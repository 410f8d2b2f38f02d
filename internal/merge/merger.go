package merge

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/kubev2v/rvtools-merge/internal/schema"
	"github.com/kubev2v/rvtools-merge/pkg/spreadsheet"
)

// Merger drives one end-to-end merge run. It owns its anonymizer and issue
// sink, so several merges can run in the same process without sharing state.
type Merger struct {
	cfg        *schema.Config
	opts       Options
	anonymizer *Anonymizer
	issues     *IssueList
	log        *zap.SugaredLogger
}

// New builds a Merger for one run. Option conflicts are rejected here, before
// any file is touched.
func New(cfg *schema.Config, opts Options, issues *IssueList) (*Merger, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if issues == nil {
		issues = NewIssueList()
	}
	return &Merger{
		cfg:        cfg,
		opts:       opts,
		anonymizer: NewAnonymizer(),
		issues:     issues,
		log:        zap.S().Named("merge"),
	}, nil
}

// Issues returns the issue sink of this run.
func (m *Merger) Issues() *IssueList {
	return m.issues
}

// Anonymizer exposes the run's anonymization state for reporting.
func (m *Merger) Anonymizer() *Anonymizer {
	return m.anonymizer
}

// sheetBuffer accumulates the merged rows of one output sheet across all
// input files. Rows are stored in canonical column order; the optional source
// file column is appended past the canonical columns.
type sheetBuffer struct {
	name       string
	columns    []string
	aliases    map[string]string
	colIndices map[string]int
	mandatory  []int
	rows       [][]string
}

func newSheetBuffer(name string, columns []string, mandatoryColumns []string, aliases map[string]string) *sheetBuffer {
	buf := &sheetBuffer{
		name:       name,
		columns:    columns,
		aliases:    aliases,
		colIndices: make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if _, ok := buf.colIndices[col]; !ok {
			buf.colIndices[col] = i
		}
	}
	for _, col := range mandatoryColumns {
		if idx, ok := buf.colIndices[col]; ok {
			buf.mandatory = append(buf.mandatory, idx)
		}
	}
	return buf
}

// identityIndices returns the canonical positions of the VM UUID and VM name
// columns, -1 when the sheet does not carry them.
func (b *sheetBuffer) identityIndices() (uuidIdx, nameIdx int) {
	uuidIdx, nameIdx = -1, -1
	if idx, ok := b.colIndices[schema.ColumnVMUUID]; ok {
		uuidIdx = idx
	}
	if idx, ok := b.colIndices[schema.ColumnVM]; ok {
		nameIdx = idx
	}
	return uuidIdx, nameIdx
}

// Run merges the given files into one workbook at outputPath, plus the
// optional side workbooks for the anonymization map and the rows failing
// Azure Migrate validation. Validation findings accumulate in the issue sink
// whether or not the run succeeds.
func (m *Merger) Run(ctx context.Context, paths []string, outputPath string) error {
	if len(paths) == 0 {
		return ErrNoInputFiles
	}

	valid := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ValidateFile(ctx, path, m.cfg, m.opts.IgnoreMissingOptionalSheets, m.issues) {
			valid = append(valid, path)
			continue
		}
		if !m.opts.SkipInvalidFiles {
			return errors.Wrapf(ErrInvalidFile, "%s failed validation", filepath.Base(path))
		}
		m.log.Warnf("skipping invalid file %s", filepath.Base(path))
	}

	if len(valid) == 0 {
		return ErrNoValidFiles
	}

	buffers := make(map[string]*sheetBuffer)
	var discovered []string

	for _, path := range valid {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.mergeFile(path, buffers, &discovered); err != nil {
			if !m.opts.SkipInvalidFiles {
				return err
			}
			m.issues.Append(filepath.Base(path), false, "failed while merging: %v", err)
			m.log.Warnf("skipping %s after read failure: %v", filepath.Base(path), err)
		}
	}

	if m.opts.MaxVInfoRows > 0 {
		m.applyRowCap(buffers)
	}

	var azureResult *AzureValidationResult
	if m.opts.EnableAzureMigrateValidation {
		azureResult = m.runAzureValidation(buffers)
	}

	if err := m.writeOutput(buffers, m.sheetOrder(buffers, discovered), outputPath); err != nil {
		return err
	}

	if azureResult != nil && len(azureResult.FailedRows) > 0 {
		if err := m.writeAzureFailures(buffers[schema.SheetVInfo], azureResult, outputPath); err != nil {
			return err
		}
	}

	if m.opts.AnonymizeData {
		if err := m.writeAnonymizationMap(outputPath); err != nil {
			return err
		}
	}

	m.log.Infof("merged %d of %d files into %s", len(valid), len(paths), outputPath)
	return nil
}

// mergeFile copies all relevant sheets of one file into the shared buffers.
func (m *Merger) mergeFile(path string, buffers map[string]*sheetBuffer, discovered *[]string) error {
	name := filepath.Base(path)

	wb, err := spreadsheet.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	sheetNames := m.cfg.SheetOrder()
	if m.opts.ProcessAllSheets {
		sheetNames = wb.Sheets()
	}

	for _, sheetName := range sheetNames {
		if !wb.HasSheet(sheetName) {
			continue
		}
		header, data := spreadsheet.SplitSheet(wb.ReadSheet(sheetName))
		if len(header) == 0 {
			continue
		}

		buf, ok := buffers[sheetName]
		if !ok {
			buf = m.newBufferFor(sheetName, header)
			buffers[sheetName] = buf
			if !funk.ContainsString(m.cfg.SheetOrder(), sheetName) {
				*discovered = append(*discovered, sheetName)
			}
		}

		m.copyRows(buf, name, sheetName, header, data)
	}

	return nil
}

// newBufferFor builds the output buffer for a sheet on first encounter.
// Known sheets take their canonical layout from the schema; sheets only seen
// in all-sheets mode inherit the first file's header as canonical.
func (m *Merger) newBufferFor(sheetName string, header []string) *sheetBuffer {
	if sheet, ok := m.cfg.Sheet(sheetName); ok {
		columns := sheet.Columns
		if m.opts.OnlyMandatoryColumns {
			columns = sheet.MandatoryColumns
		}
		return newSheetBuffer(sheetName, columns, sheet.MandatoryColumns, sheet.Aliases())
	}

	columns := make([]string, 0, len(header))
	for _, raw := range header {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	return newSheetBuffer(sheetName, columns, nil, nil)
}

func (m *Merger) copyRows(buf *sheetBuffer, fileName, sheetName string, header []string, data [][]string) {
	mappings := ResolveColumns(header, buf.columns, buf.aliases)

	copied, skipped := 0, 0
	for rowIdx, row := range data {
		if len(row) == 0 {
			continue
		}

		out := make([]string, len(buf.columns))
		for _, mp := range mappings {
			if mp.FileColumn < len(row) {
				out[mp.CanonicalColumn] = row[mp.FileColumn]
			}
		}

		if m.opts.SkipRowsWithEmptyMandatoryValues && HasEmptyMandatoryValues(out, buf.mandatory) {
			m.issues.Append(fileName, true, "row %d of sheet %q skipped: empty mandatory value", rowIdx+2, sheetName)
			skipped++
			continue
		}

		if m.opts.AnonymizeData {
			for i := range out {
				out[i] = m.anonymizer.Value(out[i], i, buf.colIndices, fileName)
			}
		}

		if m.opts.IncludeSourceFileName {
			out = append(out, fileName)
		}

		buf.rows = append(buf.rows, out)
		copied++
	}

	if m.opts.DebugMode {
		m.log.Debugf("%s: sheet %q: copied %d rows, skipped %d", fileName, sheetName, copied, skipped)
	}
}

// applyRowCap truncates the vInfo buffer to the configured maximum and drops
// dependent-sheet rows whose VM no longer appears. Rows survive in arrival
// order, so input file order decides which VMs make the cut.
func (m *Merger) applyRowCap(buffers map[string]*sheetBuffer) {
	info := buffers[schema.SheetVInfo]
	if info == nil || len(info.rows) <= m.opts.MaxVInfoRows {
		return
	}

	dropped := len(info.rows) - m.opts.MaxVInfoRows
	info.rows = info.rows[:m.opts.MaxVInfoRows]
	m.log.Infof("row cap applied: kept %d vInfo rows, dropped %d", len(info.rows), dropped)

	m.filterDependentSheets(buffers, survivingKeys(info))
}

// survivingKeys indexes the VM identities present in the vInfo buffer.
func survivingKeys(info *sheetBuffer) map[string]struct{} {
	uuidIdx, nameIdx := info.identityIndices()
	keys := make(map[string]struct{}, len(info.rows))
	for _, row := range info.rows {
		if key := identityKey(row, uuidIdx, nameIdx); key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys
}

// filterDependentSheets keeps only rows whose VM identity survives in vInfo.
// Sheets without a VM identity column, vHost among them, are left untouched.
func (m *Merger) filterDependentSheets(buffers map[string]*sheetBuffer, keys map[string]struct{}) {
	for name, buf := range buffers {
		if name == schema.SheetVInfo {
			continue
		}
		uuidIdx, nameIdx := buf.identityIndices()
		if uuidIdx < 0 && nameIdx < 0 {
			continue
		}

		kept := buf.rows[:0]
		for _, row := range buf.rows {
			if _, ok := keys[identityKey(row, uuidIdx, nameIdx)]; ok {
				kept = append(kept, row)
			}
		}
		if len(kept) < len(buf.rows) {
			m.log.Debugf("sheet %q: %d rows removed for VMs outside vInfo", name, len(buf.rows)-len(kept))
		}
		buf.rows = kept
	}
}

// runAzureValidation applies the Azure Migrate rules to the merged vInfo
// rows, removes failing rows from the output, and re-filters dependent sheets
// so they only reference surviving VMs.
func (m *Merger) runAzureValidation(buffers map[string]*sheetBuffer) *AzureValidationResult {
	info := buffers[schema.SheetVInfo]
	if info == nil {
		return nil
	}

	uuidIdx, ok := info.colIndices[schema.ColumnVMUUID]
	if !ok {
		uuidIdx = -1
	}
	osIdx, ok := info.colIndices[schema.ColumnOSConfig]
	if !ok {
		osIdx = -1
	}

	valid, result := RunAzureMigrateValidation(info.rows, uuidIdx, osIdx)
	if len(result.FailedRows) == 0 {
		return &result
	}

	info.rows = valid
	m.filterDependentSheets(buffers, survivingKeys(info))

	m.log.Warnf("Azure Migrate validation rejected %d of %d rows (missing UUID: %d, missing OS: %d, duplicate UUID: %d, limit reached: %t)",
		len(result.FailedRows), result.TotalVMsProcessed,
		result.MissingVMUUIDCount, result.MissingOSConfigurationCount,
		result.DuplicateVMUUIDCount, result.VMCountLimitReached)

	return &result
}

// sheetOrder fixes the output sheet order: the known sheets first, then any
// sheets discovered in all-sheets mode in first-encounter order.
func (m *Merger) sheetOrder(buffers map[string]*sheetBuffer, discovered []string) []string {
	order := make([]string, 0, len(buffers))
	for _, name := range m.cfg.SheetOrder() {
		if _, ok := buffers[name]; ok {
			order = append(order, name)
		}
	}
	return append(order, discovered...)
}
