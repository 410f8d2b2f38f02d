package merge

import "strings"

// IsBlank reports whether a cell carries no usable value: empty, whitespace
// only, or the literal null marker some exports emit.
func IsBlank(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || strings.EqualFold(trimmed, "null")
}

// HasEmptyMandatoryValues reports whether any of the mandatory cells in row
// is blank. Negative indices are ignored; an index beyond the row length is a
// column-mapping bug upstream and panics rather than masking it.
func HasEmptyMandatoryValues(row []string, mandatoryIndices []int) bool {
	for _, idx := range mandatoryIndices {
		if idx < 0 {
			continue
		}
		if IsBlank(row[idx]) {
			return true
		}
	}
	return false
}

// identityKey derives the value used to correlate rows for the same VM across
// sheets: the VM UUID when present, the VM name otherwise. Either index may
// be -1 when the sheet lacks that column.
func identityKey(row []string, uuidIdx, nameIdx int) string {
	if uuidIdx >= 0 && uuidIdx < len(row) && !IsBlank(row[uuidIdx]) {
		return strings.TrimSpace(row[uuidIdx])
	}
	if nameIdx >= 0 && nameIdx < len(row) {
		return strings.TrimSpace(row[nameIdx])
	}
	return ""
}
