package merge

import (
	"strings"
)

// ColumnMapping links a column position in a source worksheet to its position
// in the canonical column list.
type ColumnMapping struct {
	FileColumn      int
	CanonicalColumn int
}

// ResolveColumns maps a worksheet's actual header row onto canonical columns.
// Each header is trimmed, passed through the alias table (case-insensitive,
// keys lowercased), then matched case-insensitively against the canonical
// list. Blank headers are skipped, unmatched headers are ignored, and when
// two file columns resolve to the same canonical column the leftmost wins.
func ResolveColumns(headerRow []string, canonicalColumns []string, aliases map[string]string) []ColumnMapping {
	mappings := make([]ColumnMapping, 0, len(canonicalColumns))
	claimed := make([]bool, len(canonicalColumns))

	for fileIdx, raw := range headerRow {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if canonical, ok := aliases[strings.ToLower(name)]; ok {
			name = canonical
		}

		canonicalIdx := indexOfFold(canonicalColumns, name)
		if canonicalIdx < 0 || claimed[canonicalIdx] {
			continue
		}

		claimed[canonicalIdx] = true
		mappings = append(mappings, ColumnMapping{
			FileColumn:      fileIdx,
			CanonicalColumn: canonicalIdx,
		})
	}

	return mappings
}

// missingColumns returns the canonical columns no mapping covers, in
// canonical order.
func missingColumns(canonicalColumns []string, mappings []ColumnMapping) []string {
	covered := make([]bool, len(canonicalColumns))
	for _, m := range mappings {
		covered[m.CanonicalColumn] = true
	}

	var missing []string
	for i, name := range canonicalColumns {
		if !covered[i] {
			missing = append(missing, name)
		}
	}
	return missing
}

func indexOfFold(values []string, target string) int {
	for i, v := range values {
		if strings.EqualFold(v, target) {
			return i
		}
	}
	return -1
}
