package merge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kubev2v/rvtools-merge/internal/schema"
)

// Category identifies one kind of anonymized value. The string value doubles
// as the prefix of the synthetic replacements ("vm1", "host3", ...).
type Category string

const (
	CategoryVM         Category = "vm"
	CategoryHost       Category = "host"
	CategoryCluster    Category = "cluster"
	CategoryDatacenter Category = "datacenter"
	CategoryDNS        Category = "dns"
	CategoryIP         Category = "ip"
)

// Display returns the human-readable category name used in the mapping
// workbook.
func (c Category) Display() string {
	switch c {
	case CategoryVM:
		return "VM"
	case CategoryHost:
		return "Host"
	case CategoryCluster:
		return "Cluster"
	case CategoryDatacenter:
		return "Datacenter"
	case CategoryDNS:
		return "DNS Name"
	case CategoryIP:
		return "IP Address"
	}
	return string(c)
}

// Categories lists all tracked categories in a fixed reporting order.
func Categories() []Category {
	return []Category{
		CategoryVM, CategoryHost, CategoryCluster,
		CategoryDatacenter, CategoryDNS, CategoryIP,
	}
}

// categoryColumns names the canonical columns each category owns.
var categoryColumns = map[Category][]string{
	CategoryVM:         {schema.ColumnVM},
	CategoryHost:       {schema.ColumnHost},
	CategoryCluster:    {schema.ColumnCluster},
	CategoryDatacenter: {schema.ColumnDatacenter},
	CategoryDNS:        {schema.ColumnDNSName},
	CategoryIP:         {schema.ColumnPrimaryIP},
}

// Anonymizer deterministically replaces identifying values with synthetic
// ones. Replacement is scoped per (category, source file): the same original
// always maps to the same synthetic value within a file, while the same
// original in a different file gets an independent replacement so merged
// output never reveals cross-file correlation. One Anonymizer belongs to one
// merge run; concurrent merges each construct their own.
type Anonymizer struct {
	mu sync.Mutex
	// category -> source file -> original -> synthetic
	mappings map[Category]map[string]map[string]string
	// category -> source file -> next counter
	counters map[Category]map[string]int
}

func NewAnonymizer() *Anonymizer {
	return &Anonymizer{
		mappings: make(map[Category]map[string]map[string]string),
		counters: make(map[Category]map[string]int),
	}
}

// Value anonymizes one cell. columnIndices maps canonical column names to
// their index in the row; when columnIndex belongs to none of the tracked
// categories, or the value is blank, the value passes through untouched.
func (a *Anonymizer) Value(value string, columnIndex int, columnIndices map[string]int, sourceFile string) string {
	category, ok := categoryForColumn(columnIndex, columnIndices)
	if !ok || IsBlank(value) {
		return value
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	byFile, ok := a.mappings[category]
	if !ok {
		byFile = make(map[string]map[string]string)
		a.mappings[category] = byFile
	}
	byValue, ok := byFile[sourceFile]
	if !ok {
		byValue = make(map[string]string)
		byFile[sourceFile] = byValue
	}

	original := strings.TrimSpace(value)
	if synthetic, ok := byValue[original]; ok {
		return synthetic
	}

	if _, ok := a.counters[category]; !ok {
		a.counters[category] = make(map[string]int)
	}
	a.counters[category][sourceFile]++
	synthetic := fmt.Sprintf("%s%d", category, a.counters[category][sourceFile])
	byValue[original] = synthetic
	return synthetic
}

// Statistics returns, per category and source file, how many distinct values
// have been anonymized so far.
func (a *Anonymizer) Statistics() map[Category]map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := make(map[Category]map[string]int, len(a.mappings))
	for category, byFile := range a.mappings {
		stats[category] = make(map[string]int, len(byFile))
		for file, byValue := range byFile {
			stats[category][file] = len(byValue)
		}
	}
	return stats
}

// Mappings returns a deep copy of the accumulated original-to-synthetic
// tables, keyed by category then source file.
func (a *Anonymizer) Mappings() map[Category]map[string]map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[Category]map[string]map[string]string, len(a.mappings))
	for category, byFile := range a.mappings {
		out[category] = make(map[string]map[string]string, len(byFile))
		for file, byValue := range byFile {
			pairs := make(map[string]string, len(byValue))
			for original, synthetic := range byValue {
				pairs[original] = synthetic
			}
			out[category][file] = pairs
		}
	}
	return out
}

func categoryForColumn(columnIndex int, columnIndices map[string]int) (Category, bool) {
	for _, category := range Categories() {
		for _, column := range categoryColumns[category] {
			if idx, ok := columnIndices[column]; ok && idx == columnIndex {
				return category, true
			}
		}
	}
	return "", false
}
