package schema

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Overlay adds header aliases for export versions the built-in tables do not
// know about. Overlays only add entries; built-in aliases cannot be removed.
type Overlay struct {
	Sheets map[string]SheetOverlay `yaml:"sheets"`
}

type SheetOverlay struct {
	Aliases map[string]string `yaml:"aliases"`
}

// ApplyOverlayFile reads a YAML overlay from path and merges its aliases into
// the configuration. Aliases for unknown sheets or unknown canonical columns
// are rejected so a typo in the overlay surfaces immediately.
func (c *Config) ApplyOverlayFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading schema overlay %s", path)
	}

	var overlay Overlay
	if err := yaml.Unmarshal(content, &overlay); err != nil {
		return errors.Wrapf(err, "parsing schema overlay %s", path)
	}

	return c.applyOverlay(overlay)
}

func (c *Config) applyOverlay(overlay Overlay) error {
	for sheetName, sheetOverlay := range overlay.Sheets {
		sheet, ok := c.sheets[sheetName]
		if !ok {
			return errors.Errorf("schema overlay references unknown sheet %q", sheetName)
		}
		for alias, canonical := range sheetOverlay.Aliases {
			if !containsFold(sheet.Columns, canonical) {
				return errors.Errorf("schema overlay maps %q to unknown column %q on sheet %q", alias, canonical, sheetName)
			}
		}
	}

	for sheetName, sheetOverlay := range overlay.Sheets {
		sheet := c.sheets[sheetName]
		for alias, canonical := range sheetOverlay.Aliases {
			sheet.headerAliases[strings.ToLower(strings.TrimSpace(alias))] = canonical
		}
	}
	return nil
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
