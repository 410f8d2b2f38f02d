// Package schema holds the static configuration of known RVTools sheets:
// which sheets a mergeable export must carry, which columns are mandatory,
// and how header spellings from older exports map onto the canonical names.
package schema

import (
	"slices"
	"strings"
)

const (
	SheetVInfo      = "vInfo"
	SheetVHost      = "vHost"
	SheetVPartition = "vPartition"
	SheetVMemory    = "vMemory"
)

// Canonical vInfo column names referenced elsewhere in the pipeline.
const (
	ColumnVMUUID     = "VM UUID"
	ColumnVM         = "VM"
	ColumnHost       = "Host"
	ColumnCluster    = "Cluster"
	ColumnDatacenter = "Datacenter"
	ColumnDNSName    = "DNS Name"
	ColumnPrimaryIP  = "Primary IP Address"
	ColumnOSConfig   = "OS according to the configuration file"
)

// Sheet describes one known RVTools worksheet.
type Sheet struct {
	Name             string
	MinimumRequired  bool
	Required         bool
	Columns          []string
	MandatoryColumns []string
	headerAliases    map[string]string
}

// AliasFor resolves a raw header through the sheet's alias table. Matching is
// case-insensitive on the trimmed header.
func (s Sheet) AliasFor(rawHeader string) (string, bool) {
	canonical, ok := s.headerAliases[strings.ToLower(strings.TrimSpace(rawHeader))]
	return canonical, ok
}

// Aliases returns the alias table with lowercased keys.
func (s Sheet) Aliases() map[string]string {
	out := make(map[string]string, len(s.headerAliases))
	for k, v := range s.headerAliases {
		out[k] = v
	}
	return out
}

// Config is the full sheet configuration. It is immutable after construction;
// ApplyOverlay returns errors instead of partially mutating on bad input.
type Config struct {
	sheets map[string]*Sheet
	order  []string
}

// Default returns the built-in configuration covering the four merged sheets.
func Default() *Config {
	cfg := &Config{sheets: map[string]*Sheet{}}
	for _, s := range defaultSheets() {
		sheet := s
		cfg.sheets[sheet.Name] = &sheet
		cfg.order = append(cfg.order, sheet.Name)
	}
	return cfg
}

// Sheet looks up a sheet by name. Unknown names report ok=false.
func (c *Config) Sheet(name string) (Sheet, bool) {
	s, ok := c.sheets[name]
	if !ok {
		return Sheet{}, false
	}
	return *s, true
}

// SheetOrder returns the fixed output order of the known sheets.
func (c *Config) SheetOrder() []string {
	return slices.Clone(c.order)
}

// MinimumRequired returns the one sheet that must be present and non-empty
// for a file to be mergeable at all.
func (c *Config) MinimumRequired() Sheet {
	for _, name := range c.order {
		if c.sheets[name].MinimumRequired {
			return *c.sheets[name]
		}
	}
	// The default configuration always carries one.
	panic("schema: no minimum required sheet configured")
}

// RequiredSheets returns the names of all required sheets in order.
func (c *Config) RequiredSheets() []string {
	required := make([]string, 0, len(c.order))
	for _, name := range c.order {
		if c.sheets[name].Required {
			required = append(required, name)
		}
	}
	return required
}

func defaultSheets() []Sheet {
	return []Sheet{
		{
			Name:            SheetVInfo,
			MinimumRequired: true,
			Required:        true,
			Columns: []string{
				ColumnVMUUID, ColumnVM, "Powerstate", "Template", "CPUs", "Memory",
				"In Use MiB", "Provisioned MiB", ColumnOSConfig, "Creation date",
				"NICs", "Disks", ColumnDNSName, ColumnPrimaryIP,
				ColumnDatacenter, ColumnCluster, ColumnHost,
				"Resource pool", "Folder", "Annotation", "VI SDK Server", "VI SDK UUID",
			},
			MandatoryColumns: []string{
				ColumnVMUUID, ColumnVM, "Powerstate", "Template", "CPUs", "Memory",
				"In Use MiB", ColumnOSConfig, ColumnDatacenter, ColumnCluster, ColumnHost,
			},
			headerAliases: lowerKeys(map[string]string{
				"vInfoUUID":                        ColumnVMUUID,
				"vInfoVMName":                      ColumnVM,
				"vInfoPowerstate":                  "Powerstate",
				"vInfoTemplate":                    "Template",
				"vInfoCPUs":                        "CPUs",
				"vInfoMemory":                      "Memory",
				"vInfoInUseMiB":                    "In Use MiB",
				"vInfoProvisionedMiB":              "Provisioned MiB",
				"vInfoOS":                          ColumnOSConfig,
				"vInfoCreateDate":                  "Creation date",
				"vInfoNICs":                        "NICs",
				"vInfoNumVirtualDisks":             "Disks",
				"vInfoDNSName":                     ColumnDNSName,
				"vInfoPrimaryIPAddress":            ColumnPrimaryIP,
				"vInfoDataCenter":                  ColumnDatacenter,
				"vInfoClusterName":                 ColumnCluster,
				"vInfoHostName":                    ColumnHost,
				"OS according to the VMware Tools": ColumnOSConfig,
			}),
		},
		{
			Name:     SheetVHost,
			Required: true,
			Columns: []string{
				ColumnHost, ColumnDatacenter, ColumnCluster, "CPU Model", "Speed",
				"# CPU", "Cores per CPU", "# Cores", "# Memory", "# NICs", "# VMs",
				"Vendor", "Model", "ESX Version", "Object ID",
			},
			MandatoryColumns: []string{
				ColumnHost, ColumnDatacenter, ColumnCluster, "# CPU", "# Cores", "# Memory", "# VMs",
			},
			headerAliases: lowerKeys(map[string]string{
				"vHostName":        ColumnHost,
				"vHostDataCenter":  ColumnDatacenter,
				"vHostClusterName": ColumnCluster,
				"vHostCpuModel":    "CPU Model",
				"vHostNumCpu":      "# CPU",
				"vHostCoresPerCPU": "Cores per CPU",
				"vHostNumCpuCores": "# Cores",
				"vHostMemory":      "# Memory",
				"vHostNumNics":     "# NICs",
				"vHostNumVms":      "# VMs",
			}),
		},
		{
			Name:     SheetVPartition,
			Required: true,
			Columns: []string{
				ColumnVMUUID, ColumnVM, "Powerstate", "Template", "Disk",
				"Capacity MiB", "Consumed MiB", "Free MiB", "Free %",
			},
			MandatoryColumns: []string{
				ColumnVMUUID, ColumnVM, "Disk", "Capacity MiB", "Consumed MiB",
			},
			headerAliases: lowerKeys(map[string]string{
				"vPartitionUUID":        ColumnVMUUID,
				"vPartitionVMName":      ColumnVM,
				"vPartitionDisk":        "Disk",
				"vPartitionCapacityMiB": "Capacity MiB",
				"vPartitionConsumedMiB": "Consumed MiB",
				"vPartitionFreeMiB":     "Free MiB",
			}),
		},
		{
			Name:     SheetVMemory,
			Required: true,
			Columns: []string{
				ColumnVMUUID, ColumnVM, "Powerstate", "Template", "Size MiB",
				"Reservation", "Overhead", "Ballooned", "Shared",
			},
			MandatoryColumns: []string{
				ColumnVMUUID, ColumnVM, "Size MiB", "Reservation",
			},
			headerAliases: lowerKeys(map[string]string{
				"vMemoryUUID":        ColumnVMUUID,
				"vMemoryVMName":      ColumnVM,
				"vMemorySizeMiB":     "Size MiB",
				"vMemoryReservation": "Reservation",
				"vMemoryBallooned":   "Ballooned",
			}),
		},
	}
}

func lowerKeys(aliases map[string]string) map[string]string {
	out := make(map[string]string, len(aliases))
	for alias, canonical := range aliases {
		out[strings.ToLower(alias)] = canonical
	}
	return out
}
