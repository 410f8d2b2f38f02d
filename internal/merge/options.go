package merge

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrNoInputFiles       = errors.New("no input files provided")
	ErrConflictingOptions = errors.New("anonymization cannot be combined with processing all sheets")
	ErrNoValidFiles       = errors.New("no valid files to process")
	ErrInvalidFile        = errors.New("invalid file found")
)

// Options configures a single merge run. The zero value merges the four known
// sheets with no anonymization, no row cap, and strict validation.
type Options struct {
	// IgnoreMissingOptionalSheets suppresses the presence check for required
	// sheets other than the minimum one.
	IgnoreMissingOptionalSheets bool

	// SkipInvalidFiles drops files that fail validation or break mid-read
	// instead of aborting the whole run.
	SkipInvalidFiles bool

	// AnonymizeData replaces identifying values (VM, host, cluster,
	// datacenter, DNS name, IP address) with synthetic ones, consistently
	// within each source file.
	AnonymizeData bool

	// OnlyMandatoryColumns restricts the output to each sheet's mandatory
	// columns.
	OnlyMandatoryColumns bool

	// IncludeSourceFileName appends a "Source File" column to every sheet.
	IncludeSourceFileName bool

	// SkipRowsWithEmptyMandatoryValues drops rows whose mandatory cells are
	// blank instead of carrying them through.
	SkipRowsWithEmptyMandatoryValues bool

	// MaxVInfoRows caps the number of merged vInfo rows. Zero means no cap.
	// Dependent sheets keep only rows for VMs that survive the cap.
	MaxVInfoRows int `validate:"gte=0"`

	// ProcessAllSheets merges every sheet found in the inputs instead of the
	// fixed four. Mutually exclusive with AnonymizeData.
	ProcessAllSheets bool

	// DebugMode enables verbose pipeline logging.
	DebugMode bool

	// EnableAzureMigrateValidation applies the Azure Migrate row rules to the
	// merged vInfo sheet and exports failing rows to a side workbook.
	EnableAzureMigrateValidation bool
}

var optionsValidator = validator.New()

// Validate reports option combinations that can never produce a merge.
func (o Options) Validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return errors.Wrap(err, "invalid merge options")
	}
	if o.AnonymizeData && o.ProcessAllSheets {
		return ErrConflictingOptions
	}
	return nil
}
