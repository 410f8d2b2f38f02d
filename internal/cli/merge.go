package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kubev2v/rvtools-merge/internal/config"
	"github.com/kubev2v/rvtools-merge/internal/merge"
	"github.com/kubev2v/rvtools-merge/internal/schema"
	"github.com/kubev2v/rvtools-merge/pkg/log"
)

type MergeOptions struct {
	Output                 string
	IgnoreMissingSheets    bool
	SkipInvalidFiles       bool
	Anonymize              bool
	OnlyMandatoryColumns   bool
	IncludeSource          bool
	SkipEmptyValues        bool
	MaxVInfoRows           int
	AllSheets              bool
	AzureMigrateValidation bool
	Debug                  bool
	SchemaOverlay          string

	inputs []string
}

func DefaultMergeOptions() *MergeOptions {
	return &MergeOptions{}
}

func NewCmdMerge() *cobra.Command {
	o := DefaultMergeOptions()
	cmd := &cobra.Command{
		Use:          "merge [flags] FILE_OR_DIR...",
		Short:        "merge RVTools export files into one workbook",
		Example:      "merge exports/march/ extra.xlsx --output merged.xlsx --anonymize",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *MergeOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Path of the merged workbook")
	fs.BoolVarP(&o.IgnoreMissingSheets, "ignore-missing-sheets", "i", false, "Do not check for required sheets beyond vInfo")
	fs.BoolVarP(&o.SkipInvalidFiles, "skip-invalid-files", "s", false, "Skip files that fail validation instead of aborting")
	fs.BoolVarP(&o.Anonymize, "anonymize", "a", false, "Anonymize VM, host, cluster, datacenter, DNS and IP values")
	fs.BoolVarP(&o.OnlyMandatoryColumns, "only-mandatory-columns", "M", false, "Emit only each sheet's mandatory columns")
	fs.BoolVar(&o.IncludeSource, "include-source", false, "Append a Source File column to every sheet")
	fs.BoolVarP(&o.SkipEmptyValues, "skip-empty-values", "e", false, "Skip rows with empty mandatory values")
	fs.IntVar(&o.MaxVInfoRows, "max-vinfo-rows", 0, "Maximum number of vInfo rows in the output (0 = unlimited)")
	fs.BoolVar(&o.AllSheets, "all-sheets", false, "Merge every sheet found in the inputs, not only the known four")
	fs.BoolVar(&o.AzureMigrateValidation, "azure-migrate-validation", false, "Validate merged VMs against the Azure Migrate import rules")
	fs.BoolVarP(&o.Debug, "debug", "d", false, "Enable debug logging")
	fs.StringVar(&o.SchemaOverlay, "schema-overlay", o.SchemaOverlay, "YAML file adding header aliases for unrecognized export versions")
}

// Complete expands directory arguments into the xlsx files they contain, in
// sorted order, and fills unset flags from the environment-backed config.
func (o *MergeOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if o.Output == "" {
		o.Output = cfg.Service.OutputPath
	}
	if o.SchemaOverlay == "" {
		o.SchemaOverlay = cfg.Service.SchemaOverlay
	}

	logLevel := cfg.Service.LogLevel
	if o.Debug {
		logLevel = "debug"
	}
	zap.ReplaceGlobals(log.InitLog(logLevel))

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			o.inputs = append(o.inputs, arg)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(arg, "*.xlsx"))
		if err != nil {
			return err
		}
		sort.Strings(matches)
		o.inputs = append(o.inputs, matches...)
	}

	return nil
}

func (o *MergeOptions) Validate(args []string) error {
	if o.Output == "" {
		return fmt.Errorf("an output path is required")
	}
	if len(o.inputs) == 0 {
		return fmt.Errorf("no input files found in %s", strings.Join(args, ", "))
	}
	return nil
}

func (o *MergeOptions) Run(ctx context.Context, args []string) error {
	cfg := schema.Default()
	if o.SchemaOverlay != "" {
		if err := cfg.ApplyOverlayFile(o.SchemaOverlay); err != nil {
			return err
		}
	}

	issues := merge.NewIssueList()
	merger, err := merge.New(cfg, merge.Options{
		IgnoreMissingOptionalSheets:      o.IgnoreMissingSheets,
		SkipInvalidFiles:                 o.SkipInvalidFiles,
		AnonymizeData:                    o.Anonymize,
		OnlyMandatoryColumns:             o.OnlyMandatoryColumns,
		IncludeSourceFileName:            o.IncludeSource,
		SkipRowsWithEmptyMandatoryValues: o.SkipEmptyValues,
		MaxVInfoRows:                     o.MaxVInfoRows,
		ProcessAllSheets:                 o.AllSheets,
		DebugMode:                        o.Debug,
		EnableAzureMigrateValidation:     o.AzureMigrateValidation,
	}, issues)
	if err != nil {
		return err
	}

	runErr := merger.Run(ctx, o.inputs, o.Output)
	renderIssues(issues)
	if runErr != nil {
		return runErr
	}

	if o.Anonymize {
		renderAnonymizationStats(merger.Anonymizer())
	}
	fmt.Printf("Merged output written to %s\n", o.Output)
	return nil
}

func renderIssues(issues *merge.IssueList) {
	warnings, criticals := 0, 0
	for _, issue := range issues.Items() {
		fmt.Println(issue.String())
		if issue.Skipped {
			warnings++
		} else {
			criticals++
		}
	}
	if warnings+criticals > 0 {
		fmt.Printf("%d issue(s) recorded: %d critical, %d skippable\n", warnings+criticals, criticals, warnings)
	}
}

func renderAnonymizationStats(anonymizer *merge.Anonymizer) {
	stats := anonymizer.Statistics()
	for _, category := range merge.Categories() {
		byFile := stats[category]
		if len(byFile) == 0 {
			continue
		}
		total := 0
		for _, count := range byFile {
			total += count
		}
		fmt.Printf("Anonymized %d distinct %s value(s) across %d file(s)\n", total, category.Display(), len(byFile))
	}
}
