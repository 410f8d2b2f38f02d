package merge_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/rvtools-merge/internal/merge"
	"github.com/kubev2v/rvtools-merge/internal/schema"
)

var _ = Describe("Merger", func() {
	var (
		ctx    context.Context
		dir    string
		out    string
		cfg    *schema.Config
		issues *merge.IssueList
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		out = filepath.Join(dir, "merged.xlsx")
		cfg = schema.Default()
		issues = merge.NewIssueList()
	})

	newMerger := func(opts merge.Options) *merge.Merger {
		m, err := merge.New(cfg, opts, issues)
		Expect(err).To(Succeed())
		return m
	}

	Describe("preconditions", func() {
		It("fails on an empty input list before any I/O", func() {
			m := newMerger(merge.Options{})
			err := m.Run(ctx, nil, out)
			Expect(err).To(MatchError(merge.ErrNoInputFiles))
			Expect(out).NotTo(BeAnExistingFile())
		})

		It("rejects anonymization combined with all-sheets processing", func() {
			_, err := merge.New(cfg, merge.Options{AnonymizeData: true, ProcessAllSheets: true}, issues)
			Expect(err).To(MatchError(merge.ErrConflictingOptions))
		})

		It("stops on a cancelled context", func() {
			path := createWorkbook(dir, "a.xlsx", allSheets("uuid-1"))

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			m := newMerger(merge.Options{})
			Expect(m.Run(cancelled, []string{path}, out)).To(MatchError(context.Canceled))
			Expect(out).NotTo(BeAnExistingFile())
		})
	})

	Describe("merging", func() {
		It("concatenates rows from multiple files in input order", func() {
			first := createWorkbook(dir, "first.xlsx", allSheets("uuid-1", "uuid-2"))
			second := createWorkbook(dir, "second.xlsx", allSheets("uuid-3"))

			m := newMerger(merge.Options{OnlyMandatoryColumns: true})
			Expect(m.Run(ctx, []string{first, second}, out)).To(Succeed())

			rows := readSheet(out, "vInfo")
			Expect(rows).To(HaveLen(4)) // header + 3 VMs
			Expect(rows[0]).To(Equal(vInfoHeaders()))
			Expect(rows[1][0]).To(Equal("uuid-1"))
			Expect(rows[2][0]).To(Equal("uuid-2"))
			Expect(rows[3][0]).To(Equal("uuid-3"))

			Expect(readSheet(out, "vHost")).To(HaveLen(5))      // header + 2 hosts per file
			Expect(readSheet(out, "vPartition")).To(HaveLen(7)) // header + 2 partitions per VM
			Expect(readSheet(out, "vMemory")).To(HaveLen(4))
			Expect(issues.Len()).To(BeZero())
		})

		It("normalizes legacy prefixed headers through the alias tables", func() {
			legacy := sheetDef{
				Name: "vInfo",
				Headers: []string{
					"vInfoUUID", "vInfoVMName", "vInfoPowerstate", "vInfoTemplate",
					"vInfoCPUs", "vInfoMemory", "vInfoInUseMiB", "vInfoOS",
					"vInfoDataCenter", "vInfoClusterName", "vInfoHostName",
				},
				Rows: [][]string{vInfoRow("uuid-1", "vm-01")},
			}
			path := createWorkbook(dir, "legacy.xlsx", []sheetDef{legacy})

			m := newMerger(merge.Options{OnlyMandatoryColumns: true, IgnoreMissingOptionalSheets: true})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			rows := readSheet(out, "vInfo")
			Expect(rows[0]).To(Equal(vInfoHeaders()))
			Expect(rows[1]).To(Equal(vInfoRow("uuid-1", "vm-01")))
		})

		It("appends the source file column to every sheet", func() {
			path := createWorkbook(dir, "export.xlsx", allSheets("uuid-1"))

			m := newMerger(merge.Options{OnlyMandatoryColumns: true, IncludeSourceFileName: true})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			for _, sheet := range []string{"vInfo", "vHost", "vPartition", "vMemory"} {
				rows := readSheet(out, sheet)
				Expect(rows[0][len(rows[0])-1]).To(Equal("Source File"), "sheet %s", sheet)
				Expect(rows[1][len(rows[1])-1]).To(Equal("export.xlsx"), "sheet %s", sheet)
			}
		})

		It("drops rows with empty mandatory values when asked to", func() {
			info := sheetDef{
				Name:    "vInfo",
				Headers: vInfoHeaders(),
				Rows: [][]string{
					vInfoRow("uuid-1", "vm-01"),
					{"uuid-2", "vm-02", "poweredOn", "False", "2", "4096", "2048", "", "DC1", "Cluster1", "esx-01"},
				},
			}
			path := createWorkbook(dir, "gaps.xlsx", []sheetDef{info})

			m := newMerger(merge.Options{
				OnlyMandatoryColumns:             true,
				IgnoreMissingOptionalSheets:      true,
				SkipRowsWithEmptyMandatoryValues: true,
			})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			Expect(readSheet(out, "vInfo")).To(HaveLen(2))

			items := issues.Items()
			Expect(items).To(HaveLen(1))
			Expect(items[0].Skipped).To(BeTrue())
			Expect(items[0].Message).To(ContainSubstring("empty mandatory value"))
		})
	})

	Describe("row capping", func() {
		It("keeps dependent sheets consistent with the capped vInfo", func() {
			uuids := make([]string, 10)
			for i := range uuids {
				uuids[i] = "uuid-" + string(rune('a'+i))
			}
			path := createWorkbook(dir, "big.xlsx", allSheets(uuids...))

			m := newMerger(merge.Options{OnlyMandatoryColumns: true, MaxVInfoRows: 3})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			Expect(readSheet(out, "vInfo")).To(HaveLen(4))      // header + 3
			Expect(readSheet(out, "vPartition")).To(HaveLen(7)) // header + 2 per surviving VM
			Expect(readSheet(out, "vMemory")).To(HaveLen(4))
			// vHost has no VM identity column and is unaffected.
			Expect(readSheet(out, "vHost")).To(HaveLen(3))

			rows := readSheet(out, "vInfo")
			Expect(rows[1][0]).To(Equal("uuid-a"))
			Expect(rows[3][0]).To(Equal("uuid-c"))
		})
	})

	Describe("invalid files", func() {
		var valid, invalid string

		BeforeEach(func() {
			valid = createWorkbook(dir, "valid.xlsx", allSheets("uuid-1"))
			broken := sheetDef{
				Name:    "vInfo",
				Headers: []string{"VM UUID", "VM"}, // most mandatory columns missing
				Rows:    [][]string{{"uuid-9", "vm-99"}},
			}
			invalid = createWorkbook(dir, "invalid.xlsx", []sheetDef{broken})
		})

		It("skips them and keeps merging when the policy allows", func() {
			m := newMerger(merge.Options{OnlyMandatoryColumns: true, SkipInvalidFiles: true})
			Expect(m.Run(ctx, []string{valid, invalid}, out)).To(Succeed())

			rows := readSheet(out, "vInfo")
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][0]).To(Equal("uuid-1"))

			items := issues.Items()
			Expect(items).To(HaveLen(1))
			Expect(items[0].File).To(Equal("invalid.xlsx"))
			Expect(items[0].Skipped).To(BeFalse())
			Expect(items[0].Message).To(ContainSubstring("Powerstate"))
		})

		It("aborts without output when the policy forbids skipping", func() {
			m := newMerger(merge.Options{OnlyMandatoryColumns: true})
			err := m.Run(ctx, []string{valid, invalid}, out)
			Expect(err).To(MatchError(merge.ErrInvalidFile))
			Expect(out).NotTo(BeAnExistingFile())
		})

		It("fails when no file survives validation", func() {
			m := newMerger(merge.Options{OnlyMandatoryColumns: true, SkipInvalidFiles: true})
			err := m.Run(ctx, []string{invalid}, out)
			Expect(err).To(MatchError(merge.ErrNoValidFiles))
			Expect(out).NotTo(BeAnExistingFile())
		})
	})

	Describe("anonymization", func() {
		It("replaces identifying values consistently across sheets of a file", func() {
			path := createWorkbook(dir, "export.xlsx", allSheets("uuid-1", "uuid-2"))

			m := newMerger(merge.Options{OnlyMandatoryColumns: true, AnonymizeData: true})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			rows := readSheet(out, "vInfo")
			Expect(rows[1][0]).To(Equal("uuid-1")) // UUIDs are not anonymized
			Expect(rows[1][1]).To(Equal("vm1"))
			Expect(rows[2][1]).To(Equal("vm2"))
			Expect(rows[1][8]).To(Equal("datacenter1"))
			Expect(rows[1][9]).To(Equal("cluster1"))
			Expect(rows[1][10]).To(Equal("host1"))

			// The same VM name resolves to the same synthetic value on
			// dependent sheets.
			partitions := readSheet(out, "vPartition")
			Expect(partitions[1][1]).To(Equal("vm1"))
			Expect(partitions[3][1]).To(Equal("vm2"))
		})

		It("writes the mapping workbook with file-scoped entries", func() {
			first := createWorkbook(dir, "first.xlsx", allSheets("uuid-1"))
			second := createWorkbook(dir, "second.xlsx", allSheets("uuid-2"))

			m := newMerger(merge.Options{OnlyMandatoryColumns: true, AnonymizeData: true})
			Expect(m.Run(ctx, []string{first, second}, out)).To(Succeed())

			mappingPath := filepath.Join(dir, "merged_AnonymizationMapping.xlsx")
			Expect(mappingPath).To(BeAnExistingFile())
			Expect(sheetNames(mappingPath)).To(ContainElements("VM", "Host", "Cluster", "Datacenter"))

			// Both files anonymized the same host name independently: one
			// entry per file, not a shared one.
			rows := readSheet(mappingPath, "Host")
			Expect(rows[0]).To(Equal([]string{"Source File", "Original Value", "Anonymized Value"}))
			hostEntries := 0
			for _, row := range rows[1:] {
				if row[1] == "esx-01" {
					hostEntries++
				}
			}
			Expect(hostEntries).To(Equal(2))
		})
	})

	Describe("Azure Migrate validation", func() {
		It("exports failing rows and filters them from the output", func() {
			info := sheetDef{
				Name:    "vInfo",
				Headers: vInfoHeaders(),
				Rows: [][]string{
					vInfoRow("uuid-1", "vm-01"),
					vInfoRow("", "vm-02"),       // missing UUID
					vInfoRow("uuid-1", "vm-03"), // duplicate UUID
				},
			}
			partition := sheetDef{
				Name:    "vPartition",
				Headers: vPartitionHeaders(),
				Rows: [][]string{
					vPartitionRow("uuid-1", "vm-01", "/"),
					vPartitionRow("", "vm-02", "/"),
				},
			}
			path := createWorkbook(dir, "azure.xlsx", []sheetDef{info, partition})

			m := newMerger(merge.Options{
				OnlyMandatoryColumns:         true,
				IgnoreMissingOptionalSheets:  true,
				EnableAzureMigrateValidation: true,
			})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			Expect(readSheet(out, "vInfo")).To(HaveLen(2))
			// The partition row of the rejected VM is filtered out too.
			Expect(readSheet(out, "vPartition")).To(HaveLen(2))

			failedPath := filepath.Join(dir, "merged_FailedAzureMigrateValidation.xlsx")
			Expect(failedPath).To(BeAnExistingFile())

			failed := readSheet(failedPath, "FailedRows")
			Expect(failed).To(HaveLen(3))
			Expect(failed[0][len(failed[0])-1]).To(Equal("Failure Reason"))
			Expect(failed[1][len(failed[1])-1]).To(Equal("Missing VM UUID"))
			Expect(failed[2][len(failed[2])-1]).To(Equal("Duplicate VM UUID"))
		})

		It("writes no side workbook when every row passes", func() {
			path := createWorkbook(dir, "clean.xlsx", allSheets("uuid-1", "uuid-2"))

			m := newMerger(merge.Options{OnlyMandatoryColumns: true, EnableAzureMigrateValidation: true})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			Expect(filepath.Join(dir, "merged_FailedAzureMigrateValidation.xlsx")).NotTo(BeAnExistingFile())
		})
	})

	Describe("all-sheets mode", func() {
		It("carries unknown sheets through after the known ones", func() {
			sheets := allSheets("uuid-1")
			sheets = append(sheets, sheetDef{
				Name:    "vUSB",
				Headers: []string{"VM", "Device", "Connected"},
				Rows:    [][]string{{"vm-01", "usb-controller", "True"}},
			})
			path := createWorkbook(dir, "full.xlsx", sheets)

			m := newMerger(merge.Options{ProcessAllSheets: true})
			Expect(m.Run(ctx, []string{path}, out)).To(Succeed())

			Expect(sheetNames(out)).To(Equal([]string{"vInfo", "vHost", "vPartition", "vMemory", "vUSB"}))

			usb := readSheet(out, "vUSB")
			Expect(usb[0]).To(Equal([]string{"VM", "Device", "Connected"}))
			Expect(usb[1]).To(Equal([]string{"vm-01", "usb-controller", "True"}))
		})
	})
})

var _ = Describe("Issue", func() {
	It("renders severity by the skipped flag", func() {
		critical := merge.Issue{File: "a.xlsx", Message: "boom"}
		Expect(critical.String()).To(HavePrefix("error:"))

		warning := merge.Issue{File: "a.xlsx", Skipped: true, Message: "meh"}
		Expect(warning.String()).To(HavePrefix("warning:"))
	})
})

var _ = Describe("IssueList", func() {
	It("keeps insertion order and reports criticals", func() {
		issues := merge.NewIssueList()
		Expect(issues.HasCritical()).To(BeFalse())

		issues.Append("a.xlsx", true, "first")
		issues.Append("b.xlsx", false, "second %d", 2)

		items := issues.Items()
		Expect(items).To(HaveLen(2))
		Expect(items[0].Message).To(Equal("first"))
		Expect(items[1].Message).To(Equal("second 2"))
		Expect(issues.HasCritical()).To(BeTrue())
	})
})
