package merge_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/rvtools-merge/internal/merge"
	"github.com/kubev2v/rvtools-merge/internal/schema"
)

var _ = Describe("ValidateFile", func() {
	var (
		ctx    context.Context
		dir    string
		cfg    *schema.Config
		issues *merge.IssueList
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		cfg = schema.Default()
		issues = merge.NewIssueList()
	})

	It("accepts a complete export without issues", func() {
		path := createWorkbook(dir, "complete.xlsx", allSheets("uuid-1"))

		Expect(merge.ValidateFile(ctx, path, cfg, false, issues)).To(BeTrue())
		Expect(issues.Len()).To(BeZero())
	})

	It("rejects files that are not xlsx workbooks", func() {
		path := filepath.Join(dir, "export.xlsx")
		Expect(os.WriteFile(path, []byte("VM,Host\r\nvm-01,esx-01\r\n"), 0o600)).To(Succeed())

		Expect(merge.ValidateFile(ctx, path, cfg, false, issues)).To(BeFalse())

		items := issues.Items()
		Expect(items).To(HaveLen(1))
		Expect(items[0].Skipped).To(BeFalse())
		Expect(items[0].Message).To(ContainSubstring("cannot open or parse"))
	})

	It("rejects files without the vInfo sheet", func() {
		path := createWorkbook(dir, "hostsonly.xlsx", []sheetDef{
			{Name: "vHost", Headers: vHostHeaders(), Rows: [][]string{vHostRow("esx-01")}},
		})

		Expect(merge.ValidateFile(ctx, path, cfg, false, issues)).To(BeFalse())

		items := issues.Items()
		Expect(items).To(HaveLen(1))
		Expect(items[0].Skipped).To(BeFalse())
		Expect(items[0].Message).To(ContainSubstring(`required sheet "vInfo" not found`))
	})

	It("rejects files with mandatory columns missing and names them", func() {
		path := createWorkbook(dir, "truncated.xlsx", []sheetDef{
			{
				Name:    "vInfo",
				Headers: []string{"VM UUID", "VM", "CPUs"},
				Rows:    [][]string{{"uuid-1", "vm-01", "2"}},
			},
		})

		Expect(merge.ValidateFile(ctx, path, cfg, false, issues)).To(BeFalse())

		items := issues.Items()
		Expect(items).To(HaveLen(1))
		Expect(items[0].Skipped).To(BeFalse())
		Expect(items[0].Message).To(ContainSubstring("missing mandatory columns"))
		Expect(items[0].Message).To(ContainSubstring("Powerstate"))
		Expect(items[0].Message).To(ContainSubstring("Host"))
	})

	It("rejects files whose vInfo has no data rows", func() {
		path := createWorkbook(dir, "empty.xlsx", []sheetDef{
			{Name: "vInfo", Headers: vInfoHeaders()},
		})

		Expect(merge.ValidateFile(ctx, path, cfg, false, issues)).To(BeFalse())

		items := issues.Items()
		Expect(items).To(HaveLen(1))
		Expect(items[0].Message).To(ContainSubstring("no data rows"))
	})

	It("records missing optional sheets as skippable without failing the file", func() {
		path := createWorkbook(dir, "partial.xlsx", []sheetDef{
			{Name: "vInfo", Headers: vInfoHeaders(), Rows: [][]string{vInfoRow("uuid-1", "vm-01")}},
			{Name: "vHost", Headers: vHostHeaders(), Rows: [][]string{vHostRow("esx-01")}},
		})

		Expect(merge.ValidateFile(ctx, path, cfg, false, issues)).To(BeTrue())

		items := issues.Items()
		Expect(items).To(HaveLen(2)) // vPartition and vMemory
		for _, issue := range items {
			Expect(issue.Skipped).To(BeTrue())
		}
	})

	It("skips the optional-sheet check when asked to ignore them", func() {
		path := createWorkbook(dir, "partial.xlsx", []sheetDef{
			{Name: "vInfo", Headers: vInfoHeaders(), Rows: [][]string{vInfoRow("uuid-1", "vm-01")}},
		})

		Expect(merge.ValidateFile(ctx, path, cfg, true, issues)).To(BeTrue())
		Expect(issues.Len()).To(BeZero())
	})

	It("accepts legacy exports through the alias tables", func() {
		path := createWorkbook(dir, "legacy.xlsx", []sheetDef{
			{
				Name: "vInfo",
				Headers: []string{
					"vInfoUUID", "vInfoVMName", "vInfoPowerstate", "vInfoTemplate",
					"vInfoCPUs", "vInfoMemory", "vInfoInUseMiB", "vInfoOS",
					"vInfoDataCenter", "vInfoClusterName", "vInfoHostName",
				},
				Rows: [][]string{vInfoRow("uuid-1", "vm-01")},
			},
		})

		Expect(merge.ValidateFile(ctx, path, cfg, true, issues)).To(BeTrue())
		Expect(issues.Len()).To(BeZero())
	})
})
