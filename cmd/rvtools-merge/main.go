package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kubev2v/rvtools-merge/internal/cli"
)

func main() {
	command := NewRVToolsMergeCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRVToolsMergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rvtools-merge [flags] [options]",
		Short: "rvtools-merge consolidates RVTools exports into a single workbook.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdMerge())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
