package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <file1> <file2>",
	Short: "Show the differences between two entries",
	Long: `Compare two NMR-STAR files semantically, ignoring formatting and loop
row order. Which differences are detected depends on the order of the
arguments. The exit status is nonzero when the entries differ.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	first, err := loadEntry(args[0])
	if err != nil {
		return err
	}
	second, err := loadEntry(args[1])
	if err != nil {
		return err
	}

	diffs := first.Compare(second)
	if len(diffs) == 0 {
		fmt.Println("Identical entries.")
		return nil
	}
	for _, d := range diffs {
		fmt.Println(d)
	}
	return fmt.Errorf("%d difference(s) found", len(diffs))
}
