package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate entries against the NMR-STAR dictionary",
	Long: `Check each file for structural problems and for tag values that
violate the NMR-STAR dictionary. Violations are printed one per line.
The exit status is nonzero when any file has problems.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	sch, err := loadSchema(cmd.Context())
	if err != nil {
		return err
	}
	verbosef("[validate] using dictionary version %s", sch.Version)

	total := 0
	for _, path := range args {
		entry, err := loadEntry(path)
		if err != nil {
			return err
		}

		if len(args) > 1 {
			fmt.Printf("%s:\n", path)
		}
		violations := entry.Validate(sch)
		if len(violations) == 0 {
			fmt.Println("No problems found during validation.")
			continue
		}
		for i, v := range violations {
			fmt.Printf("%d: %s\n", i+1, v)
		}
		total += len(violations)
	}

	if total > 0 {
		return fmt.Errorf("validation found %d problem(s)", total)
	}
	return nil
}
