package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var seqCmd = &cobra.Command{
	Use:   "seq <file>",
	Short: "Print the polymer sequences in an entry",
	Long: `Print the one letter polymer sequence of each entity in the entry,
one sequence per line.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeq,
}

func init() {
	rootCmd.AddCommand(seqCmd)
}

func runSeq(cmd *cobra.Command, args []string) error {
	entry, err := loadEntry(args[0])
	if err != nil {
		return err
	}

	sequences, err := entry.GetTag("_Entity.Polymer_seq_one_letter_code")
	if err != nil {
		return err
	}
	if len(sequences) == 0 {
		return errors.New("No polymer sequences found in file.")
	}
	if len(sequences) > 1 {
		fmt.Fprintln(os.Stderr, "Warning: multiple chains in entry.")
	}

	for _, seq := range sequences {
		fmt.Println(strings.ReplaceAll(seq, "\n", ""))
	}
	return nil
}
