package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var framesCmd = &cobra.Command{
	Use:   "frames <file>",
	Short: "List the saveframes in an entry",
	Long:  "Print one 'name: category' line per saveframe in the entry.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFrames,
}

func init() {
	rootCmd.AddCommand(framesCmd)
}

func runFrames(cmd *cobra.Command, args []string) error {
	entry, err := loadEntry(args[0])
	if err != nil {
		return err
	}

	for _, frame := range entry.Saveframes {
		fmt.Printf("%s: %s\n", frame.Name, frame.Category())
	}
	return nil
}
