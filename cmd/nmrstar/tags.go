package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags <file> [saveframe]",
	Short: "List the tags in an entry or one saveframe",
	Long: `With only a file, print the tag names of every saveframe and loop in
the entry. With a saveframe name, print that saveframe's tags together
with their values, newlines escaped.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	entry, err := loadEntry(args[0])
	if err != nil {
		return err
	}

	if len(args) == 2 {
		frame := entry.SaveframeByName(args[1])
		if frame == nil {
			return fmt.Errorf("no saveframe named '%s' in %s", args[1], args[0])
		}
		for _, tag := range frame.Tags {
			fmt.Printf("%s.%s: %s\n", frame.TagPrefix, tag.Name, strings.ReplaceAll(tag.Value, "\n", "\\n"))
		}
		return nil
	}

	fmt.Printf("Entry %s\n", entry.ID)
	for _, frame := range entry.Saveframes {
		fmt.Printf("  Saveframe %s:%s\n", frame.Name, frame.Category())
		for _, tag := range frame.Tags {
			fmt.Printf("    %s.%s\n", frame.TagPrefix, tag.Name)
		}
		for _, loop := range frame.Loops {
			fmt.Printf("    Loop %s\n", loop.Category)
			for _, tag := range loop.Tags {
				fmt.Printf("      %s.%s\n", loop.Category, tag)
			}
		}
	}
	return nil
}
