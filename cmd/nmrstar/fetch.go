package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bmrb-io/nmrstar/bmrb"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Download an entry from the BMRB database",
	Long: `Fetch an entry from the public BMRB API by accession number and print
it in NMR-STAR format. With -o the entry is written to a file instead,
gzip compressed when the name ends in .gz.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "", "Write the entry to this file instead of stdout")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	client := bmrb.NewClient()
	verbosef("[fetch] requesting entry %s", args[0])
	entry, err := client.FetchEntry(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	verbosef("[fetch] received entry %s with %d saveframes", entry.ID, len(entry.Saveframes))

	if output == "" {
		return entry.Write(os.Stdout)
	}
	if err := entry.WriteFile(output); err != nil {
		return err
	}
	verbosef("[fetch] wrote %s", output)
	return nil
}
