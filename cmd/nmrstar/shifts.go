package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bmrb-io/nmrstar/star"
)

var shiftsCmd = &cobra.Command{
	Use:   "shifts <file>",
	Short: "Print the assigned chemical shifts as CSV",
	Long: `Extract the _Atom_chem_shift loop from the assigned chemical shifts
saveframe of an entry, or from a standalone saveframe file, and print
it as CSV.`,
	Args: cobra.ExactArgs(1),
	RunE: runShifts,
}

func init() {
	rootCmd.AddCommand(shiftsCmd)
}

func runShifts(cmd *cobra.Command, args []string) error {
	frame, err := loadShiftFrame(args[0])
	if err != nil {
		return err
	}

	loop := frame.LoopByCategory("_Atom_chem_shift")
	if loop == nil {
		return errors.New("The assigned chemical shifts saveframe didn't have an assigned chemical shift loop. (Expecting loop: '_Atom_chem_shift')")
	}
	fmt.Print(loop.DataAsCSV())
	return nil
}

// loadShiftFrame locates the assigned chemical shifts saveframe in the
// named file, which may hold a full entry or a single saveframe.
func loadShiftFrame(path string) (*star.Saveframe, error) {
	if entry, err := star.ParseFile(path); err == nil {
		frames := entry.SaveframesByCategory("assigned_chemical_shifts")
		switch {
		case len(frames) > 1:
			return nil, errors.New("The entry you specified has more than one assigned chemical shift loop. Please remove the extra one.")
		case len(frames) == 0:
			return nil, errors.New("There don't appear to be any assigned chemical shift saveframes in the file you specified.")
		}
		return frames[0], nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	frame, err := star.ParseSaveframe(string(src))
	if err != nil {
		return nil, errors.New("The file you specified does not appear to be an NMR-STAR file or NMR-STAR saveframe.")
	}
	return frame, nil
}
