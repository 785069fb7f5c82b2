// Package star reads, manipulates, and writes NMR-STAR files, the
// archival format of the Biological Magnetic Resonance Data Bank.
//
// The package is organized in layers:
//
//   - Lexer splits source text into tokens, handling the four quoting
//     styles (bare, single quoted, double quoted, and semicolon
//     delimited multiline values) plus comments and frame references.
//   - Parse assembles tokens into an Entry, the root of the document
//     tree: an Entry holds Saveframes, a Saveframe holds free tags and
//     Loops, and a Loop holds a rectangular table of values.
//   - QuoteValue is the inverse of the lexer for a single value: it
//     picks the minimal quoting style that makes the value survive a
//     round trip through parsing.
//   - Schema validates tag values against the BMRB data dictionary.
//
// Values are kept as strings throughout. The two null markers "." (not
// applicable) and "?" (unknown) are preserved exactly as written; use
// IsNullValue to test for either. Schema.ConvertValue converts a string
// cell to a typed Go value when a schema is available.
//
// A minimal session:
//
//	entry, err := star.ParseString("data_spectra\nsave_peaks\n_Peak.ID 1\nsave_\n")
//	if err != nil {
//		return err
//	}
//	frame := entry.SaveframeByName("peaks")
//	fmt.Print(entry.String())
package star
