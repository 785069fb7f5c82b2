package star

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ParseOptions adjusts parser strictness. The zero value gives the
// standard behavior: named saveframe terminators must match the frame
// they close, and structural oddities are tolerated silently.
type ParseOptions struct {
	// AllowLooseSaveframeNames accepts a named terminator
	// ("save_other") whose name does not match the saveframe it
	// closes, a form found in some legacy files.
	AllowLooseSaveframeNames bool
	// RaiseParseWarnings turns tolerated oddities, loops with no tags
	// and loops with no data, into parse errors.
	RaiseParseWarnings bool
}

// Parse reads a complete entry from r.
func Parse(r io.Reader) (*Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data))
}

// ParseString parses a complete entry from src.
func ParseString(src string) (*Entry, error) {
	return ParseWithOptions(src, ParseOptions{})
}

// ParseWithOptions parses a complete entry from src under the given
// options.
func ParseWithOptions(src string, opts ParseOptions) (*Entry, error) {
	p := &parser{lex: NewLexer(src), opts: opts}
	return p.parseEntry()
}

// ParseFile parses an entry from the named file, decompressing when
// the name ends in ".gz".
func ParseFile(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	return Parse(r)
}

// ParseSaveframe parses a single save block, "save_NAME" through
// "save_".
func ParseSaveframe(src string) (*Saveframe, error) {
	p := &parser{lex: NewLexer(src)}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, &ParseError{Message: "No saveframe found in the given text."}
	}
	if !strings.HasPrefix(strings.ToLower(tok.Text), "save_") {
		return nil, parseErrorf(tok.Line, "Only 'save_NAME' is valid in the body of a NMR-STAR file. Found '%s'.", tok.Text)
	}
	if len(tok.Text) < 6 {
		return nil, parseErrorf(tok.Line, "'save_' must be followed by saveframe name. You have a 'save_' tag which is illegal without a specified saveframe name.")
	}
	if tok.Delineator != DelineatorNone {
		return nil, parseErrorf(tok.Line, "The save_ keyword may not be quoted or semicolon-delimited.")
	}
	frame := NewSaveframe(tok.Text[5:])
	if err := p.parseFrame(frame); err != nil {
		return nil, err
	}
	if trailing, err := p.next(); err != nil {
		return nil, err
	} else if trailing != nil {
		return nil, parseErrorf(trailing.Line, "Invalid token found after the saveframe ended: '%s'", trailing.Text)
	}
	return frame, nil
}

// ParseLoop parses a single loop block, "loop_" through "stop_".
func ParseLoop(src string) (*Loop, error) {
	p := &parser{lex: NewLexer(src)}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, &ParseError{Message: "No loop found in the given text."}
	}
	if strings.ToLower(tok.Text) != "loop_" {
		return nil, parseErrorf(tok.Line, "Invalid token found in loop contents. Expecting 'loop_' but found: '%s'", tok.Text)
	}
	if tok.Delineator != DelineatorNone {
		return nil, parseErrorf(tok.Line, "The loop_ keyword may not be quoted or semicolon-delimited.")
	}
	holder := NewSaveframe("internal_use")
	loop, err := p.parseLoop(holder)
	if err != nil {
		return nil, err
	}
	if trailing, err := p.next(); err != nil {
		return nil, err
	} else if trailing != nil {
		return nil, parseErrorf(trailing.Line, "Invalid token found after the loop ended: '%s'", trailing.Text)
	}
	return loop, nil
}

// parser drives the lexer through the grammar: a data block header
// followed by saveframes, each holding tags and loops.
type parser struct {
	lex  *Lexer
	opts ParseOptions
}

func (p *parser) next() (*Token, error) {
	return p.lex.Next()
}

// wrapf converts a document model error raised mid-parse into a
// ParseError carrying the offending line.
func wrapf(err error, line int) *ParseError {
	return &ParseError{Message: err.Error(), Line: line, Cause: err}
}

func (p *parser) parseEntry() (*Entry, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, &ParseError{Message: "Invalid file. NMR-STAR files must start with 'data_' followed by the data name. Did you accidentally select the wrong file?"}
	}
	if !strings.HasPrefix(strings.ToLower(tok.Text), "data_") {
		return nil, parseErrorf(tok.Line, "Invalid file. NMR-STAR files must start with 'data_' followed by the data name. Did you accidentally select the wrong file? Your file started with '%s'.", tok.Text)
	}
	if len(tok.Text) < 6 {
		return nil, parseErrorf(tok.Line, "'data_' must be followed by data name. Simply 'data_' is not allowed.")
	}
	if tok.Delineator != DelineatorNone {
		return nil, parseErrorf(tok.Line, "The data_ keyword may not be quoted or semicolon-delimited.")
	}
	entry := NewEntry(tok.Text[5:])

	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return entry, nil
		}
		if !strings.HasPrefix(strings.ToLower(tok.Text), "save_") {
			return nil, parseErrorf(tok.Line, "Only 'save_NAME' is valid in the body of a NMR-STAR file. Found '%s'.", tok.Text)
		}
		if len(tok.Text) < 6 {
			return nil, parseErrorf(tok.Line, "'save_' must be followed by saveframe name. You have a 'save_' tag which is illegal without a specified saveframe name.")
		}
		if tok.Delineator != DelineatorNone {
			return nil, parseErrorf(tok.Line, "The save_ keyword may not be quoted or semicolon-delimited.")
		}
		frame := NewSaveframe(tok.Text[5:])
		if err := entry.AddSaveframe(frame); err != nil {
			return nil, wrapf(err, tok.Line)
		}
		if err := p.parseFrame(frame); err != nil {
			return nil, err
		}
	}
}

// parseFrame consumes the body of a saveframe through its terminator.
func (p *parser) parseFrame(frame *Saveframe) error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok == nil {
			return &ParseError{Message: "Saveframe improperly terminated at end of file. Saveframes must be terminated with the 'save_' token."}
		}
		lower := strings.ToLower(tok.Text)

		switch {
		case lower == "loop_":
			if tok.Delineator != DelineatorNone {
				return parseErrorf(tok.Line, "The loop_ keyword may not be quoted or semicolon-delimited.")
			}
			if _, err := p.parseLoop(frame); err != nil {
				return err
			}

		case lower == "save_":
			if tok.Delineator == DelineatorSingle || tok.Delineator == DelineatorDouble {
				return parseErrorf(tok.Line, "The save_ keyword may not be quoted or semicolon-delimited.")
			}
			if frame.TagPrefix == "" {
				return parseErrorf(tok.Line, "The tag prefix was never set! Either the saveframe had no tags, you tried to read a version 2.1 file, or there is something else wrong with your file. Saveframe error occurred within: '%s'", frame.Name)
			}
			return nil

		case tok.Delineator == DelineatorNone && strings.HasPrefix(lower, "save_"):
			// A named terminator. Legacy files close frames with the
			// opening name repeated.
			if tok.Text[5:] != frame.Name && !p.opts.AllowLooseSaveframeNames {
				return parseErrorf(tok.Line, "A saveframe terminator names a different saveframe: found 'save_%s' closing saveframe '%s'.", tok.Text[5:], frame.Name)
			}
			if frame.TagPrefix == "" {
				return parseErrorf(tok.Line, "The tag prefix was never set! Either the saveframe had no tags, you tried to read a version 2.1 file, or there is something else wrong with your file. Saveframe error occurred within: '%s'", frame.Name)
			}
			return nil

		case !strings.HasPrefix(tok.Text, "_"):
			return parseErrorf(tok.Line, "Invalid token found in saveframe '%s'. Expecting a tag, loop, or 'save_' token but found: '%s'", frame.Name, tok.Text)

		default:
			if tok.Delineator != DelineatorNone {
				return parseErrorf(tok.Line, "Saveframe tags may not be quoted or semicolon-delimited. Quoted tag: '%s'.", tok.Text)
			}
			name := tok.Text

			value, err := p.next()
			if err != nil {
				return err
			}
			if value == nil {
				return &ParseError{Message: "Saveframe improperly terminated at end of file. Saveframes must be terminated with the 'save_' token."}
			}
			if value.Delineator == DelineatorNone {
				if isReservedKeyword(value.Text) {
					return parseErrorf(value.Line, "Cannot use keywords as data values unless quoted or semi-colon delimited. Illegal value: '%s'", value.Text)
				}
				if strings.HasPrefix(value.Text, "_") {
					return parseErrorf(value.Line, "Cannot have a tag value start with an underscore unless the entire value is quoted. You may be missing a data value on the previous line. Illegal value: '%s'", value.Text)
				}
			}
			if err := frame.addTag(name, value.Text, value.Line, false); err != nil {
				return wrapf(err, value.Line)
			}
		}
	}
}

// parseLoop consumes a loop body after its "loop_" keyword: first the
// tags, then the data through "stop_". The loop attaches to frame as
// soon as its data begins.
func (p *parser) parseLoop(frame *Saveframe) (*Loop, error) {
	loop := NewLoop("")

	var tok *Token
	var err error
	for {
		tok, err = p.next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, &ParseError{Message: "Loop improperly terminated at end of file. Loops must end with the 'stop_' token, but the file ended without the stop token."}
		}
		if !strings.HasPrefix(tok.Text, "_") || tok.Delineator != DelineatorNone {
			break
		}
		if err := loop.AddTag(tok.Text); err != nil {
			return nil, wrapf(err, tok.Line)
		}
	}

	if err := frame.AddLoop(loop); err != nil {
		return nil, wrapf(err, tok.Line)
	}

	var data []string
	seenData := false
	for {
		lower := strings.ToLower(tok.Text)
		if lower == "stop_" {
			if tok.Delineator != DelineatorNone {
				return nil, parseErrorf(tok.Line, "The stop_ keyword may not be quoted or semicolon-delimited.")
			}
			if len(loop.Tags) == 0 && p.opts.RaiseParseWarnings {
				return nil, parseErrorf(tok.Line, "Loop with no tags.")
			}
			if !seenData && p.opts.RaiseParseWarnings {
				return nil, parseErrorf(tok.Line, "Loop with no data.")
			}
			if len(data) > 0 {
				if len(data)%len(loop.Tags) != 0 {
					return nil, parseErrorf(tok.Line, "The loop being parsed, '%s' does not have the expected number of data elements. This indicates that either one or more tag values are either missing from or duplicated in this loop.", loop.Category)
				}
				if err := loop.AddData(data); err != nil {
					return nil, wrapf(err, tok.Line)
				}
			}
			return loop, nil
		}

		if strings.HasPrefix(tok.Text, "_") && tok.Delineator == DelineatorNone {
			return nil, parseErrorf(tok.Line, "Cannot have more loop tags after loop data. Or perhaps this was a data value which was not quoted (but must be, if it starts with '_')? Value: '%s'.", tok.Text)
		}
		if len(loop.Tags) == 0 {
			return nil, parseErrorf(tok.Line, "Data value found in loop before any loop tags were defined. Value: '%s'", tok.Text)
		}
		if tok.Delineator == DelineatorNone && isReservedKeyword(tok.Text) {
			msg := fmt.Sprintf("Cannot use keywords as data values unless quoted or semi-colon delimited. Perhaps this is a loop that wasn't properly terminated with a 'stop_' keyword before the saveframe ended or another loop began? Value found where 'stop_' or another data value expected: '%s'.", tok.Text)
			if len(data) > 0 {
				msg += fmt.Sprintf(" Last loop data element parsed: '%s'.", data[len(data)-1])
			}
			return nil, &ParseError{Message: msg, Line: tok.Line}
		}
		data = append(data, tok.Text)
		seenData = true

		tok, err = p.next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, &ParseError{Message: "Loop improperly terminated at end of file. Loops must end with the 'stop_' token, but the file ended without the stop token."}
		}
	}
}
