package star

import "strings"

// Delineator records the quoting style a token carried in the source
// text. The parser uses it to tell a structural keyword from a data
// value that merely spells one.
type Delineator byte

const (
	// DelineatorNone marks a bare, unquoted token.
	DelineatorNone Delineator = ' '
	// DelineatorSingle marks a token wrapped in single quotes.
	DelineatorSingle Delineator = '\''
	// DelineatorDouble marks a token wrapped in double quotes.
	DelineatorDouble Delineator = '"'
	// DelineatorSemicolon marks a semicolon delimited multiline value.
	DelineatorSemicolon Delineator = ';'
	// DelineatorComment marks a comment token. Comments are only
	// produced when Lexer.EmitComments is set.
	DelineatorComment Delineator = '#'
	// DelineatorFrameRef marks a bare token beginning with '$', a
	// reference to another saveframe by its framecode.
	DelineatorFrameRef Delineator = '$'
)

var delineatorNames = map[Delineator]string{
	DelineatorNone:      "none",
	DelineatorSingle:    "single-quote",
	DelineatorDouble:    "double-quote",
	DelineatorSemicolon: "semicolon",
	DelineatorComment:   "comment",
	DelineatorFrameRef:  "frame-reference",
}

func (d Delineator) String() string {
	if name, ok := delineatorNames[d]; ok {
		return name
	}
	return "unknown"
}

// Token is a single lexical unit of an NMR-STAR file. Text holds the
// token content with the enclosing quotes stripped; a semicolon
// delimited value keeps its trailing newline. Line is the 1-based line
// on which the token begins, counted in the normalized source.
type Token struct {
	Text       string
	Line       int
	Delineator Delineator
}

// Quoted reports whether the token was quoted or semicolon delimited.
// Only unquoted tokens can act as keywords or tag names.
func (t *Token) Quoted() bool {
	return t.Delineator == DelineatorSingle ||
		t.Delineator == DelineatorDouble ||
		t.Delineator == DelineatorSemicolon
}

// reservedKeywords are the five tokens with structural meaning. A bare
// token spelling one of these can never be a data value.
var reservedKeywords = []string{"data_", "save_", "loop_", "stop_", "global_"}

// isReservedKeyword reports whether s is exactly one of the reserved
// keywords.
func isReservedKeyword(s string) bool {
	for _, kw := range reservedKeywords {
		if s == kw {
			return true
		}
	}
	return false
}

// hasKeywordPrefix reports whether s begins with a reserved keyword,
// ignoring case. Values with such a prefix must be quoted when written.
func hasKeywordPrefix(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range reservedKeywords {
		if strings.HasPrefix(lower, kw) {
			return true
		}
	}
	return false
}
