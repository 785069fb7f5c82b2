package star

import (
	"regexp"
	"strings"
)

// isSpace reports whether c separates tokens. NMR-STAR recognizes
// space, newline, tab, and vertical tab.
func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\v'
}

// looseSemicolonLine rewrites a multiline opener that carries text on
// the semicolon line, a form some legacy writers emit, onto its own
// line so the scanner sees a canonical ";\n" opener.
var looseSemicolonLine = regexp.MustCompile("\n;([^\n]+?)\n")

// Lexer splits NMR-STAR source text into tokens. It operates on a
// normalized copy of the input: line endings are converted to "\n",
// loose semicolon openers are rewritten, and a trailing newline is
// guaranteed. Line numbers refer to the normalized text.
type Lexer struct {
	src  string
	pos  int
	line int

	// EmitComments causes comment tokens to be returned rather than
	// skipped. The parser leaves this off; tooling that preserves
	// comments turns it on.
	EmitComments bool

	peeked *Token
}

// NewLexer returns a Lexer over src.
func NewLexer(src string) *Lexer {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	src = looseSemicolonLine.ReplaceAllString(src, "\n;\n$1\n")
	if !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	return &Lexer{src: src, line: 1}
}

// Next returns the next token, or (nil, nil) once the input is
// exhausted.
func (l *Lexer) Next() (*Token, error) {
	if l.peeked != nil {
		tok := l.peeked
		l.peeked = nil
		return tok, nil
	}
	return l.scan()
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (*Token, error) {
	if l.peeked == nil {
		tok, err := l.scan()
		if err != nil {
			return nil, err
		}
		l.peeked = tok
	}
	return l.peeked, nil
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

// advanceTo moves the cursor to n, keeping the line count current.
func (l *Lexer) advanceTo(n int) {
	l.line += strings.Count(l.src[l.pos:n], "\n")
	l.pos = n
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

func (l *Lexer) scan() (*Token, error) {
	for {
		l.skipSpace()
		if l.atEnd() {
			return nil, nil
		}
		if l.src[l.pos] != '#' {
			break
		}
		tok := l.scanComment()
		if tok != nil {
			return tok, nil
		}
	}

	switch c := l.src[l.pos]; {
	case c == ';' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '\n':
		return l.scanMultiline()
	case c == '\'' || c == '"':
		return l.scanQuoted(c)
	default:
		return l.scanBare(), nil
	}
}

// scanComment consumes a comment through the end of its line,
// returning it as a token only when EmitComments is set.
func (l *Lexer) scanComment() *Token {
	start, startLine := l.pos, l.line
	rel := strings.IndexByte(l.src[l.pos:], '\n')
	if rel < 0 {
		l.advanceTo(len(l.src))
	} else {
		l.advanceTo(l.pos + rel)
	}
	if !l.EmitComments {
		return nil
	}
	return &Token{Text: l.src[start:l.pos], Line: startLine, Delineator: DelineatorComment}
}

// scanMultiline consumes a semicolon delimited value. The token text
// runs from just past the opening ";\n" through the newline before the
// closing semicolon, inclusive.
func (l *Lexer) scanMultiline() (*Token, error) {
	startLine := l.line
	body := l.pos + 2
	rel := strings.Index(l.src[body:], "\n;")
	if rel < 0 {
		return nil, parseErrorf(startLine, "Invalid file. Semicolon-delineated value was not terminated.")
	}
	text := l.src[body : body+rel+1]
	l.advanceTo(body + rel + 2)
	return &Token{Text: unindentValue(text), Line: startLine, Delineator: DelineatorSemicolon}, nil
}

// unindentValue reverses the indentation applied when a value that
// itself contains "\n;" was written out. Every line of such a value
// was shifted right by three spaces; strip them back off when the
// whole body is uniformly shifted.
func unindentValue(text string) string {
	if !strings.HasPrefix(text, "\n   ") || !strings.Contains(text, "\n   ;") {
		return text
	}
	for pos := 1; pos < len(text)-4; pos++ {
		if text[pos] == '\n' && text[pos+1:pos+4] != "   " {
			return text
		}
	}
	return strings.ReplaceAll(text[:len(text)-1], "\n   ", "\n")
}

// scanQuoted consumes a value wrapped in single or double quotes. A
// quote character only closes the value when followed by whitespace or
// the end of input; quotes embedded mid-word belong to the value.
func (l *Lexer) scanQuoted(quote byte) (*Token, error) {
	startLine := l.line
	kind := "Single"
	delin := DelineatorSingle
	if quote == '"' {
		kind = "Double"
		delin = DelineatorDouble
	}

	body := l.pos + 1
	rel := strings.IndexByte(l.src[body:], quote)
	if rel < 0 {
		return nil, parseErrorf(startLine, "Invalid file. %s quoted value was not terminated.", kind)
	}
	for body+rel+1 < len(l.src) && !isSpace(l.src[body+rel+1]) {
		next := strings.IndexByte(l.src[body+rel+1:], quote)
		if next < 0 {
			return nil, parseErrorf(startLine, "Invalid file. %s quoted value was never terminated at end of file.", kind)
		}
		rel += next + 1
	}
	text := l.src[body : body+rel]
	if strings.Contains(text, "\n") {
		return nil, parseErrorf(startLine, "Invalid file. %s quoted value was not terminated on the same line it began.", kind)
	}
	l.advanceTo(body + rel + 1)
	return &Token{Text: text, Line: startLine, Delineator: delin}, nil
}

// scanBare consumes an unquoted token running to the next whitespace.
func (l *Lexer) scanBare() *Token {
	startLine := l.line
	end := l.pos
	for end < len(l.src) && !isSpace(l.src[end]) {
		end++
	}
	text := l.src[l.pos:end]
	l.advanceTo(end)

	delin := DelineatorNone
	if len(text) > 1 && text[0] == '$' {
		delin = DelineatorFrameRef
	}
	return &Token{Text: text, Line: startLine, Delineator: delin}
}
