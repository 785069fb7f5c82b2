package star

import "strings"

// IsNullValue reports whether value is a null marker. The markers "."
// (not applicable) and "?" (unknown) carry distinct meaning but are
// equally null; the empty string only occurs on unset values.
func IsNullValue(value string) bool {
	return value == "" || value == "." || value == "?"
}

// FormatCategory returns the category portion of a tag, underscore
// included: "Entry.ID", "_Entry.ID", and "_Entry" all give "_Entry".
func FormatCategory(tag string) string {
	if tag == "" {
		return tag
	}
	if i := strings.IndexByte(tag, '.'); i >= 0 {
		tag = tag[:i]
	}
	if !strings.HasPrefix(tag, "_") {
		tag = "_" + tag
	}
	return tag
}

// FormatTag returns the name portion of a tag, with any category
// prefix stripped: "_Entry.ID" gives "ID".
func FormatTag(tag string) string {
	if i := strings.IndexByte(tag, '.'); i >= 0 {
		tag = tag[i+1:]
	}
	return tag
}

// QuoteValue returns value in its write form: quoted just enough that
// parsing the result yields value back. Bare is preferred, then single
// quotes, then double quotes. Values that cannot sit on one line come
// back newline terminated for the writer to fence with semicolons.
// The empty string has no representation; use "." or "?" instead.
func QuoteValue(value string) (string, error) {
	if value == "" {
		return "", invalidStatef("Empty strings are not allowed as values. Use a '.' or a '?' if needed.")
	}

	// A line beginning with a semicolon would close the fence early.
	// Shift every line right by three spaces; the lexer strips the
	// shift back off on read.
	if strings.Contains(value, "\n;") {
		value = strings.ReplaceAll(value, "\n", "\n   ")
		if !strings.HasPrefix(value, "\n") {
			value = "\n   " + value
		}
		if !strings.HasSuffix(value, "\n") {
			value += "\n"
		}
		return value, nil
	}

	if strings.Contains(value, "\n") {
		if !strings.HasSuffix(value, "\n") {
			return value + "\n", nil
		}
		return value, nil
	}

	// With both quote characters present, a style still works as long
	// as none of its quotes is followed by whitespace.
	if strings.Contains(value, `"`) && strings.Contains(value, "'") {
		canSingle, canDouble := true, true
		for i := 0; i+1 < len(value); i++ {
			if !isSpace(value[i+1]) {
				continue
			}
			if value[i] == '\'' {
				canSingle = false
			}
			if value[i] == '"' {
				canDouble = false
			}
		}
		switch {
		case canSingle:
			return "'" + value + "'", nil
		case canDouble:
			return `"` + value + `"`, nil
		default:
			return value + "\n", nil
		}
	}

	if needsQuoting(value) {
		if strings.Contains(value, "'") {
			return `"` + value + `"`, nil
		}
		return "'" + value + "'", nil
	}
	return value, nil
}

// needsQuoting reports whether a single line value would be misread if
// written bare: it starts with a character that opens another
// construct, spells a reserved keyword, or contains whitespace.
func needsQuoting(value string) bool {
	switch value[0] {
	case '_', '"', '\'', '#':
		return true
	}
	return hasKeywordPrefix(value) || strings.ContainsAny(value, " \t\n\v")
}
