package star

import "fmt"

// ParseError describes a failure to interpret NMR-STAR source text.
// Line is the 1-based line of the offending construct in the
// normalized input, or 0 when no position applies.
type ParseError struct {
	Message string
	Line    int
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ParseError) Unwrap() error { return e.Cause }

// parseErrorf builds a ParseError at the given line.
func parseErrorf(line int, format string, args ...interface{}) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Line: line}
}

// InvalidStateError reports an operation on a document object whose
// current contents cannot support it, such as serializing a loop whose
// rows do not match its tags or writing an entry that has no ID.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// invalidStatef builds an InvalidStateError.
func invalidStatef(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}
