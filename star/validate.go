package star

import (
	"fmt"
	"sort"
	"strings"
)

// Violation is one problem found while validating a document against
// the STAR grammar or a schema. Validation collects every problem in
// a single pass instead of stopping at the first, so violations are
// result values rather than errors.
type Violation struct {
	Tag      string // full tag name, when known
	Value    string // offending value, when applicable
	Location string // line reference or structural locator
	Message  string
}

func (v Violation) String() string { return v.Message }

// Validate checks the entry for structural problems: duplicate
// saveframe names and $framecode references that name no saveframe in
// the entry. When sch is not nil every tag value is also checked
// against the schema. An empty result means a clean entry.
func (e *Entry) Validate(sch *Schema) []Violation {
	var violations []Violation

	names := make([]string, 0, len(e.Saveframes))
	frames := make(map[string]bool, len(e.Saveframes))
	for _, sf := range e.Saveframes {
		names = append(names, sf.Name)
		frames[sf.Name] = true
	}
	sort.Strings(names)
	for i := 0; i+1 < len(names); i++ {
		if names[i] == names[i+1] {
			violations = append(violations, Violation{
				Message: fmt.Sprintf("Multiple saveframes with same name: '%s'", names[i]),
			})
		}
	}

	for _, sf := range e.Saveframes {
		for _, t := range sf.Tags {
			if strings.HasPrefix(t.Value, "$") && !frames[t.Value[1:]] {
				violations = append(violations, Violation{
					Tag:      sf.TagPrefix + "." + t.Name,
					Value:    t.Value,
					Location: lineLocation(t.Line),
					Message:  fmt.Sprintf("Dangling saveframe reference '%s' in tag '%s.%s'", t.Value, sf.TagPrefix, t.Name),
				})
			}
		}
		for _, loop := range sf.Loops {
			for _, row := range loop.Data {
				for pos, value := range row {
					if pos < len(loop.Tags) && strings.HasPrefix(value, "$") && !frames[value[1:]] {
						violations = append(violations, Violation{
							Tag:     loop.Category + "." + loop.Tags[pos],
							Value:   value,
							Message: fmt.Sprintf("Dangling saveframe reference '%s' in tag '%s.%s'", value, loop.Category, loop.Tags[pos]),
						})
					}
				}
			}
		}
	}

	for _, sf := range e.Saveframes {
		violations = append(violations, sf.Validate(sch)...)
	}
	return violations
}

// Validate checks the saveframe tags and loops. Schema checks require
// the saveframe category, which comes from the Sf_category tag, so a
// saveframe without one reports that first and skips category
// restrictions.
func (sf *Saveframe) Validate(sch *Schema) []Violation {
	var violations []Violation

	category := sf.Category()
	if category == "" {
		violations = append(violations, Violation{
			Message: fmt.Sprintf("Cannot properly validate saveframe: '%s'. No saveframe category defined.", sf.Name),
		})
	}
	if sch != nil {
		for _, t := range sf.Tags {
			violations = append(violations, sch.ValidateValue(sf.TagPrefix+"."+t.Name, t.Value, category, lineLocation(t.Line))...)
		}
	}
	for _, loop := range sf.Loops {
		violations = append(violations, loop.validate(sch, category)...)
	}
	return violations
}

// Validate checks that every row matches the tag width and, when sch
// is not nil, checks every value against the schema.
func (l *Loop) Validate(sch *Schema) []Violation {
	return l.validate(sch, "")
}

func (l *Loop) validate(sch *Schema, category string) []Violation {
	var violations []Violation

	if sch != nil {
		for _, row := range l.Data {
			for pos, value := range row {
				if pos >= len(l.Tags) {
					break
				}
				violations = append(violations, sch.ValidateValue(l.Category+"."+l.Tags[pos], value, category, "")...)
			}
		}
	}
	for rowNum, row := range l.Data {
		if len(row) != len(l.Tags) {
			violations = append(violations, Violation{
				Location: fmt.Sprintf("row %d", rowNum),
				Message:  fmt.Sprintf("Loop '%s' data width does not match its tag width on row '%d'.", l.Category, rowNum),
			})
		}
	}
	return violations
}

func lineLocation(line int) string {
	if line <= 0 {
		return ""
	}
	return fmt.Sprintf("%d of original file", line)
}
