package star

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
)

// Tag is a free tag inside a saveframe: a name without the category
// prefix and its value. Line records where the value appeared when the
// tag came from parsed text, 0 otherwise.
type Tag struct {
	Name  string
	Value string
	Line  int
}

// Saveframe is one save block of an entry: a name, a tag prefix naming
// the category of its free tags, the free tags themselves, and any
// number of loops.
type Saveframe struct {
	Name      string
	TagPrefix string
	Tags      []Tag
	Loops     []*Loop
}

// NewSaveframe returns an empty saveframe with the given name.
func NewSaveframe(name string) *Saveframe {
	return &Saveframe{Name: name}
}

// SetName renames the saveframe, keeping an Sf_framecode tag in sync
// when one is present.
func (sf *Saveframe) SetName(name string) error {
	if strings.ContainsAny(name, " \t\n\v") {
		return invalidStatef("Saveframe names cannot contain whitespace characters.")
	}
	sf.Name = name
	if idx := sf.tagIndex("sf_framecode"); idx >= 0 {
		sf.Tags[idx].Value = name
	}
	return nil
}

// SetTagPrefix sets the category of the saveframe's free tags,
// normalizing the leading underscore.
func (sf *Saveframe) SetTagPrefix(prefix string) {
	sf.TagPrefix = FormatCategory(prefix)
}

// Category returns the value of the saveframe's Sf_category tag, or ""
// when the saveframe does not have one.
func (sf *Saveframe) Category() string {
	for _, t := range sf.Tags {
		lower := strings.ToLower(t.Name)
		if lower == "sf_category" || lower == "_saveframe_category" {
			return t.Value
		}
	}
	return ""
}

// tagIndex returns the position of the named tag, ignoring case, or -1.
func (sf *Saveframe) tagIndex(name string) int {
	name = strings.ToLower(FormatTag(name))
	for i, t := range sf.Tags {
		if strings.ToLower(t.Name) == name {
			return i
		}
	}
	return -1
}

// AddTag appends a free tag. The name may be fully qualified; its
// category must then agree with the tag prefix, and sets it when the
// saveframe does not have one yet. Adding a name that already exists
// is an error; use SetTag to overwrite.
func (sf *Saveframe) AddTag(name, value string) error {
	return sf.addTag(name, value, 0, false)
}

// SetTag sets a free tag, overwriting the value if the name already
// exists and appending otherwise.
func (sf *Saveframe) SetTag(name, value string) error {
	return sf.addTag(name, value, 0, true)
}

func (sf *Saveframe) addTag(name, value string, line int, update bool) error {
	if i := strings.IndexByte(name, '.'); i == 0 {
		name = name[1:]
	} else if i > 0 {
		prefix := FormatCategory(name)
		if sf.TagPrefix == "" {
			sf.TagPrefix = prefix
		} else if sf.TagPrefix != prefix {
			return invalidStatef("One saveframe cannot have tags with different categories (or tags that don't match the set category)! '%s' vs '%s'.", sf.TagPrefix, prefix)
		}
		name = name[i+1:]
	}

	if idx := sf.tagIndex(name); idx >= 0 {
		if !update {
			return invalidStatef("There is already a tag with the name '%s'.", name)
		}
		sf.Tags[idx].Value = value
		return nil
	}

	if strings.Contains(name, ".") {
		return invalidStatef("There cannot be more than one '.' in a tag name.")
	}
	if strings.ContainsAny(name, " \t\n\v") {
		return invalidStatef("Tag names cannot contain whitespace characters.")
	}

	sf.Tags = append(sf.Tags, Tag{Name: name, Value: value, Line: line})
	return nil
}

// AddTags appends several free tags. Each pair is [name, value]; a
// single element pair gets the value ".".
func (sf *Saveframe) AddTags(pairs [][]string) error {
	for _, pair := range pairs {
		switch len(pair) {
		case 2:
			if err := sf.AddTag(pair[0], pair[1]); err != nil {
				return err
			}
		case 1:
			if err := sf.AddTag(pair[0], "."); err != nil {
				return err
			}
		default:
			return invalidStatef("You provided an invalid tag/value to add: '%v'.", pair)
		}
	}
	return nil
}

// GetTag returns the value of the named tag, or "" when the saveframe
// does not have it. A fully qualified name only matches when its
// category agrees with the tag prefix.
func (sf *Saveframe) GetTag(name string) string {
	if strings.Contains(name, ".") && !strings.HasPrefix(name, ".") {
		if !strings.EqualFold(FormatCategory(name), sf.TagPrefix) {
			return ""
		}
	}
	if idx := sf.tagIndex(name); idx >= 0 {
		return sf.Tags[idx].Value
	}
	return ""
}

// DeleteTag removes the named tag.
func (sf *Saveframe) DeleteTag(name string) error {
	idx := sf.tagIndex(name)
	if idx < 0 {
		return invalidStatef("There is no tag with name '%s' to remove.", FormatTag(name))
	}
	sf.Tags = append(sf.Tags[:idx], sf.Tags[idx+1:]...)
	return nil
}

// AddLoop attaches a loop. Two loops in one saveframe can never share
// a category.
func (sf *Saveframe) AddLoop(loop *Loop) error {
	for _, existing := range sf.Loops {
		if strings.EqualFold(existing.Category, loop.Category) {
			if loop.Category == "" {
				return invalidStatef("You cannot have two loops with the same category in one saveframe. You are getting this error because you haven't yet set your loop categories.")
			}
			return invalidStatef("You cannot have two loops with the same category in one saveframe. Category: '%s'.", loop.Category)
		}
	}
	sf.Loops = append(sf.Loops, loop)
	return nil
}

// LoopByCategory returns the loop with the given category, ignoring
// case and the leading underscore, or nil when there is none.
func (sf *Saveframe) LoopByCategory(category string) *Loop {
	category = FormatCategory(category)
	for _, loop := range sf.Loops {
		if strings.EqualFold(loop.Category, category) {
			return loop
		}
	}
	return nil
}

// RemoveLoop detaches the loop with the given category.
func (sf *Saveframe) RemoveLoop(category string) error {
	category = FormatCategory(category)
	for i, loop := range sf.Loops {
		if strings.EqualFold(loop.Category, category) {
			sf.Loops = append(sf.Loops[:i], sf.Loops[i+1:]...)
			return nil
		}
	}
	return invalidStatef("There is no loop with category '%s' to remove.", category)
}

// Empty reports whether every tag value and every loop value is null.
func (sf *Saveframe) Empty() bool {
	for _, t := range sf.Tags {
		if !IsNullValue(t.Value) {
			return false
		}
	}
	for _, loop := range sf.Loops {
		if !loop.Empty() {
			return false
		}
	}
	return true
}

// SortTags reorders the free tags to match their order in the schema.
// Unknown tags keep their relative order at the end.
func (sf *Saveframe) SortTags(sch *Schema) error {
	if sch == nil {
		return invalidStatef("A schema is required to sort tags.")
	}
	keys := make([]int, len(sf.Tags))
	for i, t := range sf.Tags {
		keys[i] = sch.TagKey(sf.TagPrefix + "." + t.Name)
	}
	indexes := make([]int, len(sf.Tags))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(i, j int) bool { return keys[indexes[i]] < keys[indexes[j]] })

	tags := make([]Tag, len(sf.Tags))
	for i, idx := range indexes {
		tags[i] = sf.Tags[idx]
	}
	sf.Tags = tags
	return nil
}

// AddMissingTags adds a null valued tag for every tag the schema
// defines in this saveframe's category that is not already present,
// then sorts the tags into schema order.
func (sf *Saveframe) AddMissingTags(sch *Schema) error {
	if sch == nil {
		return invalidStatef("A schema is required to add missing tags.")
	}
	if sf.TagPrefix == "" {
		return invalidStatef("The tag prefix was never set!")
	}
	for _, name := range sch.TagsInCategory(sf.TagPrefix) {
		if sf.tagIndex(name) >= 0 {
			continue
		}
		if err := sf.AddTag(name, "."); err != nil {
			return err
		}
	}
	return sf.SortTags(sch)
}

// Compare returns the differences between two saveframes as a list of
// descriptions, empty when they match. A name or tag prefix mismatch
// short-circuits the rest of the comparison.
func (sf *Saveframe) Compare(other *Saveframe) []string {
	if sf == other {
		return nil
	}
	if s1, err1 := sf.Format(FormatOptions{}); err1 == nil {
		if s2, err2 := other.Format(FormatOptions{}); err2 == nil && s1 == s2 {
			return nil
		}
	}

	var diffs []string
	if sf.Name != other.Name {
		diffs = append(diffs, fmt.Sprintf("\tSaveframe names do not match: '%s' vs '%s'.", sf.Name, other.Name))
		return diffs
	}
	if sf.TagPrefix != other.TagPrefix {
		diffs = append(diffs, fmt.Sprintf("\tTag prefix does not match: '%s' vs '%s'.", sf.TagPrefix, other.TagPrefix))
		return diffs
	}
	if len(sf.Tags) < len(other.Tags) {
		diffs = append(diffs, fmt.Sprintf("\tNumber of tags does not match: '%d' vs '%d'. The compared entry has at least one tag this entry does not.", len(sf.Tags), len(other.Tags)))
	}
	for _, t := range sf.Tags {
		if other.tagIndex(t.Name) < 0 {
			diffs = append(diffs, fmt.Sprintf("\tNo tag with name '%s.%s' in compared entry.", sf.TagPrefix, t.Name))
			continue
		}
		otherValue := other.Tags[other.tagIndex(t.Name)].Value
		if t.Value != otherValue {
			diffs = append(diffs, fmt.Sprintf("\tMismatched tag values for tag '%s.%s': '%s' vs '%s'.",
				sf.TagPrefix, t.Name,
				strings.ReplaceAll(t.Value, "\n", "\\n"),
				strings.ReplaceAll(otherValue, "\n", "\\n")))
		}
	}
	if len(sf.Loops) != len(other.Loops) {
		diffs = append(diffs, fmt.Sprintf("\tNumber of children loops does not match: '%d' vs '%d'.", len(sf.Loops), len(other.Loops)))
	}
	for _, loop := range sf.Loops {
		otherLoop := other.LoopByCategory(loop.Category)
		if otherLoop == nil {
			diffs = append(diffs, fmt.Sprintf("\tNo loop with category '%s' in other entry.", loop.Category))
			continue
		}
		if comp := loop.Compare(otherLoop); len(comp) > 0 {
			diffs = append(diffs, fmt.Sprintf("\tLoops do not match: '%s'.", loop.Category))
			diffs = append(diffs, comp...)
		}
	}
	return diffs
}

// Format renders the saveframe in STAR format.
func (sf *Saveframe) Format(opts FormatOptions) (string, error) {
	if sf.TagPrefix == "" {
		return "", invalidStatef("The tag prefix was never set!")
	}
	if len(sf.Tags) == 0 && len(sf.Loops) == 0 {
		return fmt.Sprintf("\nsave_%s\n\nsave_\n", sf.Name), nil
	}

	tags := sf.Tags
	if opts.SkipEmptyTags {
		kept := make([]Tag, 0, len(tags))
		for _, t := range tags {
			if !IsNullValue(t.Value) {
				kept = append(kept, t)
			}
		}
		tags = kept
	}

	width := 0
	for _, t := range tags {
		if n := len(sf.TagPrefix) + 1 + len(t.Name); n > width {
			width = n
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "save_%s\n", sf.Name)
	for _, t := range tags {
		quoted, err := QuoteValue(t.Value)
		if err != nil {
			return "", err
		}
		full := sf.TagPrefix + "." + t.Name
		if strings.Contains(quoted, "\n") {
			fmt.Fprintf(&sb, "   %-*s\n;\n%s;\n", width, full, quoted)
		} else {
			fmt.Fprintf(&sb, "   %-*s  %s\n", width, full, quoted)
		}
	}
	for _, loop := range sf.Loops {
		s, err := loop.Format(opts)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteString("\nsave_\n")
	return sb.String(), nil
}

// String renders the saveframe in STAR format. Saveframes that cannot
// be serialized come back as a bracketed error note; use Format for
// the underlying error.
func (sf *Saveframe) String() string {
	s, err := sf.Format(FormatOptions{})
	if err != nil {
		return "<invalid saveframe: " + err.Error() + ">"
	}
	return s
}

// TagsAsCSV returns the free tags as two CSV records: the qualified
// tag names and their values.
func (sf *Saveframe) TagsAsCSV() string {
	names := make([]string, len(sf.Tags))
	values := make([]string, len(sf.Tags))
	for i, t := range sf.Tags {
		names[i] = sf.TagPrefix + "." + t.Name
		values[i] = t.Value
	}
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	if cw.Write(names) != nil || cw.Write(values) != nil {
		return ""
	}
	cw.Flush()
	return sb.String()
}
