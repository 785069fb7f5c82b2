package star

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Loop is a rectangular table of values inside a saveframe. Category
// names the table ("_Atom_chem_shift"), Tags name the columns without
// the category prefix, and Data holds the rows. Every row must have
// exactly one value per tag by the time the loop is serialized or
// validated.
type Loop struct {
	Category string
	Tags     []string
	Data     [][]string
}

// NewLoop returns an empty loop. The category may be given with or
// without the leading underscore, or left empty to be picked up from
// the first fully qualified tag added.
func NewLoop(category string) *Loop {
	l := &Loop{}
	if category != "" {
		l.SetCategory(category)
	}
	return l
}

// SetCategory sets the loop category, normalizing the leading
// underscore.
func (l *Loop) SetCategory(category string) {
	l.Category = FormatCategory(category)
}

// TagIndex returns the position of the named tag, ignoring case and
// any category prefix, or -1 when the tag is not present.
func (l *Loop) TagIndex(tag string) int {
	name := strings.ToLower(FormatTag(tag))
	for i, t := range l.Tags {
		if strings.ToLower(t) == name {
			return i
		}
	}
	return -1
}

// FullTags returns the tag names qualified with the loop category.
func (l *Loop) FullTags() []string {
	tags := make([]string, len(l.Tags))
	for i, t := range l.Tags {
		if l.Category == "" {
			tags[i] = t
		} else {
			tags[i] = l.Category + "." + t
		}
	}
	return tags
}

// AddTag appends a column. The name may be fully qualified; its
// category must then agree with the loop category, and sets it when
// the loop does not have one yet.
func (l *Loop) AddTag(name string) error {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '.'); i == 0 {
		name = name[1:]
	} else if i > 0 {
		category := name[:i]
		if !strings.HasPrefix(category, "_") {
			category = "_" + category
		}
		if l.Category == "" {
			l.Category = category
		} else if !strings.EqualFold(l.Category, category) {
			return invalidStatef("One loop cannot have tags with different categories (or tags that don't match the loop category)! The loop category is '%s' while the category in the tag was '%s'.", l.Category, category)
		}
		name = name[i+1:]
	}

	if l.TagIndex(name) >= 0 {
		return invalidStatef("There is already a tag with the name '%s' in the loop '%s'.", name, l.Category)
	}
	if IsNullValue(name) {
		return invalidStatef("Cannot use a null-equivalent value as a tag name. Invalid tag name: '%s'.", name)
	}
	if strings.Contains(name, ".") {
		return invalidStatef("There cannot be more than one '.' in a tag name. Invalid tag name: '%s'.", name)
	}
	if strings.ContainsAny(name, " \t\n\v") {
		return invalidStatef("Tag names cannot contain whitespace characters. Invalid tag name: '%s'.", name)
	}

	l.Tags = append(l.Tags, name)
	return nil
}

// AddTags appends several columns at once.
func (l *Loop) AddTags(names ...string) error {
	for _, name := range names {
		if err := l.AddTag(name); err != nil {
			return err
		}
	}
	return nil
}

// AddRow appends a single row of values.
func (l *Loop) AddRow(row []string) error {
	if len(row) != len(l.Tags) {
		return invalidStatef("The list must have the same number of elements as the number of tags when adding a single row of values! Insert tag names first by calling Loop.AddTag().")
	}
	l.Data = append(l.Data, row)
	return nil
}

// AddData appends values row-free: the flat list is broken into rows
// of one value per tag. The length must be an exact multiple of the
// number of tags.
func (l *Loop) AddData(values []string) error {
	if len(l.Tags) == 0 {
		return invalidStatef("Cannot add data to a loop with no tags. Add tags with Loop.AddTag() first.")
	}
	if len(values)%len(l.Tags) != 0 {
		return invalidStatef("The number of data elements in the list you provided is not an even multiple of the number of tags which are set in the loop. Please either add missing tags using Loop.AddTag() or modify the list of tag values you are adding to be an even multiple of the number of tags. Error in loop '%s'.", l.Category)
	}
	for start := 0; start < len(values); start += len(l.Tags) {
		l.Data = append(l.Data, values[start:start+len(l.Tags)])
	}
	return nil
}

// AddDataByTag appends one value to the named column, starting a new
// row whenever the previous one is full. Values must arrive in tag
// order.
func (l *Loop) AddDataByTag(tag, value string) error {
	if strings.Contains(tag, ".") {
		category := FormatCategory(tag)
		if !strings.EqualFold(category, l.Category) {
			return invalidStatef("Category provided in your tag '%s' does not match this loop's category '%s'.", category, l.Category)
		}
	}
	pos := l.TagIndex(tag)
	if pos < 0 {
		return invalidStatef("The tag '%s' to which you are attempting to add data does not yet exist. Create the tags using Loop.AddTag() before adding data.", tag)
	}
	if len(l.Data) == 0 || len(l.Data[len(l.Data)-1]) == len(l.Tags) {
		l.Data = append(l.Data, nil)
	}
	last := len(l.Data) - 1
	if len(l.Data[last]) != pos {
		return invalidStatef("You cannot add data out of tag order.")
	}
	l.Data[last] = append(l.Data[last], value)
	return nil
}

// GetTag returns the values of the named column, or nil when the tag
// is not present in the loop.
func (l *Loop) GetTag(tag string) []string {
	pos := l.TagIndex(tag)
	if pos < 0 {
		return nil
	}
	values := make([]string, 0, len(l.Data))
	for _, row := range l.Data {
		values = append(values, row[pos])
	}
	return values
}

// GetTags returns the named columns row by row, in the requested
// order.
func (l *Loop) GetTags(tags ...string) ([][]string, error) {
	positions := make([]int, len(tags))
	for i, tag := range tags {
		pos := l.TagIndex(tag)
		if pos < 0 {
			return nil, invalidStatef("The tag '%s' isn't present in this loop.", tag)
		}
		positions[i] = pos
	}
	rows := make([][]string, 0, len(l.Data))
	for _, row := range l.Data {
		selected := make([]string, len(positions))
		for i, pos := range positions {
			selected[i] = row[pos]
		}
		rows = append(rows, selected)
	}
	return rows, nil
}

// RemoveTag deletes a column and its values.
func (l *Loop) RemoveTag(tag string) error {
	pos := l.TagIndex(tag)
	if pos < 0 {
		return invalidStatef("The tag '%s' isn't present in this loop.", tag)
	}
	l.Tags = append(l.Tags[:pos], l.Tags[pos+1:]...)
	for i, row := range l.Data {
		if pos < len(row) {
			l.Data[i] = append(row[:pos], row[pos+1:]...)
		}
	}
	return nil
}

// RemoveDataByTagValue deletes every row whose value in the named
// column equals value, returning the deleted rows.
func (l *Loop) RemoveDataByTagValue(tag, value string) ([][]string, error) {
	pos := l.TagIndex(tag)
	if pos < 0 {
		return nil, invalidStatef("The tag '%s' isn't present in this loop.", tag)
	}
	var kept, deleted [][]string
	for _, row := range l.Data {
		if row[pos] == value {
			deleted = append(deleted, row)
		} else {
			kept = append(kept, row)
		}
	}
	l.Data = kept
	return deleted, nil
}

// Filter returns a new loop holding only the named columns, in the
// requested order. The category carries over.
func (l *Loop) Filter(tags ...string) (*Loop, error) {
	result := NewLoop(l.Category)
	positions := make([]int, len(tags))
	for i, tag := range tags {
		pos := l.TagIndex(tag)
		if pos < 0 {
			return nil, invalidStatef("Cannot filter tag '%s' as it isn't present in this loop.", tag)
		}
		positions[i] = pos
		if err := result.AddTag(l.Tags[pos]); err != nil {
			return nil, err
		}
	}
	for _, row := range l.Data {
		selected := make([]string, len(positions))
		for i, pos := range positions {
			selected[i] = row[pos]
		}
		result.Data = append(result.Data, selected)
	}
	return result, nil
}

// RenumberRows rewrites the named column with sequential integers
// beginning at start.
func (l *Loop) RenumberRows(tag string, start int) error {
	pos := l.TagIndex(tag)
	if pos < 0 {
		return invalidStatef("Cannot renumber rows by tag '%s' as it isn't present in this loop.", tag)
	}
	for i := range l.Data {
		l.Data[i][pos] = strconv.Itoa(start + i)
	}
	return nil
}

// SortRows sorts the data rows by the named columns. Values that both
// parse as numbers compare numerically, everything else as strings.
// The sort is stable.
func (l *Loop) SortRows(tags ...string) error {
	positions := make([]int, len(tags))
	for i, tag := range tags {
		pos := l.TagIndex(tag)
		if pos < 0 {
			return invalidStatef("Cannot sort by tag '%s' as it isn't present in this loop.", tag)
		}
		positions[i] = pos
	}
	sort.SliceStable(l.Data, func(i, j int) bool {
		for _, pos := range positions {
			a, b := l.Data[i][pos], l.Data[j][pos]
			if a == b {
				continue
			}
			return lessValue(a, b)
		}
		return false
	})
	return nil
}

// lessValue orders two cell values, numerically when both parse.
func lessValue(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

// SortTags reorders the columns to match their order in the schema.
// Tags the schema does not know keep their relative order at the end.
func (l *Loop) SortTags(sch *Schema) error {
	if sch == nil {
		return invalidStatef("A schema is required to sort tags.")
	}
	order := make([]int, len(l.Tags))
	for i, tag := range l.FullTags() {
		order[i] = sch.TagKey(tag)
	}
	indexes := make([]int, len(l.Tags))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		return order[indexes[i]] < order[indexes[j]]
	})

	tags := make([]string, len(l.Tags))
	for i, idx := range indexes {
		tags[i] = l.Tags[idx]
	}
	l.Tags = tags
	for r, row := range l.Data {
		sorted := make([]string, len(row))
		for i, idx := range indexes {
			if idx < len(row) {
				sorted[i] = row[idx]
			}
		}
		l.Data[r] = sorted
	}
	return nil
}

// AddMissingTags adds a null valued column for every deposition
// visible tag the schema defines in this loop's category that is not
// already present, sorts the columns into schema order and renumbers
// the Ordinal column when one exists.
func (l *Loop) AddMissingTags(sch *Schema) error {
	if sch == nil {
		return invalidStatef("A schema is required to add missing tags.")
	}
	if l.Category == "" {
		return invalidStatef("The category was never set for this loop. Add a tag with the category intact or call Loop.SetCategory() first.")
	}
	names := sch.TagsInCategory(l.Category)
	if len(names) == 0 {
		return invalidStatef("The tag prefix '%s' has no corresponding tags in the dictionary.", l.Category)
	}
	for _, name := range names {
		if l.TagIndex(name) >= 0 {
			continue
		}
		l.Tags = append(l.Tags, name)
		for i := range l.Data {
			l.Data[i] = append(l.Data[i], ".")
		}
	}
	if err := l.SortTags(sch); err != nil {
		return err
	}
	if l.TagIndex("Ordinal") >= 0 {
		return l.RenumberRows("Ordinal", 1)
	}
	return nil
}

// ClearData removes all data rows, leaving the tags in place.
func (l *Loop) ClearData() {
	l.Data = nil
}

// Empty reports whether every value in the loop is null.
func (l *Loop) Empty() bool {
	for _, row := range l.Data {
		for _, value := range row {
			if !IsNullValue(value) {
				return false
			}
		}
	}
	return true
}

// checkTagsMatchData verifies every row is as wide as the tag list.
func (l *Loop) checkTagsMatchData() error {
	for _, row := range l.Data {
		if len(row) != len(l.Tags) {
			return invalidStatef("The number of tags must match the width of the data. Loop: '%s'.", l.Category)
		}
	}
	return nil
}

// Compare returns the differences between two loops as a list of
// descriptions, empty when they match. Rows are compared without
// regard to order.
func (l *Loop) Compare(other *Loop) []string {
	if l == other {
		return nil
	}
	if s1, err1 := l.Format(FormatOptions{}); err1 == nil {
		if s2, err2 := other.Format(FormatOptions{}); err2 == nil && s1 == s2 {
			return nil
		}
	}

	var diffs []string
	if !strings.EqualFold(l.Category, other.Category) {
		diffs = append(diffs, fmt.Sprintf("\t\tCategory of loops does not match: '%s' vs '%s'.", l.Category, other.Category))
	}
	if !equalFoldSlices(l.Tags, other.Tags) {
		diffs = append(diffs, fmt.Sprintf("\t\tLoop tag names do not match for loop with category '%s'.", l.Category))
		return diffs
	}
	if !equalRows(l.Data, other.Data) {
		a, b := sortedRows(l.Data), sortedRows(other.Data)
		if !equalRows(a, b) {
			diffs = append(diffs, fmt.Sprintf("\t\tLoop data does not match for loop with category '%s'.", l.Category))
		}
	}
	return diffs
}

func equalFoldSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalRows(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// sortedRows returns a copy of rows in lexicographic order.
func sortedRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}

// Format renders the loop in STAR format.
func (l *Loop) Format(opts FormatOptions) (string, error) {
	if len(l.Data) == 0 {
		if opts.SkipEmptyLoops {
			return "", nil
		}
		if len(l.Tags) == 0 {
			return "\n   loop_\n\n   stop_\n", nil
		}
	}
	if len(l.Tags) == 0 {
		return "", invalidStatef("Impossible to print data if there are no associated tags. Loop: '%s'.", l.Category)
	}
	if err := l.checkTagsMatchData(); err != nil {
		return "", err
	}
	if l.Category == "" {
		return "", invalidStatef("The category was never set for this loop. Either add a tag with the category intact, specify it when generating the loop, or set it with SetCategory.")
	}

	target := l
	if opts.SkipEmptyTags {
		kept := make([]string, 0, len(l.Tags))
		for i, tag := range l.Tags {
			for _, row := range l.Data {
				if !IsNullValue(row[i]) {
					kept = append(kept, tag)
					break
				}
			}
		}
		if len(kept) == 0 {
			return "", nil
		}
		if len(kept) < len(l.Tags) {
			filtered, err := l.Filter(kept...)
			if err != nil {
				return "", err
			}
			target = filtered
		}
	}

	var sb strings.Builder
	sb.WriteString("\n   loop_\n")
	for _, tag := range target.FullTags() {
		fmt.Fprintf(&sb, "      %s\n", tag)
	}
	sb.WriteString("\n")

	if len(target.Data) > 0 {
		cleaned := make([][]string, len(target.Data))
		for i, row := range target.Data {
			cleaned[i] = make([]string, len(row))
			for j, value := range row {
				quoted, err := QuoteValue(value)
				if err != nil {
					return "", err
				}
				cleaned[i][j] = quoted
			}
		}

		widths := make([]int, len(target.Tags))
		for _, row := range cleaned {
			for j, value := range row {
				if len(value)+3 > widths[j] {
					widths[j] = len(value) + 3
				}
			}
		}

		for _, row := range cleaned {
			sb.WriteString("     ")
			for j, value := range row {
				if strings.Contains(value, "\n") {
					value = "\n;\n" + value + ";\n"
				}
				fmt.Fprintf(&sb, "%-*s", widths[j], value)
			}
			sb.WriteString(" \n")
		}
	}

	sb.WriteString("   stop_\n")
	return sb.String(), nil
}

// String renders the loop in STAR format. Loops that cannot be
// serialized come back as a bracketed error note; use Format for the
// underlying error.
func (l *Loop) String() string {
	s, err := l.Format(FormatOptions{})
	if err != nil {
		return "<invalid loop: " + err.Error() + ">"
	}
	return s
}

// WriteCSV writes the loop data as CSV. With header set, the first
// record holds the tag names, category qualified when showCategory is
// set.
func (l *Loop) WriteCSV(w io.Writer, header, showCategory bool) error {
	cw := csv.NewWriter(w)
	if header {
		if showCategory {
			if err := cw.Write(l.FullTags()); err != nil {
				return err
			}
		} else if err := cw.Write(l.Tags); err != nil {
			return err
		}
	}
	for _, row := range l.Data {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DataAsCSV returns the loop data as a CSV string with a category
// qualified header row.
func (l *Loop) DataAsCSV() string {
	var sb strings.Builder
	if err := l.WriteCSV(&sb, true, true); err != nil {
		return ""
	}
	return sb.String()
}

// ReadLoopCSV builds a loop from CSV data whose first record names the
// tags, optionally category qualified.
func ReadLoopCSV(r io.Reader) (*Loop, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading loop csv: %w", err)
	}
	if len(records) == 0 {
		return nil, invalidStatef("Cannot build a loop from empty CSV data.")
	}
	loop := NewLoop("")
	for _, tag := range records[0] {
		if err := loop.AddTag(tag); err != nil {
			return nil, err
		}
	}
	for _, row := range records[1:] {
		if err := loop.AddRow(row); err != nil {
			return nil, err
		}
	}
	return loop, nil
}
