package star

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// FormatOptions adjusts how a document tree is rendered. The zero
// value writes everything out.
type FormatOptions struct {
	// SkipEmptyLoops drops loops that hold no data rows.
	SkipEmptyLoops bool
	// SkipEmptyTags drops free tags whose value is null and loop
	// columns that hold only nulls.
	SkipEmptyTags bool
}

// Entry is the root of an NMR-STAR document: the data block ID and the
// saveframes in file order.
type Entry struct {
	ID         string
	Saveframes []*Saveframe
}

// NewEntry returns an empty entry with the given ID.
func NewEntry(id string) *Entry {
	return &Entry{ID: id}
}

// AddSaveframe appends a saveframe. Names must be unique within an
// entry.
func (e *Entry) AddSaveframe(sf *Saveframe) error {
	if e.SaveframeByName(sf.Name) != nil {
		return invalidStatef("Cannot add a saveframe with name '%s' since a saveframe with that name already exists in the entry.", sf.Name)
	}
	e.Saveframes = append(e.Saveframes, sf)
	return nil
}

// SaveframeByName returns the saveframe with the given name, or nil
// when there is none.
func (e *Entry) SaveframeByName(name string) *Saveframe {
	for _, sf := range e.Saveframes {
		if sf.Name == name {
			return sf
		}
	}
	return nil
}

// RemoveSaveframe detaches the saveframe with the given name.
func (e *Entry) RemoveSaveframe(name string) error {
	for i, sf := range e.Saveframes {
		if sf.Name == name {
			e.Saveframes = append(e.Saveframes[:i], e.Saveframes[i+1:]...)
			return nil
		}
	}
	return invalidStatef("No saveframe with name '%s' exists in the entry.", name)
}

// RenameSaveframe renames a saveframe and rewrites every $framecode
// reference to it, in free tags and loop values alike. Both names may
// be given with or without the leading '$'.
func (e *Entry) RenameSaveframe(originalName, newName string) error {
	originalName = strings.TrimPrefix(originalName, "$")
	newName = strings.TrimPrefix(newName, "$")

	if e.SaveframeByName(newName) != nil {
		return invalidStatef("Cannot rename the saveframe '%s' as '%s' because a saveframe with that name already exists in the entry.", originalName, newName)
	}
	frame := e.SaveframeByName(originalName)
	if frame == nil {
		return invalidStatef("No saveframe with name '%s' exists in the entry.", originalName)
	}
	if err := frame.SetName(newName); err != nil {
		return err
	}

	oldRef, newRef := "$"+originalName, "$"+newName
	for _, sf := range e.Saveframes {
		for i, t := range sf.Tags {
			if t.Value == oldRef {
				sf.Tags[i].Value = newRef
			}
		}
		for _, loop := range sf.Loops {
			for _, row := range loop.Data {
				for i, value := range row {
					if value == oldRef {
						row[i] = newRef
					}
				}
			}
		}
	}
	return nil
}

// SaveframesByCategory returns every saveframe whose Sf_category tag
// equals the given value.
func (e *Entry) SaveframesByCategory(category string) []*Saveframe {
	return e.SaveframesByTagValue("sf_category", category)
}

// SaveframesByTagValue returns every saveframe holding the named tag
// with exactly the given value.
func (e *Entry) SaveframesByTagValue(tag, value string) []*Saveframe {
	var frames []*Saveframe
	for _, sf := range e.Saveframes {
		if idx := sf.tagIndex(tag); idx >= 0 && sf.Tags[idx].Value == value {
			frames = append(frames, sf)
		}
	}
	return frames
}

// LoopsByCategory returns every loop in the entry with the given
// category, ignoring case and the leading underscore.
func (e *Entry) LoopsByCategory(category string) []*Loop {
	category = FormatCategory(category)
	var loops []*Loop
	for _, sf := range e.Saveframes {
		for _, loop := range sf.Loops {
			if strings.EqualFold(loop.Category, category) {
				loops = append(loops, loop)
			}
		}
	}
	return loops
}

// GetTag returns every value of a fully qualified tag across the whole
// entry, free tags and loop columns alike.
func (e *Entry) GetTag(tag string) ([]string, error) {
	if !strings.Contains(tag, ".") {
		return nil, invalidStatef("You must provide the tag category to call this method at the entry level.")
	}
	category := FormatCategory(tag)
	name := FormatTag(tag)

	var values []string
	for _, sf := range e.Saveframes {
		if strings.EqualFold(sf.TagPrefix, category) {
			if idx := sf.tagIndex(name); idx >= 0 {
				values = append(values, sf.Tags[idx].Value)
			}
		}
		for _, loop := range sf.Loops {
			if strings.EqualFold(loop.Category, category) {
				values = append(values, loop.GetTag(name)...)
			}
		}
	}
	return values, nil
}

// Categories returns the distinct saveframe categories in order of
// first appearance.
func (e *Entry) Categories() []string {
	var categories []string
	seen := map[string]bool{}
	for _, sf := range e.Saveframes {
		category := sf.Category()
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	return categories
}

// Empty reports whether every saveframe in the entry is empty.
func (e *Entry) Empty() bool {
	for _, sf := range e.Saveframes {
		if !sf.Empty() {
			return false
		}
	}
	return true
}

// RemoveEmptySaveframes detaches every saveframe whose values are all
// null.
func (e *Entry) RemoveEmptySaveframes() {
	kept := e.Saveframes[:0]
	for _, sf := range e.Saveframes {
		if !sf.Empty() {
			kept = append(kept, sf)
		}
	}
	e.Saveframes = kept
}

// Normalize sorts the saveframes into schema category order, with
// numeric ID tags breaking ties, and sorts the tags of every saveframe
// and loop into schema order.
func (e *Entry) Normalize(sch *Schema) error {
	if sch == nil {
		return invalidStatef("A schema is required to normalize an entry.")
	}

	type frameKey struct {
		category int
		id       int
	}
	keys := make(map[*Saveframe]frameKey, len(e.Saveframes))
	for _, sf := range e.Saveframes {
		key := frameKey{category: sch.CategoryKey(sf.TagPrefix), id: int(^uint(0) >> 1)}
		if id, err := strconv.Atoi(sf.GetTag("ID")); err == nil {
			key.id = id
		}
		keys[sf] = key
	}
	sort.SliceStable(e.Saveframes, func(i, j int) bool {
		a, b := keys[e.Saveframes[i]], keys[e.Saveframes[j]]
		if a.category != b.category {
			return a.category < b.category
		}
		return a.id < b.id
	})

	for _, sf := range e.Saveframes {
		if err := sf.SortTags(sch); err != nil {
			return err
		}
		for _, loop := range sf.Loops {
			if err := loop.SortTags(sch); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddMissingTags fills in the schema defined tags missing from every
// saveframe and loop whose category the schema knows. Saveframes and
// loops with categories outside the schema are left untouched.
func (e *Entry) AddMissingTags(sch *Schema) error {
	if sch == nil {
		return invalidStatef("A schema is required to add missing tags.")
	}
	for _, sf := range e.Saveframes {
		if sf.TagPrefix != "" && len(sch.TagsInCategory(sf.TagPrefix)) > 0 {
			if err := sf.AddMissingTags(sch); err != nil {
				return err
			}
		}
		for _, loop := range sf.Loops {
			if loop.Category == "" || len(sch.TagsInCategory(loop.Category)) == 0 {
				continue
			}
			if err := loop.AddMissingTags(sch); err != nil {
				return err
			}
		}
	}
	return nil
}

// Compare returns the differences between two entries as a list of
// descriptions, empty when they match. Which differences are found
// depends on the order of comparison: frames present only in other go
// unreported.
func (e *Entry) Compare(other *Entry) []string {
	if e == other {
		return nil
	}
	var diffs []string
	if e.ID != other.ID {
		diffs = append(diffs, fmt.Sprintf("Entry ID does not match between entries: '%s' vs '%s'.", e.ID, other.ID))
	}
	if len(e.Saveframes) != len(other.Saveframes) {
		diffs = append(diffs, fmt.Sprintf("The number of saveframes in the entries are not equal: '%d' vs '%d'.", len(e.Saveframes), len(other.Saveframes)))
	}
	for _, sf := range e.Saveframes {
		otherFrame := other.SaveframeByName(sf.Name)
		if otherFrame == nil {
			diffs = append(diffs, fmt.Sprintf("No saveframe with name '%s' in other entry.", sf.Name))
			continue
		}
		if comp := sf.Compare(otherFrame); len(comp) > 0 {
			diffs = append(diffs, fmt.Sprintf("Saveframes do not match: '%s'.", sf.Name))
			diffs = append(diffs, comp...)
		}
	}
	return diffs
}

// Equal reports whether two entries hold the same data, ignoring row
// order inside loops.
func (e *Entry) Equal(other *Entry) bool {
	return len(e.Compare(other)) == 0 && len(other.Compare(e)) == 0
}

// Identical reports whether two entries render to exactly the same
// text.
func (e *Entry) Identical(other *Entry) bool {
	s1, err1 := e.Format(FormatOptions{})
	s2, err2 := other.Format(FormatOptions{})
	return err1 == nil && err2 == nil && s1 == s2
}

// Format renders the entry in STAR format.
func (e *Entry) Format(opts FormatOptions) (string, error) {
	if e.ID == "" {
		return "", invalidStatef("Cannot serialize an entry with no ID. Set Entry.ID first.")
	}
	frames := make([]string, 0, len(e.Saveframes))
	for _, sf := range e.Saveframes {
		s, err := sf.Format(opts)
		if err != nil {
			return "", err
		}
		frames = append(frames, s)
	}
	return fmt.Sprintf("data_%s\n\n%s", e.ID, strings.Join(frames, "\n")), nil
}

// String renders the entry in STAR format. Entries that cannot be
// serialized come back as a bracketed error note; use Format for the
// underlying error.
func (e *Entry) String() string {
	s, err := e.Format(FormatOptions{})
	if err != nil {
		return "<invalid entry: " + err.Error() + ">"
	}
	return s
}

// Write renders the entry to w.
func (e *Entry) Write(w io.Writer) error {
	s, err := e.Format(FormatOptions{})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// WriteFile renders the entry to the named file, gzip compressed when
// the name ends in ".gz".
func (e *Entry) WriteFile(path string) error {
	s, err := e.Format(FormatOptions{})
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		if _, err := io.WriteString(zw, s); err != nil {
			zw.Close()
			f.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
	} else if _, err := io.WriteString(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
