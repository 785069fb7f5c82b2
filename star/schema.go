package star

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// SchemaTag describes one tag in a schema dictionary.
type SchemaTag struct {
	Tag        string // original capitalization, e.g. "_Entry.ID"
	DataType   string // "INTEGER", "FLOAT", "CHAR(12)", "VARCHAR(127)", "TEXT" or "DATETIME year to day"
	BMRBType   string // the dictionary's own type name, e.g. "int" or "line"
	Nullable   bool
	SFCategory string // category of the saveframe the tag belongs to
	LoopFlag   bool   // the tag lives in a loop rather than among the free tags
	Public     string // "I" marks internal tags that are hidden from depositions
}

// Schema is a parsed NMR-STAR dictionary. It answers, for a full tag
// name, the tag's type, nullability, parent saveframe category and
// position in the canonical ordering. Lookups are case insensitive
// but the dictionary's own capitalization is preserved and reported.
type Schema struct {
	Version string

	tags          map[string]*SchemaTag
	order         []string
	orderIndex    map[string]int
	categories    []string
	categoryIndex map[string]int
}

// Value patterns for the non-character column types. Character types
// accept any content and are checked only for length.
var typePatterns = map[string]*regexp.Regexp{
	"INTEGER":              regexp.MustCompile(`^-?[0-9]+$`),
	"FLOAT":                regexp.MustCompile(`^-?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`),
	"DATETIME year to day": regexp.MustCompile(`^[0-9]{4}-[0-9]{1,2}-[0-9]{1,2}$`),
}

// LoadSchema reads a schema from CSV dictionary text. The first
// record holds the column headers, descriptive preamble records are
// skipped until a record starting with TBL_BEGIN, and tag records
// follow until TBL_END. The TBL_BEGIN record carries the dictionary
// version in its fourth column.
func LoadSchema(r io.Reader) (*Schema, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("could not parse a schema from the provided source: %w", err)
	}
	col := func(name string) int {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
		return -1
	}
	tagCol, nullCol := col("Tag"), col("Nullable")
	if tagCol < 0 || nullCol < 0 {
		return nil, fmt.Errorf("could not parse a schema from the provided source: missing 'Tag' or 'Nullable' header column")
	}
	typeCol := col("Data Type")
	bmrbCol := col("BMRB data type")
	sfCol := col("SFCategory")
	loopCol := col("Loopflag")
	publicCol := col("public")

	field := func(rec []string, i int) string {
		if i >= 0 && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	s := &Schema{Version: "unknown", tags: make(map[string]*SchemaTag)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("could not parse a schema from the provided source: no TBL_BEGIN record found")
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse a schema from the provided source: %w", err)
		}
		if len(rec) > 0 && rec[0] == "TBL_BEGIN" {
			if len(rec) > 3 {
				s.Version = rec[3]
			}
			break
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse a schema from the provided source: %w", err)
		}
		if len(rec) == 0 || rec[0] == "TBL_END" {
			break
		}
		name := field(rec, tagCol)
		if name == "" {
			continue
		}
		s.tags[strings.ToLower(name)] = &SchemaTag{
			Tag:        name,
			DataType:   field(rec, typeCol),
			BMRBType:   field(rec, bmrbCol),
			Nullable:   field(rec, nullCol) != "NOT NULL",
			SFCategory: field(rec, sfCol),
			LoopFlag:   field(rec, loopCol) == "Y",
			Public:     field(rec, publicCol),
		}
		s.order = append(s.order, name)
	}
	s.reindex()
	return s, nil
}

// LoadSchemaFile reads a schema from a CSV file, decompressing it
// first when the name ends in ".gz".
func LoadSchemaFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	s, err := LoadSchema(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// reindex rebuilds the ordering and category indexes after the tag
// list changes.
func (s *Schema) reindex() {
	s.orderIndex = make(map[string]int, len(s.order))
	s.categories = s.categories[:0]
	s.categoryIndex = make(map[string]int)
	for i, tag := range s.order {
		s.orderIndex[strings.ToLower(tag)] = i
		category := FormatCategory(tag)
		if _, ok := s.categoryIndex[strings.ToLower(category)]; !ok {
			s.categoryIndex[strings.ToLower(category)] = len(s.categories)
			s.categories = append(s.categories, category)
		}
	}
}

// Tag returns the definition of a full tag name, or nil when the
// schema does not define the tag.
func (s *Schema) Tag(fullTag string) *SchemaTag {
	return s.tags[strings.ToLower(fullTag)]
}

// Tags returns every full tag name in schema order.
func (s *Schema) Tags() []string {
	return append([]string(nil), s.order...)
}

// Categories returns every tag category in schema order.
func (s *Schema) Categories() []string {
	return append([]string(nil), s.categories...)
}

// TagKey returns the position of a full tag name in the schema
// ordering. Tags the schema does not define sort after all known
// tags.
func (s *Schema) TagKey(fullTag string) int {
	if i, ok := s.orderIndex[strings.ToLower(fullTag)]; ok {
		return i
	}
	return len(s.order)
}

// CategoryKey returns the position of a tag category in the schema
// ordering. Categories the schema does not define sort after all
// known categories.
func (s *Schema) CategoryKey(category string) int {
	if i, ok := s.categoryIndex[strings.ToLower(category)]; ok {
		return i
	}
	return len(s.categories)
}

// TagsInCategory returns the name portion of each deposition visible
// tag in the given tag category, in schema order.
func (s *Schema) TagsInCategory(category string) []string {
	if !strings.HasPrefix(category, "_") {
		category = "_" + category
	}
	search := strings.ToLower(category)
	if !strings.HasSuffix(search, ".") {
		search += "."
	}
	var names []string
	for _, full := range s.order {
		if !strings.HasPrefix(strings.ToLower(full), search) {
			continue
		}
		if s.tags[strings.ToLower(full)].Public == "I" {
			continue
		}
		names = append(names, FormatTag(full))
	}
	return names
}

// AddTag defines a new tag in the schema. The type must be one of
// INTEGER, FLOAT, TEXT, "DATETIME year to day", CHAR(n) or
// VARCHAR(n). The tag is ordered after the last existing tag of its
// own category, or last overall for a new category.
func (s *Schema) AddTag(fullTag, tagType string, nullable bool, sfCategory string, loopFlag bool) error {
	if !strings.HasPrefix(fullTag, "_") {
		fullTag = "_" + fullTag
	}
	if _, ok := s.tags[strings.ToLower(fullTag)]; ok {
		return invalidStatef("Cannot add a tag to the schema that is already in the schema: %s", fullTag)
	}
	switch {
	case strings.EqualFold(tagType, "INTEGER"):
		tagType = "INTEGER"
	case strings.EqualFold(tagType, "FLOAT"):
		tagType = "FLOAT"
	case strings.EqualFold(tagType, "TEXT"):
		tagType = "TEXT"
	case strings.EqualFold(tagType, "DATETIME year to day"):
		tagType = "DATETIME year to day"
	default:
		upper := strings.ToUpper(tagType)
		open, end := strings.Index(upper, "("), strings.Index(upper, ")")
		if (!strings.HasPrefix(upper, "CHAR(") && !strings.HasPrefix(upper, "VARCHAR(")) || end < open {
			return invalidStatef("The tag type you provided is not valid. Please use a type as specified in the help for this method.")
		}
		if length, err := strconv.Atoi(upper[open+1 : end]); err != nil || length <= 0 {
			return invalidStatef("Illegal length specified in tag type: %s", upper[open+1:end])
		}
		tagType = upper[:end+1]
	}
	if sfCategory == "" {
		return invalidStatef("Please provide the sf_category of the parent saveframe.")
	}

	pos := len(s.order)
	search := strings.ToLower(FormatCategory(fullTag)) + "."
	for i, existing := range s.order {
		if strings.HasPrefix(strings.ToLower(existing), search) {
			pos = i + 1
		}
	}
	s.tags[strings.ToLower(fullTag)] = &SchemaTag{
		Tag:        fullTag,
		DataType:   tagType,
		Nullable:   nullable,
		SFCategory: sfCategory,
		LoopFlag:   loopFlag,
		Public:     "Y",
	}
	s.order = append(s.order, "")
	copy(s.order[pos+1:], s.order[pos:])
	s.order[pos] = fullTag
	s.reindex()
	return nil
}

// ValidateValue checks one value against the schema definition of a
// tag and reports at most one violation. When category is not empty
// the tag must belong to a saveframe of that category. The location
// string is echoed in the violation text, usually a line reference.
func (s *Schema) ValidateValue(fullTag, value, category, location string) []Violation {
	if location == "" {
		location = "unknown"
	}
	st := s.tags[strings.ToLower(fullTag)]
	if st == nil {
		return []Violation{{Tag: fullTag, Value: value, Location: location,
			Message: fmt.Sprintf("Tag '%s' not found in schema. Line '%s'.", fullTag, location)}}
	}
	if category != "" && category != st.SFCategory {
		return []Violation{{Tag: st.Tag, Value: value, Location: location,
			Message: fmt.Sprintf("The tag '%s' in category '%s' should be in category '%s'.", st.Tag, category, st.SFCategory)}}
	}
	if IsNullValue(value) {
		if !st.Nullable {
			return []Violation{{Tag: st.Tag, Value: value, Location: location,
				Message: fmt.Sprintf("Value cannot be NULL but is: '%s':'%s' on line '%s'.", st.Tag, value, location)}}
		}
		return nil
	}
	if length, ok := charLength(st.DataType); ok && len(value) > length {
		return []Violation{{Tag: st.Tag, Value: value, Location: location,
			Message: fmt.Sprintf("Length of '%d' is too long for %s: '%s':'%s' on line '%s'.",
				len(value), st.DataType, st.Tag, value, location)}}
	}
	if pattern, ok := typePatterns[st.DataType]; ok && !pattern.MatchString(value) {
		return []Violation{{Tag: st.Tag, Value: value, Location: location,
			Message: fmt.Sprintf("Value does not match specification: '%s':'%s' on line '%s'."+
				"\n     Type specified: %s\n     Regular expression for type: '%s'",
				st.Tag, value, location, st.DataType, pattern)}}
	}
	if fullTag != st.Tag {
		return []Violation{{Tag: fullTag, Value: value, Location: location,
			Message: fmt.Sprintf("The tag '%s' is improperly capitalized but otherwise valid. Should be '%s'.", fullTag, st.Tag)}}
	}
	return nil
}

// ConvertValue converts a raw string value to the Go type the schema
// declares for the tag: int64 for INTEGER, float64 for FLOAT,
// time.Time for "DATETIME year to day" and string for the character
// types. Null markers convert to nil. Values of tags the schema does
// not define are returned unchanged.
func (s *Schema) ConvertValue(fullTag, value string) (interface{}, error) {
	st := s.tags[strings.ToLower(fullTag)]
	if st == nil {
		return value, nil
	}
	if value == "." || value == "?" {
		return nil, nil
	}
	switch {
	case strings.Contains(st.DataType, "CHAR"), strings.Contains(st.DataType, "TEXT"):
		return value, nil
	case strings.Contains(st.DataType, "INTEGER"):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, invalidStatef("The value '%s' for tag '%s' should be an INTEGER but is not.", value, st.Tag)
		}
		return n, nil
	case strings.Contains(st.DataType, "FLOAT"):
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, invalidStatef("The value '%s' for tag '%s' should be a FLOAT but is not.", value, st.Tag)
		}
		return f, nil
	case strings.Contains(st.DataType, "DATETIME"):
		d, err := time.Parse("2006-1-2", value)
		if err != nil {
			return nil, invalidStatef("The value '%s' for tag '%s' should be a DATETIME but is not.", value, st.Tag)
		}
		return d, nil
	}
	return value, nil
}

// charLength extracts n from CHAR(n) and VARCHAR(n) column types.
func charLength(dataType string) (int, bool) {
	if !strings.Contains(dataType, "CHAR") {
		return 0, false
	}
	open, end := strings.Index(dataType, "("), strings.Index(dataType, ")")
	if open < 0 || end < open {
		return 0, false
	}
	n, err := strconv.Atoi(dataType[open+1 : end])
	if err != nil {
		return 0, false
	}
	return n, true
}
