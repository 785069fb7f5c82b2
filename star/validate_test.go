package star

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func violationMessages(violations []Violation) []string {
	messages := make([]string, len(violations))
	for i, v := range violations {
		messages[i] = v.String()
	}
	return messages
}

func TestEntryValidateStructure(t *testing.T) {
	dup1 := NewSaveframe("alpha")
	require.NoError(t, dup1.AddTag("_One.Sf_category", "one"))
	dup2 := NewSaveframe("alpha")
	require.NoError(t, dup2.AddTag("_Two.Sf_category", "two"))

	beta := NewSaveframe("beta")
	require.NoError(t, beta.AddTag("_Three.Sf_category", "three"))
	require.NoError(t, beta.AddTag("Good_ref", "$alpha"))
	require.NoError(t, beta.AddTag("Bad_ref", "$ghost"))
	refs := NewLoop("_Refs")
	require.NoError(t, refs.AddTags("ID", "Frame"))
	require.NoError(t, refs.AddData([]string{"1", "$beta", "2", "$nowhere"}))
	require.NoError(t, beta.AddLoop(refs))

	e := &Entry{ID: "15000", Saveframes: []*Saveframe{dup1, dup2, beta}}
	violations := e.Validate(nil)

	assert.Equal(t, []string{
		"Multiple saveframes with same name: 'alpha'",
		"Dangling saveframe reference '$ghost' in tag '_Three.Bad_ref'",
		"Dangling saveframe reference '$nowhere' in tag '_Refs.Frame'",
	}, violationMessages(violations))

	require.Len(t, violations, 3)
	assert.Equal(t, "_Three.Bad_ref", violations[1].Tag)
	assert.Equal(t, "$ghost", violations[1].Value)
	assert.Equal(t, "", violations[1].Location)
	assert.Equal(t, "_Refs.Frame", violations[2].Tag)
}

func TestSaveframeValidateNoCategory(t *testing.T) {
	sf := NewSaveframe("orphan")
	require.NoError(t, sf.AddTag("_Entry.ID", "15000"))

	violations := sf.Validate(nil)
	require.Len(t, violations, 1)
	assert.Equal(t, "Cannot properly validate saveframe: 'orphan'. No saveframe category defined.", violations[0].Message)
}

func TestSaveframeValidateSchema(t *testing.T) {
	sch := testSchema(t)

	clean := NewSaveframe("entry_information")
	require.NoError(t, clean.AddTags([][]string{
		{"_Entry.Sf_category", "entry_information"},
		{"ID", "15000"},
		{"Submission_date", "2008-07-17"},
	}))
	assert.Empty(t, clean.Validate(sch))

	bad := NewSaveframe("entry_information")
	require.NoError(t, bad.AddTags([][]string{
		{"_Entry.Sf_category", "entry_information"},
		{"ID", "."},
		{"Scratch", "0123456789ABC"},
		{"Custom_tag", "x"},
	}))
	assert.Equal(t, []string{
		"Value cannot be NULL but is: '_Entry.ID':'.' on line 'unknown'.",
		"Length of '13' is too long for CHAR(12): '_Entry.Scratch':'0123456789ABC' on line 'unknown'.",
		"Tag '_Entry.Custom_tag' not found in schema. Line 'unknown'.",
	}, violationMessages(bad.Validate(sch)))

	misplaced := NewSaveframe("shift_list_1")
	require.NoError(t, misplaced.AddTags([][]string{
		{"_Entry.Sf_category", "assigned_chemical_shifts"},
		{"Title", "out of place"},
	}))
	assert.Equal(t, []string{
		"The tag '_Entry.Sf_category' in category 'assigned_chemical_shifts' should be in category 'entry_information'.",
		"The tag '_Entry.Title' in category 'assigned_chemical_shifts' should be in category 'entry_information'.",
	}, violationMessages(misplaced.Validate(sch)))
}

func TestLoopValidate(t *testing.T) {
	sch := testSchema(t)

	shifts := NewLoop("_Atom_chem_shift")
	require.NoError(t, shifts.AddTags("ID", "Val"))
	require.NoError(t, shifts.AddData([]string{"1", "7.81", "2", "x"}))

	violations := shifts.Validate(sch)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "Value does not match specification: '_Atom_chem_shift.Val':'x' on line 'unknown'.")
	assert.Contains(t, violations[0].Message, "Type specified: FLOAT")

	ragged := NewLoop("_Vals")
	require.NoError(t, ragged.AddTags("a", "b"))
	ragged.Data = append(ragged.Data, []string{"1", "2"}, []string{"3"})

	violations = ragged.Validate(nil)
	require.Len(t, violations, 1)
	assert.Equal(t, "Loop '_Vals' data width does not match its tag width on row '1'.", violations[0].Message)
	assert.Equal(t, "row 1", violations[0].Location)
}

func TestEntryValidateParsedLines(t *testing.T) {
	sch := testSchema(t)

	src := "data_15000\n" +
		"\n" +
		"save_entry_information\n" +
		"   _Entry.Sf_category   entry_information\n" +
		"   _Entry.ID            .\n" +
		"save_entry_information\n"
	e := mustParse(t, src)

	violations := e.Validate(sch)
	require.Len(t, violations, 1)
	assert.Equal(t, "Value cannot be NULL but is: '_Entry.ID':'.' on line '5 of original file'.", violations[0].Message)
	assert.Equal(t, "5 of original file", violations[0].Location)
}
