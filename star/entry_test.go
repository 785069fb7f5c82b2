package star

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryAddRemoveSaveframe(t *testing.T) {
	e := NewEntry("15000")
	sf := NewSaveframe("frame1")
	require.NoError(t, e.AddSaveframe(sf))

	err := e.AddSaveframe(NewSaveframe("frame1"))
	require.Error(t, err)
	assert.EqualError(t, err, "Cannot add a saveframe with name 'frame1' since a saveframe with that name already exists in the entry.")

	assert.Same(t, sf, e.SaveframeByName("frame1"))
	assert.Nil(t, e.SaveframeByName("Frame1"))

	require.NoError(t, e.RemoveSaveframe("frame1"))
	assert.Empty(t, e.Saveframes)
	err = e.RemoveSaveframe("frame1")
	require.Error(t, err)
	assert.EqualError(t, err, "No saveframe with name 'frame1' exists in the entry.")
}

func TestEntryRenameSaveframe(t *testing.T) {
	e := NewEntry("15000")

	sample := NewSaveframe("sample_1")
	require.NoError(t, sample.AddTag("_Sample.Sf_framecode", "sample_1"))
	require.NoError(t, e.AddSaveframe(sample))

	conditions := NewSaveframe("conditions")
	require.NoError(t, conditions.AddTag("_Sample_condition_list.Sample_label", "$sample_1"))
	require.NoError(t, conditions.AddTag("Comment", "sample_1"))
	loop := NewLoop("_Experiment")
	require.NoError(t, loop.AddTags("ID", "Sample_label"))
	require.NoError(t, loop.AddData([]string{"1", "$sample_1"}))
	require.NoError(t, conditions.AddLoop(loop))
	require.NoError(t, e.AddSaveframe(conditions))

	require.NoError(t, e.RenameSaveframe("$sample_1", "sample_2"))
	assert.Equal(t, "sample_2", sample.Name)
	assert.Equal(t, "sample_2", sample.GetTag("Sf_framecode"))
	assert.Equal(t, "$sample_2", conditions.GetTag("Sample_label"))
	assert.Equal(t, "sample_1", conditions.GetTag("Comment"))
	assert.Equal(t, "$sample_2", loop.Data[0][1])

	err := e.RenameSaveframe("sample_2", "conditions")
	require.Error(t, err)
	assert.EqualError(t, err, "Cannot rename the saveframe 'sample_2' as 'conditions' because a saveframe with that name already exists in the entry.")

	err = e.RenameSaveframe("ghost", "anything")
	require.Error(t, err)
	assert.EqualError(t, err, "No saveframe with name 'ghost' exists in the entry.")
}

func TestEntrySaveframeSelectors(t *testing.T) {
	e := NewEntry("15000")

	info := NewSaveframe("entry_information")
	require.NoError(t, info.AddTag("_Entry.Sf_category", "entry_information"))
	cit1 := NewSaveframe("citation_1")
	require.NoError(t, cit1.AddTag("_Citation.Sf_category", "citations"))
	cit2 := NewSaveframe("citation_2")
	require.NoError(t, cit2.AddTag("_Citation.Sf_category", "citations"))
	for _, sf := range []*Saveframe{info, cit1, cit2} {
		require.NoError(t, e.AddSaveframe(sf))
	}

	assert.Equal(t, []*Saveframe{cit1, cit2}, e.SaveframesByCategory("citations"))
	assert.Empty(t, e.SaveframesByCategory("missing"))
	assert.Equal(t, []*Saveframe{info}, e.SaveframesByTagValue("Sf_category", "entry_information"))

	authors1 := NewLoop("_Citation_author")
	authors2 := NewLoop("_Citation_author")
	require.NoError(t, cit1.AddLoop(authors1))
	require.NoError(t, cit2.AddLoop(authors2))
	assert.Equal(t, []*Loop{authors1, authors2}, e.LoopsByCategory("citation_author"))
	assert.Empty(t, e.LoopsByCategory("_nope"))
}

func TestEntryGetTag(t *testing.T) {
	e := NewEntry("15000")

	first := NewSaveframe("assembly_1")
	require.NoError(t, first.AddTag("_Assembly.Name", "first"))
	entities := NewLoop("_Entity_assembly")
	require.NoError(t, entities.AddTag("ID"))
	require.NoError(t, entities.AddData([]string{"1", "2"}))
	require.NoError(t, first.AddLoop(entities))

	second := NewSaveframe("assembly_2")
	require.NoError(t, second.AddTag("_Assembly.Name", "second"))

	require.NoError(t, e.AddSaveframe(first))
	require.NoError(t, e.AddSaveframe(second))

	values, err := e.GetTag("_Assembly.Name")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, values)

	values, err = e.GetTag("Entity_assembly.ID")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, values)

	values, err = e.GetTag("_Nope.x")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = e.GetTag("Name")
	require.Error(t, err)
	assert.EqualError(t, err, "You must provide the tag category to call this method at the entry level.")
}

func TestEntryCategories(t *testing.T) {
	e := NewEntry("15000")

	info := NewSaveframe("entry_information")
	require.NoError(t, info.AddTag("_Entry.Sf_category", "entry_information"))
	cit1 := NewSaveframe("citation_1")
	require.NoError(t, cit1.AddTag("_Citation.Sf_category", "citations"))
	cit2 := NewSaveframe("citation_2")
	require.NoError(t, cit2.AddTag("_Citation.Sf_category", "citations"))
	bare := NewSaveframe("uncategorized")
	for _, sf := range []*Saveframe{info, cit1, cit2, bare} {
		require.NoError(t, e.AddSaveframe(sf))
	}

	assert.Equal(t, []string{"entry_information", "citations"}, e.Categories())
}

func TestEntryRemoveEmptySaveframes(t *testing.T) {
	e := NewEntry("15000")

	blank := NewSaveframe("blank")
	require.NoError(t, blank.AddTag("_Blank.a", "."))
	require.NoError(t, blank.AddTag("b", "?"))
	full := NewSaveframe("full")
	require.NoError(t, full.AddTag("_Full.a", "x"))
	require.NoError(t, e.AddSaveframe(blank))
	require.NoError(t, e.AddSaveframe(full))

	assert.False(t, e.Empty())
	e.RemoveEmptySaveframes()
	assert.Equal(t, []*Saveframe{full}, e.Saveframes)

	only := NewEntry("1")
	require.NoError(t, only.AddSaveframe(blank))
	assert.True(t, only.Empty())
	only.RemoveEmptySaveframes()
	assert.Empty(t, only.Saveframes)
}

func TestEntryNormalize(t *testing.T) {
	sch := testSchema(t)

	e := NewEntry("15000")

	shifts2 := NewSaveframe("shifts_2")
	require.NoError(t, shifts2.AddTags([][]string{
		{"_Assigned_chem_shift_list.ID", "2"},
		{"Sf_category", "assigned_chemical_shifts"},
	}))

	info := NewSaveframe("entry_info")
	require.NoError(t, info.AddTags([][]string{
		{"_Entry.Title", "Solution structure"},
		{"ID", "15000"},
	}))

	shifts1 := NewSaveframe("shifts_1")
	require.NoError(t, shifts1.AddTag("_Assigned_chem_shift_list.ID", "1"))
	shifts := NewLoop("_Atom_chem_shift")
	require.NoError(t, shifts.AddTags("Val", "ID"))
	require.NoError(t, shifts.AddData([]string{"7.81", "1"}))
	require.NoError(t, shifts1.AddLoop(shifts))

	for _, sf := range []*Saveframe{shifts2, info, shifts1} {
		require.NoError(t, e.AddSaveframe(sf))
	}

	require.NoError(t, e.Normalize(sch))

	order := make([]string, len(e.Saveframes))
	for i, sf := range e.Saveframes {
		order[i] = sf.Name
	}
	assert.Equal(t, []string{"entry_info", "shifts_1", "shifts_2"}, order)

	infoTags := make([]string, len(info.Tags))
	for i, tag := range info.Tags {
		infoTags[i] = tag.Name
	}
	assert.Equal(t, []string{"ID", "Title"}, infoTags)

	assert.Equal(t, []string{"ID", "Val"}, shifts.Tags)
	assert.Equal(t, [][]string{{"1", "7.81"}}, shifts.Data)

	err := e.Normalize(nil)
	require.Error(t, err)
	assert.EqualError(t, err, "A schema is required to normalize an entry.")
}

func TestEntryAddMissingTags(t *testing.T) {
	sch := testSchema(t)

	e := NewEntry("15000")

	info := NewSaveframe("entry_info")
	require.NoError(t, info.AddTag("_Entry.ID", "15000"))
	contacts := NewLoop("_Contact_person")
	require.NoError(t, contacts.AddTag("Family_name"))
	require.NoError(t, contacts.AddRow([]string{"Wedell"}))
	require.NoError(t, info.AddLoop(contacts))

	custom := NewSaveframe("custom")
	require.NoError(t, custom.AddTag("_Custom.a", "1"))
	unknown := NewLoop("_Unknown")
	require.NoError(t, unknown.AddTag("x"))
	require.NoError(t, unknown.AddRow([]string{"1"}))
	require.NoError(t, custom.AddLoop(unknown))

	require.NoError(t, e.AddSaveframe(info))
	require.NoError(t, e.AddSaveframe(custom))

	require.NoError(t, e.AddMissingTags(sch))

	infoTags := make([]string, len(info.Tags))
	for i, tag := range info.Tags {
		infoTags[i] = tag.Name
	}
	assert.Equal(t, []string{"Sf_category", "Sf_framecode", "ID", "Title", "Submission_date"}, infoTags)
	assert.Equal(t, "15000", info.GetTag("ID"))

	assert.Equal(t, []string{"Ordinal", "Family_name", "Given_name", "Entry_ID"}, contacts.Tags)
	assert.Equal(t, [][]string{{"1", "Wedell", ".", "."}}, contacts.Data)

	assert.Len(t, custom.Tags, 1)
	assert.Equal(t, []string{"x"}, unknown.Tags)

	err := e.AddMissingTags(nil)
	require.Error(t, err)
	assert.EqualError(t, err, "A schema is required to add missing tags.")
}

func TestEntryCompare(t *testing.T) {
	build := func(t *testing.T) *Entry {
		t.Helper()
		e := NewEntry("15000")
		f1 := NewSaveframe("frame1")
		require.NoError(t, f1.AddTag("_Test.a", "1"))
		f2 := NewSaveframe("frame2")
		require.NoError(t, f2.AddTag("_Other.b", "2"))
		require.NoError(t, e.AddSaveframe(f1))
		require.NoError(t, e.AddSaveframe(f2))
		return e
	}

	a := build(t)
	assert.Empty(t, a.Compare(build(t)))

	id := build(t)
	id.ID = "14999"
	assert.Equal(t, []string{"Entry ID does not match between entries: '15000' vs '14999'."}, a.Compare(id))

	short := build(t)
	require.NoError(t, short.RemoveSaveframe("frame2"))
	assert.Equal(t, []string{
		"The number of saveframes in the entries are not equal: '2' vs '1'.",
		"No saveframe with name 'frame2' in other entry.",
	}, a.Compare(short))

	changed := build(t)
	require.NoError(t, changed.SaveframeByName("frame1").SetTag("a", "9"))
	assert.Equal(t, []string{
		"Saveframes do not match: 'frame1'.",
		"\tMismatched tag values for tag '_Test.a': '1' vs '9'.",
	}, a.Compare(changed))
}

func TestEntryEqualIdentical(t *testing.T) {
	build := func(t *testing.T, rows [][]string) *Entry {
		t.Helper()
		e := NewEntry("15000")
		sf := NewSaveframe("frame1")
		require.NoError(t, sf.AddTag("_Test.a", "1"))
		loop := NewLoop("_Vals")
		require.NoError(t, loop.AddTags("x", "y"))
		for _, row := range rows {
			require.NoError(t, loop.AddRow(row))
		}
		require.NoError(t, sf.AddLoop(loop))
		require.NoError(t, e.AddSaveframe(sf))
		return e
	}

	a := build(t, [][]string{{"1", "2"}, {"3", "4"}})
	reordered := build(t, [][]string{{"3", "4"}, {"1", "2"}})

	assert.True(t, a.Equal(reordered))
	assert.False(t, a.Identical(reordered))
	assert.True(t, a.Identical(build(t, [][]string{{"1", "2"}, {"3", "4"}})))

	other := build(t, [][]string{{"1", "2"}, {"3", "5"}})
	assert.False(t, a.Equal(other))
}

func TestEntryFormat(t *testing.T) {
	noID := &Entry{}
	_, err := noID.Format(FormatOptions{})
	require.Error(t, err)
	assert.EqualError(t, err, "Cannot serialize an entry with no ID. Set Entry.ID first.")
	assert.Equal(t, "<invalid entry: Cannot serialize an entry with no ID. Set Entry.ID first.>", noID.String())

	bare := NewEntry("15000")
	assert.Equal(t, "data_15000\n\n", bare.String())

	dummy := NewSaveframe("test")
	dummy.SetTagPrefix("test")
	require.NoError(t, bare.AddSaveframe(dummy))
	assert.Equal(t, "data_15000\n\n\nsave_test\n\nsave_\n", bare.String())
}

func TestEntryWriteFile(t *testing.T) {
	e := NewEntry("15000")
	sf := NewSaveframe("entry_information")
	require.NoError(t, sf.AddTag("_Entry.ID", "15000"))
	contacts := NewLoop("_Contact_person")
	require.NoError(t, contacts.AddTags("Ordinal", "Family_name"))
	require.NoError(t, contacts.AddData([]string{"1", "Wedell", "2", "Ulrich"}))
	require.NoError(t, sf.AddLoop(contacts))
	require.NoError(t, e.AddSaveframe(sf))

	dir := t.TempDir()

	plain := filepath.Join(dir, "entry.str")
	require.NoError(t, e.WriteFile(plain))
	fromPlain, err := ParseFile(plain)
	require.NoError(t, err)
	assert.True(t, e.Identical(fromPlain))

	gz := filepath.Join(dir, "entry.str.gz")
	require.NoError(t, e.WriteFile(gz))
	fromGz, err := ParseFile(gz)
	require.NoError(t, err)
	assert.True(t, e.Identical(fromGz))

	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf))
	assert.Equal(t, e.String(), buf.String())
}
