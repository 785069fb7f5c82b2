package star

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The JSON wire form matches the public BMRB API: an entry is
// {"entry_id", "saveframes"}, a saveframe {"name", "category",
// "tag_prefix", "tags", "loops"} with tags as [name, value] pairs,
// and a loop {"category", "tags", "data"}. Values arriving as JSON
// null, numbers or booleans are stored in their string form, with
// null mapping to the '.' null marker, true to "yes" and false to
// "no".

type entryJSON struct {
	EntryID    string       `json:"entry_id"`
	Saveframes []*Saveframe `json:"saveframes"`
}

type saveframeJSON struct {
	Name      string     `json:"name"`
	Category  string     `json:"category"`
	TagPrefix string     `json:"tag_prefix"`
	Tags      [][]string `json:"tags"`
	Loops     []*Loop    `json:"loops"`
}

type loopJSON struct {
	Category string     `json:"category"`
	Tags     []string   `json:"tags"`
	Data     [][]string `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (e *Entry) MarshalJSON() ([]byte, error) {
	frames := e.Saveframes
	if frames == nil {
		frames = []*Saveframe{}
	}
	return json.Marshal(entryJSON{EntryID: e.ID, Saveframes: frames})
}

// UnmarshalJSON implements json.Unmarshaler. The input must carry the
// "saveframes" key and either "entry_id" or its legacy synonym
// "bmrb_id".
func (e *Entry) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	if _, ok := raw["saveframes"]; !ok {
		return missingKeyError("saveframes")
	}
	id, ok := raw["entry_id"]
	if !ok {
		if id, ok = raw["bmrb_id"]; !ok {
			return missingKeyError("entry_id")
		}
	}

	idValue, err := decodeAny(id)
	if err != nil {
		return err
	}
	var frames []json.RawMessage
	if err := json.Unmarshal(raw["saveframes"], &frames); err != nil {
		return err
	}

	parsed := Entry{ID: cellString(idValue)}
	for _, rawFrame := range frames {
		sf := NewSaveframe("")
		if err := sf.UnmarshalJSON(rawFrame); err != nil {
			return err
		}
		parsed.Saveframes = append(parsed.Saveframes, sf)
	}
	*e = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (sf *Saveframe) MarshalJSON() ([]byte, error) {
	tags := make([][]string, len(sf.Tags))
	for i, t := range sf.Tags {
		tags[i] = []string{t.Name, t.Value}
	}
	loops := sf.Loops
	if loops == nil {
		loops = []*Loop{}
	}
	return json.Marshal(saveframeJSON{
		Name:      sf.Name,
		Category:  sf.Category(),
		TagPrefix: sf.TagPrefix,
		Tags:      tags,
		Loops:     loops,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The input must carry the
// "name", "tag_prefix", "tags" and "loops" keys; "category" is
// derived from the tags and ignored when present.
func (sf *Saveframe) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	for _, key := range []string{"name", "tag_prefix", "tags", "loops"} {
		if _, ok := raw[key]; !ok {
			return missingKeyError(key)
		}
	}

	parsed := Saveframe{}
	if parsed.Name, err = decodeString(raw["name"]); err != nil {
		return err
	}
	if parsed.TagPrefix, err = decodeString(raw["tag_prefix"]); err != nil {
		return err
	}

	var tags [][]json.RawMessage
	if err := json.Unmarshal(raw["tags"], &tags); err != nil {
		return err
	}
	for _, pair := range tags {
		if len(pair) < 2 {
			return fmt.Errorf("saveframe tag entries must be [name, value] pairs")
		}
		name, err := decodeString(pair[0])
		if err != nil {
			return err
		}
		value, err := decodeAny(pair[1])
		if err != nil {
			return err
		}
		parsed.Tags = append(parsed.Tags, Tag{Name: name, Value: cellString(value)})
	}

	var loops []json.RawMessage
	if err := json.Unmarshal(raw["loops"], &loops); err != nil {
		return err
	}
	for _, rawLoop := range loops {
		loop := NewLoop("")
		if err := loop.UnmarshalJSON(rawLoop); err != nil {
			return err
		}
		parsed.Loops = append(parsed.Loops, loop)
	}
	*sf = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l *Loop) MarshalJSON() ([]byte, error) {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	data := l.Data
	if data == nil {
		data = [][]string{}
	}
	return json.Marshal(loopJSON{Category: l.Category, Tags: tags, Data: data})
}

// UnmarshalJSON implements json.Unmarshaler. The input must carry the
// "category", "tags" and "data" keys.
func (l *Loop) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	for _, key := range []string{"tags", "category", "data"} {
		if _, ok := raw[key]; !ok {
			return missingKeyError(key)
		}
	}

	parsed := Loop{}
	if parsed.Category, err = decodeString(raw["category"]); err != nil {
		return err
	}

	var tags []json.RawMessage
	if err := json.Unmarshal(raw["tags"], &tags); err != nil {
		return err
	}
	for _, rawTag := range tags {
		name, err := decodeString(rawTag)
		if err != nil {
			return err
		}
		parsed.Tags = append(parsed.Tags, name)
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw["data"], &rows); err != nil {
		return err
	}
	for _, rawRow := range rows {
		row := make([]string, len(rawRow))
		for i, rawCell := range rawRow {
			cell, err := decodeAny(rawCell)
			if err != nil {
				return err
			}
			row[i] = cellString(cell)
		}
		parsed.Data = append(parsed.Data, row)
	}
	*l = parsed
	return nil
}

func missingKeyError(key string) error {
	return fmt.Errorf("the JSON you provide must be an object and must contain the key '%s' - even if the key points to null", key)
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeAny decodes a JSON fragment preserving number notation.
func decodeAny(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeString(raw json.RawMessage) (string, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return "", err
	}
	return cellString(v), nil
}

// cellString renders a decoded JSON value the way values are stored
// in the model.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "."
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprint(v)
}
