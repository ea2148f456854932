package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// Dataset is a table of records with an explicit column order. A column
// missing from a record reads as null.
type Dataset struct {
	Columns []string
	Records []Record
}

// NewDataset builds a dataset whose columns are the union of the record keys.
// Names listed in order come first (when any record carries them); other keys
// follow in first-seen order, sorted within each record.
func NewDataset(records []Record, order []string) Dataset {
	present := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			present[k] = true
		}
	}

	cols := make([]string, 0, len(present))
	placed := make(map[string]bool, len(present))
	for _, name := range order {
		if present[name] && !placed[name] {
			cols = append(cols, name)
			placed[name] = true
		}
	}
	for _, r := range records {
		var extra []string
		for k := range r {
			if !placed[k] {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			cols = append(cols, k)
			placed[k] = true
		}
	}
	return Dataset{Columns: cols, Records: records}
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Records) }

// HasColumn reports whether name is a column of d.
func (d Dataset) HasColumn(name string) bool {
	return d.columnIndex(name) >= 0
}

func (d Dataset) columnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of name, one per row.
func (d Dataset) Column(name string) []Value {
	out := make([]Value, len(d.Records))
	for i, r := range d.Records {
		out[i] = r[name]
	}
	return out
}

// Clone deep-copies the rows so the copy can be mutated freely.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Columns: append([]string(nil), d.Columns...),
		Records: make([]Record, len(d.Records)),
	}
	for i, r := range d.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// DropColumn removes name from the column list and from every row.
func (d *Dataset) DropColumn(name string) {
	i := d.columnIndex(name)
	if i < 0 {
		return
	}
	d.Columns = append(d.Columns[:i:i], d.Columns[i+1:]...)
	for _, r := range d.Records {
		delete(r, name)
	}
}

// Row returns the values of row i in column order.
func (d Dataset) Row(i int) []Value {
	out := make([]Value, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = d.Records[i][c]
	}
	return out
}

// MarshalJSON writes an array of objects whose keys follow column order.
func (d Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range d.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range d.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			val, err := d.Records[i][c].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an array of objects, taking column order from the
// order keys are first seen.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return eris.Wrap(ErrInput, "model: dataset must be an array of objects")
	}

	out := Dataset{Records: make([]Record, 0, len(raws))}
	seen := make(map[string]bool)
	for i, raw := range raws {
		rec := Record{}
		err := decodeOrderedObject(raw, func(key string, val json.RawMessage) error {
			var v Value
			if err := v.UnmarshalJSON(val); err != nil {
				return eris.Wrapf(ErrInput, "model: row %d column %q", i, key)
			}
			rec[key] = v
			if !seen[key] {
				seen[key] = true
				out.Columns = append(out.Columns, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out.Records = append(out.Records, rec)
	}
	*d = out
	return nil
}
