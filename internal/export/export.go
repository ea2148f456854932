// Package export serializes datasets for download and reads them back for
// offline preprocessing.
package export

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXML, FormatXLSX:
		return f, nil
	default:
		return "", eris.Wrapf(model.ErrInput, "export: unsupported output format %q", s)
	}
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", eris.Wrapf(model.ErrInput, "export: no extension on %q", path)
	}
	return ParseFormat(path[i+1:])
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// FileName is the attachment name served for f.
func (f Format) FileName() string {
	return "dataset." + string(f)
}

// Write serializes ds to w in format f.
func Write(w io.Writer, f Format, ds model.Dataset) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, ds)
	case FormatJSON:
		return writeJSON(w, ds)
	case FormatXML:
		return writeXML(w, ds)
	case FormatXLSX:
		return writeXLSX(w, ds)
	default:
		return eris.Wrapf(model.ErrInput, "export: unsupported output format %q", string(f))
	}
}

func writeJSON(w io.Writer, ds model.Dataset) error {
	raw, err := ds.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "export: marshal json")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return eris.Wrap(err, "export: indent json")
	}
	buf.WriteByte('\n')
	if _, err := buf.WriteTo(w); err != nil {
		return eris.Wrap(err, "export: write json")
	}
	return nil
}

// Read parses a dataset previously written in format f. XML is write-only.
func Read(r io.Reader, f Format) (model.Dataset, error) {
	switch f {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		var ds model.Dataset
		data, err := io.ReadAll(r)
		if err != nil {
			return model.Dataset{}, eris.Wrap(err, "export: read json")
		}
		if err := json.Unmarshal(data, &ds); err != nil {
			return model.Dataset{}, eris.Wrap(err, "export: decode json")
		}
		return ds, nil
	case FormatXLSX:
		return readXLSX(r)
	default:
		return model.Dataset{}, eris.Wrapf(model.ErrInput, "export: cannot read format %q", string(f))
	}
}

// cellValue turns a text cell back into a typed value: blank is null,
// integer and float literals become numbers, true/false become booleans.
func cellValue(s string) model.Value {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return model.Null()
	case "true":
		return model.BoolValue(true)
	case "false":
		return model.BoolValue(false)
	}
	v := model.ValueOf(json.Number(s))
	if !v.IsNumeric() {
		return model.StringValue(s)
	}
	return v
}
