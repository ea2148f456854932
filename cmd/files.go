package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dataset-cli/internal/export"
	"github.com/sells-group/dataset-cli/internal/model"
)

// decodeFile reads a JSON or YAML document into v, picking the decoder by
// extension. Anything that is not .json is read as YAML.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return eris.Wrapf(err, "decode %s", path)
	}
	return nil
}

// loadFields reads a name→spec mapping. An empty path yields no fields, which
// selects the default field set.
func loadFields(path string) ([]model.FieldSpec, error) {
	if path == "" {
		return nil, nil
	}
	var fs model.FieldSet
	if err := decodeFile(path, &fs); err != nil {
		return nil, err
	}
	out := make([]model.FieldSpec, len(fs))
	for i, f := range fs {
		if f.Description == "" {
			f.Description = f.Name
		}
		out[i] = f
	}
	return out, nil
}

// loadPreprocessSpec reads handle_nulls/normalization/encoding rules. An empty
// path yields the zero spec.
func loadPreprocessSpec(path string) (model.PreprocessSpec, error) {
	var spec model.PreprocessSpec
	if path == "" {
		return spec, nil
	}
	err := decodeFile(path, &spec)
	return spec, err
}

// outputFormat resolves --format, falling back to the --out extension and
// then to CSV.
func outputFormat(flag, out string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if out != "" && out != "-" {
		if f, err := export.FormatFromPath(out); err == nil {
			return f, nil
		}
	}
	return export.ParseFormat("")
}

// writeDataset writes ds to out, or stdout when out is empty or "-".
func writeDataset(stdout io.Writer, out string, f export.Format, ds model.Dataset) error {
	if out == "" || out == "-" {
		return export.Write(stdout, f, ds)
	}
	file, err := os.Create(out)
	if err != nil {
		return eris.Wrapf(err, "create %s", out)
	}
	if err := export.Write(file, f, ds); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// readDataset loads a CSV, JSON or XLSX dataset, choosing the reader by
// extension.
func readDataset(path string) (model.Dataset, error) {
	f, err := export.FormatFromPath(path)
	if err != nil {
		return model.Dataset{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return model.Dataset{}, eris.Wrapf(err, "open %s", path)
	}
	defer file.Close() //nolint:errcheck
	return export.Read(file, f)
}
