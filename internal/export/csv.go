package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/internal/model"
)

func writeCSV(w io.Writer, ds model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	row := make([]string, len(ds.Columns))
	for _, r := range ds.Records {
		for j, c := range ds.Columns {
			row[j] = r[c].String()
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func readCSV(r io.Reader) (model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return model.Dataset{}, nil
	}
	if err != nil {
		return model.Dataset{}, eris.Wrap(err, "export: read csv header")
	}

	ds := model.Dataset{Columns: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Dataset{}, eris.Wrap(err, "export: read csv row")
		}
		ds.Records = append(ds.Records, rowRecord(header, row))
	}
	return ds, nil
}

func rowRecord(header, row []string) model.Record {
	rec := make(model.Record, len(header))
	for j, c := range header {
		if j < len(row) {
			rec[c] = cellValue(row[j])
		} else {
			rec[c] = model.Null()
		}
	}
	return rec
}
