package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dataset-cli/internal/model"
)

// SheetName is the worksheet exported datasets are written to.
const SheetName = "dataset"

func writeXLSX(w io.Writer, ds model.Dataset) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range ds.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range ds.Records {
		row := sheet.AddRow()
		for _, c := range ds.Columns {
			setCell(row.AddCell(), r[c])
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func setCell(cell *xlsx.Cell, v model.Value) {
	switch v.Kind() {
	case model.KindInteger:
		i, _ := v.Int()
		cell.SetInt64(i)
	case model.KindNumber:
		f, _ := v.Float()
		cell.SetFloat(f)
	case model.KindBoolean:
		b, _ := v.Bool()
		cell.SetBool(b)
	case model.KindString:
		cell.SetString(v.String())
	}
}

func readXLSX(r io.Reader) (model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Dataset{}, eris.Wrap(err, "export: read xlsx")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return model.Dataset{}, eris.Wrap(err, "export: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return model.Dataset{}, nil
	}

	sheet := f.Sheets[0]
	if s, ok := f.Sheet[SheetName]; ok {
		sheet = s
	}
	if len(sheet.Rows) == 0 {
		return model.Dataset{}, nil
	}

	header := rowStrings(sheet.Rows[0])
	ds := model.Dataset{Columns: header}
	for _, row := range sheet.Rows[1:] {
		ds.Records = append(ds.Records, rowRecord(header, rowStrings(row)))
	}
	return ds, nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
