package export

import (
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/internal/model"
)

type xmlDataset struct {
	XMLName xml.Name    `xml:"dataset"`
	Records []xmlRecord `xml:"record"`
}

type xmlRecord struct {
	Fields []xmlField `xml:"field"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

func writeXML(w io.Writer, ds model.Dataset) error {
	doc := xmlDataset{Records: make([]xmlRecord, len(ds.Records))}
	for i, r := range ds.Records {
		fields := make([]xmlField, len(ds.Columns))
		for j, c := range ds.Columns {
			fields[j] = xmlField{Name: c, Type: r[c].Kind().String(), Value: r[c].String()}
		}
		doc.Records[i] = xmlRecord{Fields: fields}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return eris.Wrap(err, "export: write xml header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "export: encode xml")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return eris.Wrap(err, "export: write xml")
	}
	return nil
}
