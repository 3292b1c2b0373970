package refset

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const xmlHeader = `<?xml version="1.0"?>` + "\n"

type storageXML struct {
	XMLName xml.Name    `xml:"opencv_storage"`
	Nodes   []matrixXML `xml:",any"`
}

type matrixXML struct {
	XMLName xml.Name
	TypeID  string  `xml:"type_id,attr"`
	Rows    int     `xml:"rows"`
	Cols    int     `xml:"cols"`
	DT      string  `xml:"dt"`
	Data    dataXML `xml:"data"`
}

// dataXML keeps the number list raw so newlines are not escaped as
// character references.
type dataXML struct {
	Text string `xml:",innerxml"`
}

// valuesPerLine matches the wrapping of OpenCV's writer closely enough to
// keep files diffable.
const valuesPerLine = 16

// encodeXML writes m under key in OpenCV FileStorage XML layout.
func encodeXML(key string, m Matrix) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	var data strings.Builder
	for i, v := range m.Data {
		if i%valuesPerLine == 0 {
			data.WriteString("\n    ")
		} else {
			data.WriteByte(' ')
		}
		data.WriteString(formatValue(v, m.Type))
	}

	doc := storageXML{
		Nodes: []matrixXML{{
			XMLName: xml.Name{Local: key},
			TypeID:  "opencv-matrix",
			Rows:    m.Rows,
			Cols:    m.Cols,
			DT:      m.Type,
			Data:    dataXML{Text: data.String()},
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// decodeXML reads the matrix stored under key.
func decodeXML(data []byte, key string) (Matrix, error) {
	var doc storageXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	for _, n := range doc.Nodes {
		if n.XMLName.Local != key {
			continue
		}
		if n.TypeID != "" && n.TypeID != "opencv-matrix" {
			return Matrix{}, fmt.Errorf("%w: node %s has type_id %q", ErrMalformed, key, n.TypeID)
		}
		values, err := parseValues(n.Data.Text)
		if err != nil {
			return Matrix{}, err
		}
		m := Matrix{Rows: n.Rows, Cols: n.Cols, Type: strings.TrimSpace(n.DT), Data: values}
		if err := m.validate(); err != nil {
			return Matrix{}, err
		}
		return m, nil
	}
	return Matrix{}, fmt.Errorf("%w: %s", ErrMissingKey, strconv.Quote(key))
}
