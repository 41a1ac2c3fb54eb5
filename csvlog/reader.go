package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
)

// RowReader reads rows back from a serialized document, keyed by the
// document's own header columns.
type RowReader struct {
	cr     *csv.Reader
	header []string
}

// NewRowReader reads the header row and prepares to iterate body rows.
func NewRowReader(r io.Reader) (*RowReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	return &RowReader{cr: cr, header: header}, nil
}

// Next returns the next row as a column-name to value map, or io.EOF when
// the document is exhausted. Short rows simply omit the trailing columns.
func (r *RowReader) Next() (map[string]string, error) {
	fields, err := r.cr.Read()
	if err != nil {
		return nil, err
	}
	row := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(fields) {
			row[name] = fields[i]
		}
	}
	return row, nil
}
