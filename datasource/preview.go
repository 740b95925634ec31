package datasource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// DefaultPreviewRows is the number of data rows kept by Preview.
const DefaultPreviewRows = 5

// CSVPreview summarizes a CSV file.
type CSVPreview struct {
	// Columns are the header names.
	Columns []string `json:"columns"`

	// Rows holds up to DefaultPreviewRows data rows.
	Rows [][]string `json:"rows"`

	// RowCount is the number of data rows in the whole file.
	RowCount int `json:"rowCount"`
}

// IsCSV reports whether name looks like a CSV file.
func IsCSV(name string) bool {
	return strings.EqualFold(path.Ext(name), ".csv")
}

// Preview parses data as CSV with a header row.
func Preview(data []byte) (CSVPreview, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return CSVPreview{}, fmt.Errorf("preview csv: empty file")
	}
	if err != nil {
		return CSVPreview{}, fmt.Errorf("preview csv header: %w", err)
	}

	p := CSVPreview{Columns: header, Rows: make([][]string, 0, DefaultPreviewRows)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p, fmt.Errorf("preview csv row %d: %w", p.RowCount+1, err)
		}
		if len(p.Rows) < DefaultPreviewRows {
			p.Rows = append(p.Rows, record)
		}
		p.RowCount++
	}
	return p, nil
}

// Summary renders the preview as a one-line description.
func (p CSVPreview) Summary() string {
	return fmt.Sprintf("%d rows x %d columns (%s)", p.RowCount, len(p.Columns), strings.Join(p.Columns, ", "))
}
