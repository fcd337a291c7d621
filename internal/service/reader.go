package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// identifierColumns are the recognized identifying columns, in priority
// order. The first non-empty value in a row wins.
var identifierColumns = []string{"subscriber_id", "msisdn", "email"}

// Row is one input record from the uploaded file. Index is the line number
// in the file (the header is line 1, the first data row is line 2) and is
// used in report details. Rows exist only during a run and are never
// persisted.
type Row struct {
	Index  int
	Fields map[string]string
}

// Identifier returns the row's identifying key, or "" when no recognized
// column carries a value.
func (r Row) Identifier() string {
	for _, col := range identifierColumns {
		if v := strings.TrimSpace(r.Fields[col]); v != "" {
			return v
		}
	}
	return ""
}

// ParseRows reads a CSV source file into ordered rows. The first line is
// treated as a header; header names are normalized to lower case. A short
// data line is padded with empty values rather than rejected.
func ParseRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("source file has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		columns[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var rows []Row
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", line, err)
		}

		fields := make(map[string]string, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				fields[col] = strings.TrimSpace(record[i])
			} else {
				fields[col] = ""
			}
		}
		rows = append(rows, Row{Index: line, Fields: fields})
	}

	return rows, nil
}
