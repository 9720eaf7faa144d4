// Package ingest streams supplier catalog files through mapping, enrichment
// and upsert without ever holding a whole file in memory.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyFile reports a catalog with no header row.
var ErrEmptyFile = errors.New("catalog file has no header row")

// RecordReader yields one raw record at a time. Read returns io.EOF at end of
// stream; any other error means the stream itself is broken and the job fails.
type RecordReader interface {
	// Headers returns the first row of the file.
	Headers() []string
	// Read returns the next data record.
	Read() ([]string, error)
	// Close releases the underlying file handle.
	Close() error
}

// OpenReader picks a reader by file extension. CSV is the default for
// unrecognized extensions since suppliers routinely mislabel exports.
func OpenReader(fileName string, r io.ReadCloser) (RecordReader, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return newXLSXReader(r)
	default:
		return newCSVReader(r)
	}
}

type csvReader struct {
	headers []string
	reader  *csv.Reader
	closer  io.Closer
}

func newCSVReader(r io.ReadCloser) (*csvReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are handled per cell downstream
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err == io.EOF {
		r.Close()
		return nil, ErrEmptyFile
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return &csvReader{headers: headers, reader: cr, closer: r}, nil
}

func (r *csvReader) Headers() []string { return r.headers }

func (r *csvReader) Read() ([]string, error) {
	record, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read csv record: %w", err)
	}
	return record, nil
}

func (r *csvReader) Close() error { return r.closer.Close() }

// xlsxReader streams the first sheet of a workbook row by row.
type xlsxReader struct {
	headers []string
	rows    *excelize.Rows
	file    *excelize.File
}

func newXLSXReader(r io.ReadCloser) (*xlsxReader, error) {
	defer r.Close()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, ErrEmptyFile
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open xlsx sheet %q: %w", sheets[0], err)
	}
	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, ErrEmptyFile
	}
	headers, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("read xlsx header: %w", err)
	}
	return &xlsxReader{headers: headers, rows: rows, file: f}, nil
}

func (r *xlsxReader) Headers() []string { return r.headers }

func (r *xlsxReader) Read() ([]string, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, fmt.Errorf("read xlsx row: %w", err)
		}
		return nil, io.EOF
	}
	record, err := r.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read xlsx row: %w", err)
	}
	return record, nil
}

func (r *xlsxReader) Close() error {
	r.rows.Close()
	return r.file.Close()
}
