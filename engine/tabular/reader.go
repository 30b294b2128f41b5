// Package tabular reads the antibiotic resistance CSV export into domain
// records, dropping rows that carry no Patient_ID.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sanjuz-cas/llm-kg-project/engine/domain"
)

// Reader streams validated records from a delimited file. It is single pass:
// once Next has returned io.EOF the reader is exhausted.
type Reader struct {
	csv     *csv.Reader
	closer  io.Closer
	index   map[string]int
	line    int
	read    int
	skipped int
	done    bool
}

// Option configures a Reader.
type Option func(*csv.Reader)

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) Option {
	return func(c *csv.Reader) { c.Comma = r }
}

// Open opens path and reads its header row.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tabular: open %s: %w", path, err)
	}
	r, err := NewReader(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header row from src.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	c := csv.NewReader(src)
	c.FieldsPerRecord = -1
	c.LazyQuotes = true
	for _, o := range opts {
		o(c)
	}

	header, err := c.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tabular: empty input: %w", domain.ErrMissingColumn)
		}
		return nil, fmt.Errorf("tabular: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	if _, ok := index[domain.ColPatientID]; !ok {
		return nil, fmt.Errorf("tabular: %w: %s", domain.ErrMissingColumn, domain.ColPatientID)
	}

	return &Reader{csv: c, index: index, line: 1}, nil
}

// Next returns the next record with a present Patient_ID, or io.EOF.
func (r *Reader) Next() (domain.Record, error) {
	for {
		if r.done {
			return domain.Record{}, io.EOF
		}
		row, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			return domain.Record{}, io.EOF
		}
		if err != nil {
			return domain.Record{}, fmt.Errorf("tabular: %w", err)
		}
		r.line, _ = r.csv.FieldPos(0)
		r.read++

		rec := r.record(row)
		if domain.ValidateRecord(rec) != nil {
			r.skipped++
			continue
		}
		return rec, nil
	}
}

// ReadAll drains the reader.
func (r *Reader) ReadAll(ctx context.Context) ([]domain.Record, error) {
	var out []domain.Record
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Rows returns how many data rows have been read so far.
func (r *Reader) Rows() int { return r.read }

// Skipped returns how many rows were dropped for a missing Patient_ID.
func (r *Reader) Skipped() int { return r.skipped }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func (r *Reader) record(row []string) domain.Record {
	return domain.Record{
		Line:            r.line,
		PatientID:       r.text(row, domain.ColPatientID),
		Age:             parseScalar(r.cell(row, domain.ColAge)),
		Gender:          r.text(row, domain.ColGender),
		SpecimenType:    r.text(row, domain.ColSpecimenType),
		Outcome:         r.text(row, domain.ColOutcome),
		ResistanceGenes: r.text(row, domain.ColResistanceGenes),
	}
}

func (r *Reader) cell(row []string, col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// text returns the trimmed cell, or "" when the cell is missing.
func (r *Reader) text(row []string, col string) string {
	v := r.cell(row, col)
	if domain.IsMissing(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// parseScalar turns numeric text into int64 or float64. Missing cells become
// nil; anything else is kept verbatim.
func parseScalar(raw string) any {
	if domain.IsMissing(raw) {
		return nil
	}
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
