package embedding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/census-contrib/internal/timing"
)

// CSVSource reads rows from delimited text. Column 0 holds the soma_joinid and
// the remaining columns hold coordinates. A leading row whose first field is
// not an integer is treated as a header.
type CSVSource struct {
	r       *csv.Reader
	closer  io.Closer
	started bool
}

// OpenCSV opens a CSV file, or a TSV file when the extension is .tsv or .tab.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding: %w", err)
	}
	src := NewCSVSource(f, DelimiterFor(path))
	src.closer = f
	return src, nil
}

// NewCSVSource reads rows from r split on delim.
func NewCSVSource(r io.Reader, delim rune) *CSVSource {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	return &CSVSource{r: reader}
}

// DelimiterFor picks the field delimiter from a file name.
func DelimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// Next returns the next row or timing.Done at end of input.
func (s *CSVSource) Next() (Row, error) {
	for {
		rec, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, timing.Done
		}
		if err != nil {
			return Row{}, fmt.Errorf("failed to read embedding: %w", err)
		}
		line, _ := s.r.FieldPos(0)

		joinID, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			if !s.started {
				s.started = true
				continue
			}
			return Row{}, fmt.Errorf("line %d: invalid soma_joinid %q", line, rec[0])
		}
		s.started = true

		if len(rec) < 2 {
			return Row{}, fmt.Errorf("line %d: no embedding columns", line)
		}
		values := make([]float32, len(rec)-1)
		for i, field := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return Row{}, fmt.Errorf("line %d column %d: invalid value %q", line, i+2, field)
			}
			values[i] = float32(v)
		}
		return Row{JoinID: joinID, Values: values}, nil
	}
}

// Close releases the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
