package embedding

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// TripletHeader is the first line of every triplet file.
var TripletHeader = []string{"soma_joinid", "feature", "value"}

// Writer streams rows as (soma_joinid, feature, value) triplets.
type Writer struct {
	w        *csv.Writer
	closer   io.Closer
	triplets int
	record   []string
}

// CreateWriter creates (or truncates) the file at path.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path) //nolint:gosec // G304: path is derived from operator input
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes triplets to out, starting with the header.
func NewWriter(out io.Writer) (*Writer, error) {
	w := &Writer{w: csv.NewWriter(out), record: make([]string, 3)}
	if err := w.w.Write(TripletHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

// WriteBlock appends one triplet per coordinate of each row.
func (w *Writer) WriteBlock(rows []Row) error {
	for _, row := range rows {
		w.record[0] = strconv.FormatInt(row.JoinID, 10)
		for j, v := range row.Values {
			w.record[1] = strconv.Itoa(j)
			w.record[2] = strconv.FormatFloat(float64(v), 'g', -1, 32)
			if err := w.w.Write(w.record); err != nil {
				return fmt.Errorf("failed to write triplet: %w", err)
			}
			w.triplets++
		}
	}
	return nil
}

// Triplets returns the number of triplets written.
func (w *Writer) Triplets() int {
	return w.triplets
}

// Close flushes buffered output and closes the file, if any.
func (w *Writer) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
