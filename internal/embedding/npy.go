package embedding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/census-contrib/internal/timing"
)

var npyMagic = []byte("\x93NUMPY")

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// NPYArray is the decoded header of a .npy file positioned at its data.
type NPYArray struct {
	Kind     byte // 'f', 'i' or 'u'
	ItemSize int
	Order    binary.ByteOrder
	Shape    []int

	r *bufio.Reader
}

// ReadNPYHeader parses the header of a NumPy .npy stream (format versions
// 1.0 to 3.0). Only C-ordered numeric arrays are accepted.
func ReadNPYHeader(r io.Reader) (*NPYArray, error) {
	br := bufio.NewReader(r)

	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return nil, fmt.Errorf("npy: short header: %w", err)
	}
	if !bytes.Equal(prefix[:len(npyMagic)], npyMagic) {
		return nil, errors.New("npy: bad magic string")
	}

	var headerLen int
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("npy: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("npy: unsupported format version %d", major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("npy: short header: %w", err)
	}

	arr, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}
	arr.r = br
	return arr, nil
}

func parseNPYHeader(header string) (*NPYArray, error) {
	m := npyDescrRe.FindStringSubmatch(header)
	if m == nil {
		return nil, errors.New("npy: header has no descr")
	}
	descr := m[1]
	if len(descr) < 3 {
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}

	arr := &NPYArray{Kind: descr[1]}
	switch descr[0] {
	case '<', '|', '=':
		arr.Order = binary.LittleEndian
	case '>':
		arr.Order = binary.BigEndian
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}
	arr.ItemSize = size

	switch {
	case arr.Kind == 'f' && (size == 4 || size == 8):
	case (arr.Kind == 'i' || arr.Kind == 'u') && (size == 1 || size == 2 || size == 4 || size == 8):
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", descr)
	}

	if f := npyFortranRe.FindStringSubmatch(header); f != nil && f[1] == "True" {
		return nil, errors.New("npy: fortran-ordered arrays are not supported")
	}

	s := npyShapeRe.FindStringSubmatch(header)
	if s == nil {
		return nil, errors.New("npy: header has no shape")
	}
	for _, dim := range strings.Split(s[1], ",") {
		dim = strings.TrimSpace(dim)
		if dim == "" {
			continue
		}
		n, err := strconv.Atoi(dim)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("npy: invalid shape %q", s[1])
		}
		arr.Shape = append(arr.Shape, n)
	}
	return arr, nil
}

// ReadFloats reads len(dst) elements converted to float32.
func (a *NPYArray) ReadFloats(dst []float32) error {
	buf := make([]byte, a.ItemSize*len(dst))
	if _, err := io.ReadFull(a.r, buf); err != nil {
		return fmt.Errorf("npy: truncated data: %w", err)
	}
	for i := range dst {
		v, err := a.decode(buf[i*a.ItemSize:])
		if err != nil {
			return err
		}
		dst[i] = float32(v)
	}
	return nil
}

// ReadInt reads one integer element.
func (a *NPYArray) ReadInt() (int64, error) {
	if a.Kind == 'f' {
		return 0, errors.New("npy: expected an integer array")
	}
	buf := make([]byte, a.ItemSize)
	if _, err := io.ReadFull(a.r, buf); err != nil {
		return 0, fmt.Errorf("npy: truncated data: %w", err)
	}
	if a.Kind == 'u' && a.ItemSize == 8 {
		u := a.Order.Uint64(buf)
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("npy: value %d overflows int64", u)
		}
		return int64(u), nil
	}
	v, err := a.decode(buf)
	return int64(v), err
}

func (a *NPYArray) decode(b []byte) (float64, error) {
	switch a.Kind {
	case 'f':
		if a.ItemSize == 4 {
			return float64(math.Float32frombits(a.Order.Uint32(b))), nil
		}
		return math.Float64frombits(a.Order.Uint64(b)), nil
	case 'i':
		switch a.ItemSize {
		case 1:
			return float64(int8(b[0])), nil
		case 2:
			return float64(int16(a.Order.Uint16(b))), nil
		case 4:
			return float64(int32(a.Order.Uint32(b))), nil
		default:
			return float64(int64(a.Order.Uint64(b))), nil
		}
	case 'u':
		switch a.ItemSize {
		case 1:
			return float64(b[0]), nil
		case 2:
			return float64(a.Order.Uint16(b)), nil
		case 4:
			return float64(a.Order.Uint32(b)), nil
		default:
			return float64(a.Order.Uint64(b)), nil
		}
	}
	return 0, fmt.Errorf("npy: unsupported kind %q", a.Kind)
}

// NPYSource pairs a 1-D joinid array with a 2-D coordinate array.
type NPYSource struct {
	joinIDs   *NPYArray
	coords    *NPYArray
	nRows     int
	nFeatures int
	read      int
	closers   []io.Closer
}

// OpenNPY opens the joinid and embedding .npy files.
func OpenNPY(joinIDPath, embeddingPath string) (*NPYSource, error) {
	jf, err := os.Open(joinIDPath) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open joinids: %w", err)
	}
	ef, err := os.Open(embeddingPath) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		_ = jf.Close()
		return nil, fmt.Errorf("failed to open embedding: %w", err)
	}

	src, err := NewNPYSource(jf, ef)
	if err != nil {
		_ = jf.Close()
		_ = ef.Close()
		return nil, err
	}
	src.closers = []io.Closer{jf, ef}
	return src, nil
}

// NewNPYSource reads headers from both streams and checks they agree.
func NewNPYSource(joinIDs, embedding io.Reader) (*NPYSource, error) {
	ja, err := ReadNPYHeader(joinIDs)
	if err != nil {
		return nil, fmt.Errorf("joinids: %w", err)
	}
	ea, err := ReadNPYHeader(embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	if ja.Kind == 'f' {
		return nil, errors.New("joinids: expected an integer array")
	}
	if len(ja.Shape) != 1 && !(len(ja.Shape) == 2 && ja.Shape[1] == 1) {
		return nil, fmt.Errorf("joinids: expected a 1-D array, got shape %v", ja.Shape)
	}
	if ea.Kind != 'f' {
		return nil, errors.New("embedding: expected a float array")
	}
	if len(ea.Shape) != 2 {
		return nil, fmt.Errorf("embedding: expected a 2-D array, got shape %v", ea.Shape)
	}
	if ja.Shape[0] != ea.Shape[0] {
		return nil, fmt.Errorf("joinids has %d rows but embedding has %d", ja.Shape[0], ea.Shape[0])
	}

	return &NPYSource{
		joinIDs:   ja,
		coords:    ea,
		nRows:     ea.Shape[0],
		nFeatures: ea.Shape[1],
	}, nil
}

// Shape returns the number of rows and features.
func (s *NPYSource) Shape() (rows, features int) {
	return s.nRows, s.nFeatures
}

// Next returns the next row or timing.Done after the last one.
func (s *NPYSource) Next() (Row, error) {
	if s.read >= s.nRows {
		return Row{}, timing.Done
	}
	id, err := s.joinIDs.ReadInt()
	if err != nil {
		return Row{}, fmt.Errorf("joinids row %d: %w", s.read, err)
	}
	values := make([]float32, s.nFeatures)
	if err := s.coords.ReadFloats(values); err != nil {
		return Row{}, fmt.Errorf("embedding row %d: %w", s.read, err)
	}
	s.read++
	return Row{JoinID: id, Values: values}, nil
}

// Close releases both files.
func (s *NPYSource) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
