// Package npy implements a minimal reader/writer for NumPy's .npy array
// format, covering exactly the subset bzclust's I/O contract needs: dense
// float64, int32, and int8 arrays up to 4 dimensions, little-endian,
// C (row-major) order, format version 1.0. No third-party library in the
// retrieved corpus covers this format, so it is a small hand-written
// stdlib-only (encoding/binary) codec rather than a wired dependency.
package npy

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrUnsupportedDType is returned for any dtype other than the three this
// package handles.
var ErrUnsupportedDType = errors.New("npy: unsupported dtype")

// ErrMalformedHeader is returned when the magic string, version, or header
// dict cannot be parsed.
var ErrMalformedHeader = errors.New("npy: malformed header")

const magic = "\x93NUMPY"

// DType identifies the element type of an Array.
type DType int

const (
	Float64 DType = iota
	Int32
	Int8
)

func (d DType) descr() string {
	switch d {
	case Float64:
		return "<f8"
	case Int32:
		return "<i4"
	case Int8:
		return "|i1"
	default:
		return ""
	}
}

func (d DType) itemSize() int {
	switch d {
	case Float64:
		return 8
	case Int32:
		return 4
	case Int8:
		return 1
	default:
		return 0
	}
}

// Array is a dense row-major array with up to 4 dimensions. Exactly one of
// Float64Data/Int32Data/Int8Data is populated, matching DType.
type Array struct {
	DType      DType
	Shape      []int
	Float64Data []float64
	Int32Data   []int32
	Int8Data    []int8
}

// NumElements returns the product of Shape.
func (a *Array) NumElements() int {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	return n
}

// WriteFile writes arr to path in .npy format.
func WriteFile(path string, arr *Array) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npy: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := Write(w, arr); err != nil {
		return err
	}
	return w.Flush()
}

// Write encodes arr to w in .npy format.
func Write(w io.Writer, arr *Array) error {
	if len(arr.Shape) == 0 || len(arr.Shape) > 4 {
		return fmt.Errorf("%w: shape rank %d outside [1,4]", ErrMalformedHeader, len(arr.Shape))
	}
	descr := arr.DType.descr()
	if descr == "" {
		return ErrUnsupportedDType
	}

	shapeStr := make([]string, len(arr.Shape))
	for i, s := range arr.Shape {
		shapeStr[i] = strconv.Itoa(s)
	}
	tupleBody := strings.Join(shapeStr, ", ")
	if len(arr.Shape) == 1 {
		tupleBody += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, tupleBody)

	// Header length must align total preamble to a multiple of 64 bytes.
	const preambleFixed = len(magic) + 2 + 2 // magic + version + 2-byte header-len field
	padLen := 64 - (preambleFixed+len(dict)+1)%64
	if padLen == 64 {
		padLen = 0
	}
	header := dict + strings.Repeat(" ", padLen) + "\n"

	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := w.Write([]byte(header)); err != nil {
		return err
	}

	switch arr.DType {
	case Float64:
		return binary.Write(w, binary.LittleEndian, arr.Float64Data)
	case Int32:
		return binary.Write(w, binary.LittleEndian, arr.Int32Data)
	case Int8:
		return binary.Write(w, binary.LittleEndian, arr.Int8Data)
	default:
		return ErrUnsupportedDType
	}
}

// ReadFile reads a .npy file from path.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npy: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Read decodes an .npy array from r.
func Read(r io.Reader) (*Array, error) {
	var magicBuf [6]byte
	if _, err := io.ReadFull(r, magicBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if string(magicBuf[:]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedHeader)
	}
	var version [2]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if version[0] != 1 {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrMalformedHeader, version[0], version[1])
	}
	var headerLen uint16
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	headerBuf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	descr, shape, err := parseHeader(string(headerBuf))
	if err != nil {
		return nil, err
	}

	arr := &Array{Shape: shape}
	switch descr {
	case "<f8":
		arr.DType = Float64
	case "<i4":
		arr.DType = Int32
	case "|i1", "<i1":
		arr.DType = Int8
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, descr)
	}

	n := arr.NumElements()
	switch arr.DType {
	case Float64:
		arr.Float64Data = make([]float64, n)
		if err := binary.Read(r, binary.LittleEndian, arr.Float64Data); err != nil {
			return nil, fmt.Errorf("npy: read data: %w", err)
		}
	case Int32:
		arr.Int32Data = make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, arr.Int32Data); err != nil {
			return nil, fmt.Errorf("npy: read data: %w", err)
		}
	case Int8:
		arr.Int8Data = make([]int8, n)
		if err := binary.Read(r, binary.LittleEndian, arr.Int8Data); err != nil {
			return nil, fmt.Errorf("npy: read data: %w", err)
		}
	}
	return arr, nil
}

// parseHeader extracts descr and shape from the Python-literal dict in the
// .npy header. This is a small ad-hoc parser, not a general Python literal
// evaluator: it handles exactly the dict shape numpy.save emits.
func parseHeader(h string) (descr string, shape []int, err error) {
	descr, err = extractQuoted(h, "'descr':")
	if err != nil {
		return "", nil, err
	}

	shapeStart := strings.Index(h, "'shape':")
	if shapeStart < 0 {
		return "", nil, fmt.Errorf("%w: no shape key", ErrMalformedHeader)
	}
	rest := h[shapeStart+len("'shape':"):]
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return "", nil, fmt.Errorf("%w: malformed shape tuple", ErrMalformedHeader)
	}
	body := strings.TrimSpace(rest[open+1 : closeIdx])
	body = strings.TrimSuffix(body, ",")
	if body == "" {
		return descr, nil, fmt.Errorf("%w: empty shape", ErrMalformedHeader)
	}
	parts := strings.Split(body, ",")
	shape = make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, convErr := strconv.Atoi(p)
		if convErr != nil {
			return "", nil, fmt.Errorf("%w: bad shape element %q", ErrMalformedHeader, p)
		}
		shape = append(shape, v)
	}
	if len(shape) == 0 || len(shape) > 4 {
		return "", nil, fmt.Errorf("%w: shape rank %d outside [1,4]", ErrMalformedHeader, len(shape))
	}
	return descr, shape, nil
}

func extractQuoted(h, key string) (string, error) {
	idx := strings.Index(h, key)
	if idx < 0 {
		return "", fmt.Errorf("%w: missing key %q", ErrMalformedHeader, key)
	}
	rest := h[idx+len(key):]
	first := strings.IndexByte(rest, '\'')
	if first < 0 {
		return "", fmt.Errorf("%w: malformed value for %q", ErrMalformedHeader, key)
	}
	rest = rest[first+1:]
	second := strings.IndexByte(rest, '\'')
	if second < 0 {
		return "", fmt.Errorf("%w: malformed value for %q", ErrMalformedHeader, key)
	}
	return rest[:second], nil
}
