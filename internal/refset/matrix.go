package refset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedType is returned for matrix element types other than
	// single-channel u, i, f or d.
	ErrUnsupportedType = errors.New("unsupported matrix element type")
	// ErrMalformed is returned when a stored matrix cannot be parsed.
	ErrMalformed = errors.New("malformed matrix")
)

// Element type codes used by OpenCV FileStorage.
const (
	TypeUint8   = "u"
	TypeInt32   = "i"
	TypeFloat32 = "f"
	TypeFloat64 = "d"
)

// Matrix is a dense single-channel matrix as stored in a FileStorage node.
type Matrix struct {
	Rows int
	Cols int
	Type string
	Data []float64
}

func (m Matrix) validate() error {
	switch m.Type {
	case TypeUint8, TypeInt32, TypeFloat32, TypeFloat64:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, m.Type)
	}
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrMalformed, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%w: %d values for %dx%d", ErrMalformed, len(m.Data), m.Rows, m.Cols)
	}
	return nil
}

// formatValue renders v the way the element type stores it.
func formatValue(v float64, typ string) string {
	switch typ {
	case TypeUint8, TypeInt32:
		return strconv.FormatInt(int64(math.Round(v)), 10)
	case TypeFloat32:
		return strconv.FormatFloat(v, 'g', -1, 32)
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// parseValues parses whitespace- or comma-separated numbers. OpenCV writes
// floats such as "255." which strconv accepts.
func parseValues(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// labelMatrix converts labels into an N x 1 int32 matrix.
func labelMatrix(labels []int32) Matrix {
	m := Matrix{Rows: len(labels), Cols: 1, Type: TypeInt32, Data: make([]float64, len(labels))}
	if len(labels) == 0 {
		m.Cols = 0
	}
	for i, l := range labels {
		m.Data[i] = float64(l)
	}
	return m
}

// labelsFrom accepts either a column or a row vector of labels. Float labels
// are accepted because some tools save classifications as float.
func labelsFrom(m Matrix) ([]int32, error) {
	if m.Rows > 1 && m.Cols > 1 {
		return nil, fmt.Errorf("%w: classifications must be a vector, got %dx%d", ErrMalformed, m.Rows, m.Cols)
	}
	out := make([]int32, len(m.Data))
	for i, v := range m.Data {
		out[i] = int32(math.Round(v))
	}
	return out, nil
}
