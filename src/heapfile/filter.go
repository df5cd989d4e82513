package heapfile

import (
	"cmp"
	"math"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/pkg/utils"
)

type Datatype int

const (
	String Datatype = iota
	Integer
	Float
)

const (
	IntegerSize = 4
	FloatSize   = 4
)

func (d Datatype) String() string {
	switch d {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

func ParseDatatype(s string) (Datatype, error) {
	switch strings.ToLower(s) {
	case "string", "str", "s":
		return String, nil
	case "integer", "int", "i":
		return Integer, nil
	case "float", "f":
		return Float, nil
	default:
		return 0, errors.Wrapf(ErrBadScanParameter, "datatype %q", s)
	}
}

type Operator int

const (
	LT Operator = iota
	LTE
	EQ
	GTE
	GT
	NE
)

func (o Operator) String() string {
	switch o {
	case LT:
		return "<"
	case LTE:
		return "<="
	case EQ:
		return "="
	case GTE:
		return ">="
	case GT:
		return ">"
	case NE:
		return "!="
	default:
		return "?"
	}
}

func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(s) {
	case "<", "lt":
		return LT, nil
	case "<=", "lte", "le":
		return LTE, nil
	case "=", "==", "eq":
		return EQ, nil
	case ">=", "gte", "ge":
		return GTE, nil
	case ">", "gt":
		return GT, nil
	case "!=", "<>", "ne":
		return NE, nil
	default:
		return 0, errors.Wrapf(ErrBadScanParameter, "operator %q", s)
	}
}

// Filter selects records by comparing Length bytes at Offset with the
// first Length bytes of Pattern.
type Filter struct {
	Offset  int
	Length  int
	Type    Datatype
	Pattern []byte
	Op      Operator
}

func (f Filter) validate() error {
	switch {
	case f.Offset < 0:
		return errors.Wrapf(ErrBadScanParameter, "offset %d", f.Offset)
	case f.Length < 1:
		return errors.Wrapf(ErrBadScanParameter, "length %d", f.Length)
	case f.Op < LT || f.Op > NE:
		return errors.Wrapf(ErrBadScanParameter, "operator %d", f.Op)
	case len(f.Pattern) < f.Length:
		return errors.Wrapf(
			ErrBadScanParameter,
			"pattern is %d bytes, length is %d", len(f.Pattern), f.Length,
		)
	}

	switch f.Type {
	case String:
	case Integer:
		if f.Length != IntegerSize {
			return errors.Wrapf(ErrBadScanParameter, "integer length %d", f.Length)
		}
	case Float:
		if f.Length != FloatSize {
			return errors.Wrapf(ErrBadScanParameter, "float length %d", f.Length)
		}
	default:
		return errors.Wrapf(ErrBadScanParameter, "datatype %d", f.Type)
	}

	return nil
}

// unordered is returned by compare when the values cannot be ordered.
const unordered = 2

// match reports whether rec satisfies the filter. Records too short to
// hold the attribute never match.
func (f Filter) match(rec []byte) bool {
	if f.Offset > len(rec)-f.Length {
		return false
	}

	attr := rec[f.Offset : f.Offset+f.Length]
	pattern := f.Pattern[:f.Length]

	var diff int
	switch f.Type {
	case Integer:
		diff = cmp.Compare(utils.BytesToInt32(attr), utils.BytesToInt32(pattern))
	case Float:
		diff = compareFloat32(utils.BytesToFloat32(attr), utils.BytesToFloat32(pattern))
	default:
		diff = compareCString(attr, pattern)
	}

	if diff == unordered {
		return f.Op == NE
	}

	switch f.Op {
	case LT:
		return diff < 0
	case LTE:
		return diff <= 0
	case EQ:
		return diff == 0
	case GTE:
		return diff >= 0
	case GT:
		return diff > 0
	case NE:
		return diff != 0
	default:
		return false
	}
}

func compareFloat32(a, b float32) int {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return unordered
	}

	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareCString compares like strncmp: bytes are unsigned and the
// comparison stops at the first NUL present in both.
func compareCString(a, b []byte) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		case a[i] == 0:
			return 0
		}
	}

	return 0
}
