// Package hostval models the dynamic values a host pipeline hands to
// secretval: the closed set of kinds a secret may hold, classification of
// arbitrary Go values into that set, and the lossless codecs used on the
// data channel.
package hostval

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Kind identifies one of the eight payload kinds a secret can carry.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindBool
	KindFloat
	KindBinary
	KindDate
	KindList
	KindRecord
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindInt:     "int",
	KindBool:    "bool",
	KindFloat:   "float",
	KindBinary:  "binary",
	KindDate:    "date",
	KindList:    "list",
	KindRecord:  "record",
}

// Kinds lists every valid kind in declaration order.
var Kinds = []Kind{KindString, KindInt, KindBool, KindFloat, KindBinary, KindDate, KindList, KindRecord}

// String returns the kind identifier used in templates and configuration.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the eight payload kinds.
func (k Kind) Valid() bool {
	return k >= KindString && k <= KindRecord
}

// Sized reports whether values of this kind have a natural length.
func (k Kind) Sized() bool {
	switch k {
	case KindString, KindBinary, KindList, KindRecord:
		return true
	default:
		return false
	}
}

// ParseKind maps an identifier back to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", name)
}

var (
	// ErrNothing is returned when there is no value to classify.
	ErrNothing = errors.New("no value present")
	// ErrUnsupported is returned for Go values outside the closed kind set.
	ErrUnsupported = errors.New("unsupported value kind")
	// ErrInvalidText is returned for text that is not valid UTF-8. Such
	// payloads belong in a []byte.
	ErrInvalidText = fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupported)
)

// Classify determines the kind of v and returns it normalised: integers
// become int64, float32 becomes float64. Lists and records are returned
// as-is; their elements are not required to be classifiable.
func Classify(v any) (Kind, any, error) {
	switch x := v.(type) {
	case nil:
		return KindInvalid, nil, ErrNothing
	case string:
		if !utf8.ValidString(x) {
			return KindInvalid, nil, ErrInvalidText
		}
		return KindString, x, nil
	case bool:
		return KindBool, x, nil
	case int:
		return KindInt, int64(x), nil
	case int8:
		return KindInt, int64(x), nil
	case int16:
		return KindInt, int64(x), nil
	case int32:
		return KindInt, int64(x), nil
	case int64:
		return KindInt, x, nil
	case uint:
		return classifyUnsigned(uint64(x))
	case uint8:
		return KindInt, int64(x), nil
	case uint16:
		return KindInt, int64(x), nil
	case uint32:
		return KindInt, int64(x), nil
	case uint64:
		return classifyUnsigned(x)
	case float32:
		return KindFloat, float64(x), nil
	case float64:
		return KindFloat, x, nil
	case []byte:
		if x == nil {
			x = []byte{}
		}
		return KindBinary, x, nil
	case time.Time:
		return KindDate, x, nil
	case []any:
		if x == nil {
			x = []any{}
		}
		return KindList, x, nil
	case map[string]any:
		if x == nil {
			x = map[string]any{}
		}
		return KindRecord, x, nil
	default:
		return KindInvalid, nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func classifyUnsigned(u uint64) (Kind, any, error) {
	if u > math.MaxInt64 {
		return KindInvalid, nil, fmt.Errorf("%w: unsigned integer %d overflows int64", ErrUnsupported, u)
	}
	return KindInt, int64(u), nil
}

// Len returns the natural length of a normalised value, or false when its
// kind has none.
func Len(k Kind, v any) (int, bool) {
	switch k {
	case KindString:
		return runeCount(v.(string)), true
	case KindBinary:
		return len(v.([]byte)), true
	case KindList:
		return len(v.([]any)), true
	case KindRecord:
		return len(v.(map[string]any)), true
	default:
		return 0, false
	}
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// Clone returns a deep copy of a list or record so the copy shares no
// mutable state with the caller's value. Other values are returned as-is,
// except byte slices, which are copied.
func Clone(v any) any {
	switch x := v.(type) {
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Clone(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Clone(e)
		}
		return out
	default:
		return v
	}
}
