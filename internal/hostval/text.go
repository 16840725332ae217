package hostval

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

// Text returns the textual form of a normalised value. This is what partial
// redaction and the secret_string template variable operate on.
func Text(k Kind, v any) (string, error) {
	switch k {
	case KindString:
		return v.(string), nil
	case KindInt:
		return strconv.FormatInt(v.(int64), 10), nil
	case KindBool:
		return strconv.FormatBool(v.(bool)), nil
	case KindFloat:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
	case KindBinary:
		b := v.([]byte)
		if utf8.Valid(b) {
			return string(b), nil
		}
		return hex.EncodeToString(b), nil
	case KindDate:
		return v.(time.Time).Format(time.RFC3339Nano), nil
	case KindList, KindRecord:
		data, err := EncodeJSON(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, k)
	}
}

// CanonicalBytes returns the raw byte representation used for equality.
// Two values of the same kind are equal exactly when their canonical bytes
// are equal.
func CanonicalBytes(k Kind, v any) ([]byte, error) {
	switch k {
	case KindString:
		return []byte(v.(string)), nil
	case KindInt:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v.(int64)))
		return b, nil
	case KindBool:
		if v.(bool) {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindFloat:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(v.(float64)))
		return b, nil
	case KindBinary:
		src := v.([]byte)
		b := make([]byte, len(src))
		copy(b, src)
		return b, nil
	case KindDate:
		return v.(time.Time).MarshalBinary()
	case KindList, KindRecord:
		return EncodeJSON(v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, k)
	}
}

// FromCanonical is the inverse of CanonicalBytes for scalar kinds. Lists and
// records are not stored canonically and are rejected.
func FromCanonical(k Kind, b []byte) (any, error) {
	switch k {
	case KindString:
		return string(b), nil
	case KindInt:
		if len(b) != 8 {
			return nil, fmt.Errorf("int payload has %d bytes", len(b))
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case KindBool:
		if len(b) != 1 {
			return nil, fmt.Errorf("bool payload has %d bytes", len(b))
		}
		return b[0] == 1, nil
	case KindFloat:
		if len(b) != 8 {
			return nil, fmt.Errorf("float payload has %d bytes", len(b))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case KindBinary:
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	case KindDate:
		var t time.Time
		if err := t.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %s has no canonical scalar form", ErrUnsupported, k)
	}
}
