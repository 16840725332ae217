package hostval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

// envelope is the tagged JSON form of a host value. The tag keeps the kind
// so decoding never has to guess (an int stays an int, a date stays a date,
// a float keeps its exact bit pattern including NaN payloads).
type envelope struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

type rawEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

const typeNothing = "nothing"

// EncodeJSON returns the tagged JSON encoding of v. Record keys are emitted
// in sorted order, so equal values always encode to identical bytes.
func EncodeJSON(v any) ([]byte, error) {
	env, err := toEnvelope(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeJSON parses the tagged JSON encoding produced by EncodeJSON.
func DecodeJSON(data []byte) (any, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid value envelope: %w", err)
	}
	return fromEnvelope(raw)
}

func toEnvelope(v any) (envelope, error) {
	if v == nil {
		return envelope{Type: typeNothing}, nil
	}
	k, norm, err := Classify(v)
	if err != nil {
		return envelope{}, err
	}
	switch k {
	case KindFloat:
		return envelope{Type: k.String(), Value: fmt.Sprintf("%016x", math.Float64bits(norm.(float64)))}, nil
	case KindDate:
		return envelope{Type: k.String(), Value: norm.(time.Time).Format(time.RFC3339Nano)}, nil
	case KindList:
		list := norm.([]any)
		out := make([]envelope, len(list))
		for i, e := range list {
			if out[i], err = toEnvelope(e); err != nil {
				return envelope{}, fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		return envelope{Type: k.String(), Value: out}, nil
	case KindRecord:
		rec := norm.(map[string]any)
		out := make(map[string]envelope, len(rec))
		for key, e := range rec {
			if !utf8.ValidString(key) {
				return envelope{}, fmt.Errorf("record key: %w", ErrInvalidText)
			}
			if out[key], err = toEnvelope(e); err != nil {
				return envelope{}, fmt.Errorf("record[%q]: %w", key, err)
			}
		}
		return envelope{Type: k.String(), Value: out}, nil
	default:
		return envelope{Type: k.String(), Value: norm}, nil
	}
}

func fromEnvelope(raw rawEnvelope) (any, error) {
	if raw.Type == typeNothing {
		return nil, nil
	}
	k, err := ParseKind(raw.Type)
	if err != nil {
		return nil, err
	}
	if len(raw.Value) == 0 {
		return nil, fmt.Errorf("%s envelope has no value", k)
	}
	switch k {
	case KindString:
		var s string
		err = json.Unmarshal(raw.Value, &s)
		return s, err
	case KindInt:
		var n int64
		err = json.Unmarshal(raw.Value, &n)
		return n, err
	case KindBool:
		var b bool
		err = json.Unmarshal(raw.Value, &b)
		return b, err
	case KindFloat:
		var s string
		if err = json.Unmarshal(raw.Value, &s); err != nil {
			return nil, err
		}
		bits, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("float bits %q: %w", s, err)
		}
		return math.Float64frombits(bits), nil
	case KindBinary:
		var b []byte
		if err = json.Unmarshal(raw.Value, &b); err != nil {
			return nil, err
		}
		if b == nil {
			b = []byte{}
		}
		return b, nil
	case KindDate:
		var s string
		if err = json.Unmarshal(raw.Value, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case KindList:
		var items []rawEnvelope
		if err = json.Unmarshal(raw.Value, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = fromEnvelope(item); err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		return out, nil
	case KindRecord:
		var fields map[string]rawEnvelope
		if err = json.Unmarshal(raw.Value, &fields); err != nil {
			return nil, err
		}
		out := make(map[string]any, len(fields))
		for key, field := range fields {
			if out[key], err = fromEnvelope(field); err != nil {
				return nil, fmt.Errorf("record[%q]: %w", key, err)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, k)
}

// DecodePlainJSON reads an untagged JSON document as a host value. Numbers
// without a fraction or exponent become int64, all others float64.
func DecodePlainJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalisePlain(v)
}

func normalisePlain(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return x.Float64()
	case []any:
		for i, e := range x {
			n, err := normalisePlain(e)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	case map[string]any:
		for k, e := range x {
			n, err := normalisePlain(e)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	default:
		return v, nil
	}
}

// EncodePlainJSON writes a host value as untagged JSON. Non-finite floats
// are written as the strings "NaN", "+Inf" and "-Inf".
func EncodePlainJSON(v any) ([]byte, error) {
	return json.Marshal(plain(v))
}

func plain(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return x
	case float32:
		return plain(float64(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	default:
		return v
	}
}
