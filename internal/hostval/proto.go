package hostval

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToProto converts v into a protobuf Struct envelope. It mirrors the tagged
// JSON form; integers and floats are carried as strings because
// google.protobuf.Value only has a double number type.
func ToProto(v any) (*structpb.Struct, error) {
	if v == nil {
		return taggedStruct(typeNothing, nil), nil
	}
	k, norm, err := Classify(v)
	if err != nil {
		return nil, err
	}
	var val *structpb.Value
	switch k {
	case KindString:
		val = structpb.NewStringValue(norm.(string))
	case KindInt:
		val = structpb.NewStringValue(strconv.FormatInt(norm.(int64), 10))
	case KindBool:
		val = structpb.NewBoolValue(norm.(bool))
	case KindFloat:
		val = structpb.NewStringValue(fmt.Sprintf("%016x", math.Float64bits(norm.(float64))))
	case KindBinary:
		val = structpb.NewStringValue(base64.StdEncoding.EncodeToString(norm.([]byte)))
	case KindDate:
		val = structpb.NewStringValue(norm.(time.Time).Format(time.RFC3339Nano))
	case KindList:
		list := norm.([]any)
		items := make([]*structpb.Value, len(list))
		for i, e := range list {
			s, err := ToProto(e)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			items[i] = structpb.NewStructValue(s)
		}
		val = structpb.NewListValue(&structpb.ListValue{Values: items})
	case KindRecord:
		rec := norm.(map[string]any)
		fields := make(map[string]*structpb.Value, len(rec))
		for key, e := range rec {
			if !utf8.ValidString(key) {
				return nil, fmt.Errorf("record key: %w", ErrInvalidText)
			}
			s, err := ToProto(e)
			if err != nil {
				return nil, fmt.Errorf("record[%q]: %w", key, err)
			}
			fields[key] = structpb.NewStructValue(s)
		}
		val = structpb.NewStructValue(&structpb.Struct{Fields: fields})
	}
	return taggedStruct(k.String(), val), nil
}

func taggedStruct(typ string, val *structpb.Value) *structpb.Struct {
	fields := map[string]*structpb.Value{"type": structpb.NewStringValue(typ)}
	if val != nil {
		fields["value"] = val
	}
	return &structpb.Struct{Fields: fields}
}

// FromProto is the inverse of ToProto.
func FromProto(s *structpb.Struct) (any, error) {
	if s == nil {
		return nil, fmt.Errorf("nil envelope")
	}
	typ := s.GetFields()["type"].GetStringValue()
	if typ == typeNothing {
		return nil, nil
	}
	k, err := ParseKind(typ)
	if err != nil {
		return nil, err
	}
	val, ok := s.GetFields()["value"]
	if !ok {
		return nil, fmt.Errorf("%s envelope has no value", k)
	}
	switch k {
	case KindString:
		return val.GetStringValue(), nil
	case KindInt:
		return strconv.ParseInt(val.GetStringValue(), 10, 64)
	case KindBool:
		return val.GetBoolValue(), nil
	case KindFloat:
		bits, err := strconv.ParseUint(val.GetStringValue(), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("float bits: %w", err)
		}
		return math.Float64frombits(bits), nil
	case KindBinary:
		return base64.StdEncoding.DecodeString(val.GetStringValue())
	case KindDate:
		return time.Parse(time.RFC3339Nano, val.GetStringValue())
	case KindList:
		items := val.GetListValue().GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = FromProto(item.GetStructValue()); err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		return out, nil
	case KindRecord:
		fields := val.GetStructValue().GetFields()
		out := make(map[string]any, len(fields))
		for key, field := range fields {
			if out[key], err = FromProto(field.GetStructValue()); err != nil {
				return nil, fmt.Errorf("record[%q]: %w", key, err)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, k)
}

// MarshalProto encodes v as protobuf wire bytes.
func MarshalProto(v any) ([]byte, error) {
	s, err := ToProto(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// UnmarshalProto decodes wire bytes produced by MarshalProto.
func UnmarshalProto(data []byte) (any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid protobuf envelope: %w", err)
	}
	return FromProto(&s)
}
