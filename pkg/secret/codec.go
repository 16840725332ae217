package secret

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/systmms/secretval/internal/hostval"
	"github.com/systmms/secretval/internal/secure"
	"github.com/systmms/secretval/internal/template"
)

// EnvelopeKey is the single top-level key of a data-channel envelope.
const EnvelopeKey = "$secret"

// The data channel carries the payload verbatim so that a secret survives
// hand-off between pipeline stages. It is the deliberate counterpart of the
// presentation channel, which never carries content.
type wireEnvelope struct {
	Secret *wireSecret `json:"$secret"`
}

type wireSecret struct {
	Kind     string          `json:"kind"`
	Value    json.RawMessage `json:"value"`
	Template string          `json:"template,omitempty"`
}

// MarshalJSON encodes the secret as {"$secret": {"kind": ..., "value": ...}}
// with the payload in the lossless tagged form.
func (v *Value) MarshalJSON() ([]byte, error) {
	payload, err := Reveal(v)
	if err != nil {
		return nil, err
	}
	tagged, err := hostval.EncodeJSON(payload)
	if err != nil {
		return nil, err
	}
	defer secure.Wipe(tagged)

	env := wireEnvelope{Secret: &wireSecret{Kind: v.kind.String(), Value: tagged}}
	if v.override != nil {
		env.Secret.Template = v.override.Source()
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes an envelope produced by MarshalJSON into v. A live
// secret previously held by v is destroyed first.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	v.adopt(decoded)
	return nil
}

// Decode parses a data-channel JSON envelope.
func Decode(data []byte, opts ...Option) (*Value, error) {
	var env wireEnvelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil || env.Secret == nil {
		return nil, ErrNotEnvelope
	}
	payload, err := hostval.DecodeJSON(env.Secret.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid secret payload: %w", err)
	}
	return fromWire(env.Secret.Kind, env.Secret.Template, payload, opts)
}

// MarshalProto encodes the secret as a protobuf Struct envelope with the
// same shape as the JSON form.
func (v *Value) MarshalProto() ([]byte, error) {
	payload, err := Reveal(v)
	if err != nil {
		return nil, err
	}
	inner, err := hostval.ToProto(payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]*structpb.Value{
		"kind":  structpb.NewStringValue(v.kind.String()),
		"value": structpb.NewStructValue(inner),
	}
	if v.override != nil {
		fields["template"] = structpb.NewStringValue(v.override.Source())
	}
	env := &structpb.Struct{Fields: map[string]*structpb.Value{
		EnvelopeKey: structpb.NewStructValue(&structpb.Struct{Fields: fields}),
	}}
	return proto.Marshal(env)
}

// UnmarshalProto decodes an envelope produced by MarshalProto into v.
func (v *Value) UnmarshalProto(data []byte) error {
	decoded, err := DecodeProto(data)
	if err != nil {
		return err
	}
	v.adopt(decoded)
	return nil
}

// DecodeProto parses a protobuf envelope.
func DecodeProto(data []byte, opts ...Option) (*Value, error) {
	var env structpb.Struct
	if err := proto.Unmarshal(data, &env); err != nil {
		return nil, ErrNotEnvelope
	}
	body := env.GetFields()[EnvelopeKey].GetStructValue()
	if body == nil || len(env.GetFields()) != 1 {
		return nil, ErrNotEnvelope
	}
	fields := body.GetFields()
	inner := fields["value"].GetStructValue()
	if inner == nil {
		return nil, ErrNotEnvelope
	}
	payload, err := hostval.FromProto(inner)
	if err != nil {
		return nil, fmt.Errorf("invalid secret payload: %w", err)
	}
	return fromWire(fields["kind"].GetStringValue(), fields["template"].GetStringValue(), payload, opts)
}

func fromWire(kind, tmplText string, payload any, opts []Option) (*Value, error) {
	want, err := hostval.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEnvelope, err)
	}
	if tmplText != "" {
		tmpl, err := template.Compile(tmplText)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTemplate(tmpl))
	}
	v, err := Wrap(payload, opts...)
	if err != nil {
		return nil, err
	}
	if v.kind != want {
		v.Destroy()
		return nil, fmt.Errorf("%w: declared kind %s does not match payload kind %s", ErrNotEnvelope, want, v.kind)
	}
	return v, nil
}

// adopt moves the state of src into v, destroying whatever v held.
func (v *Value) adopt(src *Value) {
	v.Destroy()

	v.mu.Lock()
	defer v.mu.Unlock()
	src.mu.Lock()
	defer src.mu.Unlock()

	v.kind = src.kind
	v.length, v.sized = src.length, src.sized
	v.loc = src.loc
	v.override = src.override
	v.buf, v.composite = src.buf, src.composite
	v.destroyed = false

	// src no longer owns the storage.
	src.buf, src.composite = nil, nil
	src.destroyed = true
}
