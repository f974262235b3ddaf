package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"mini-bridge/message"
)

// JSONCodec wraps every value in {"kind": N, "value": {...}}.
// It is meant for debugging a bridge; samples that are NaN or infinite cannot
// be represented.
type JSONCodec struct{}

type envelope struct {
	Kind  message.Kind    `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (c *JSONCodec) Encode(v message.Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrMalformed)
	}
	if !v.Kind().Known() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint16(v.Kind()))
	}
	if err := checkVariant(v); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: v.Kind(), Value: raw})
}

func (c *JSONCodec) Decode(data []byte) (message.Value, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ptr, ok := message.New(env.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint16(env.Kind))
	}
	if len(env.Value) > 0 {
		dec := json.NewDecoder(bytes.NewReader(env.Value))
		dec.DisallowUnknownFields()
		if err := dec.Decode(ptr); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Kind, err)
		}
	}
	v := reflect.ValueOf(ptr).Elem().Interface().(message.Value)
	if err := checkVariant(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
