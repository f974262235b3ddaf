// Package codec turns message values into frame bodies and back.
//
// A body is self-describing: it starts with the value's Kind, followed by the
// value's fields. Decoding needs nothing beyond the catalogue compiled into
// the message package. A Kind the catalogue does not know means the two sides
// were built from different versions and is reported as ErrUnknownTag.
package codec

import (
	"errors"
	"fmt"

	"mini-bridge/message"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
)

var (
	// ErrUnknownTag is returned for a Kind outside the catalogue.
	ErrUnknownTag = errors.New("codec: unknown tag")
	// ErrMalformed is returned for bodies that do not describe a valid value.
	ErrMalformed = errors.New("codec: malformed body")
)

type Codec interface {
	Encode(v message.Value) ([]byte, error)
	Decode(data []byte) (message.Value, error)
	Type() CodecType // 0=JSON, 1=Binary
}

func (t CodecType) String() string {
	if t == CodecTypeJSON {
		return "json"
	}
	return "binary"
}

// Valid reports whether t names a codec.
func (t CodecType) Valid() bool {
	return t == CodecTypeJSON || t == CodecTypeBinary
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &BinaryCodec{}
}

// checkVariant rejects variant responses that hold no alternative or both.
func checkVariant(v message.Value) error {
	switch v := v.(type) {
	case message.FactoryConstructResult:
		return oneOf(v.Kind(), v.Args != nil, v.Result != nil)
	case message.ComponentConstructResult:
		return oneOf(v.Kind(), v.Args != nil, v.Result != nil)
	case message.QueryInterfaceResult:
		return oneOf(v.Kind(), v.Supported != nil, v.Unsupported != nil)
	}
	return nil
}

func oneOf(kind message.Kind, a, b bool) error {
	if a == b {
		return fmt.Errorf("%w: %s must hold exactly one alternative", ErrMalformed, kind)
	}
	return nil
}
