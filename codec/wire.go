package codec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"mini-bridge/message"
	"mini-bridge/plugin"
)

// encoder appends protobuf-wire fields. Scalars equal to their zero value are
// skipped; presence-carrying fields use the *Always variants.
type encoder struct {
	b []byte
}

func (e *encoder) uint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) int(num protowire.Number, v int32) {
	e.uint(num, protowire.EncodeZigZag(int64(v)))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	e.uint(num, protowire.EncodeBool(v))
}

func (e *encoder) doubleAlways(num protowire.Number, v float64) {
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed64Type)
	e.b = protowire.AppendFixed64(e.b, math.Float64bits(v))
}

func (e *encoder) bytesAlways(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.stringAlways(num, v)
}

func (e *encoder) stringAlways(num protowire.Number, v string) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) uid(num protowire.Number, u plugin.UID) {
	if u.IsZero() {
		return
	}
	e.bytesAlways(num, u[:])
}

// message writes a nested aggregate as a length-delimited field. It is always
// written, so an empty nested value still marks presence.
func (e *encoder) message(num protowire.Number, fill func(e *encoder)) {
	var sub encoder
	fill(&sub)
	e.bytesAlways(num, sub.b)
}

func (e *encoder) doubles(num protowire.Number, v []float64) {
	buf := make([]byte, 0, 8*len(v))
	for _, s := range v {
		buf = protowire.AppendFixed64(buf, math.Float64bits(s))
	}
	e.bytesAlways(num, buf)
}

func (e *encoder) result(num protowire.Number, r message.UniversalResult) {
	e.message(num, func(e *encoder) {
		e.uint(1, uint64(r.Code))
		e.int(2, r.Raw)
	})
}

// field is one decoded field; which member is set depends on typ.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	raw []byte
}

// eachField walks the fields of b. Only varint, fixed64 and bytes fields exist
// in the catalogue; anything else is malformed.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			return fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, num, typ)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) unknown() error {
	return fmt.Errorf("%w: unexpected field %d", ErrMalformed, f.num)
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformed, f.num, f.typ, typ)
	}
	return nil
}

func (f field) uint() (uint64, error) {
	return f.u, f.expect(protowire.VarintType)
}

func (f field) int() (int32, error) {
	if err := f.expect(protowire.VarintType); err != nil {
		return 0, err
	}
	v := protowire.DecodeZigZag(f.u)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: field %d overflows int32", ErrMalformed, f.num)
	}
	return int32(v), nil
}

func (f field) bool() (bool, error) {
	return protowire.DecodeBool(f.u), f.expect(protowire.VarintType)
}

func (f field) double() (float64, error) {
	return math.Float64frombits(f.u), f.expect(protowire.Fixed64Type)
}

func (f field) bytes() ([]byte, error) {
	return f.raw, f.expect(protowire.BytesType)
}

func (f field) string() (string, error) {
	return string(f.raw), f.expect(protowire.BytesType)
}

func (f field) instanceID() (message.InstanceID, error) {
	v, err := f.uint()
	return message.InstanceID(v), err
}

func (f field) uid() (plugin.UID, error) {
	var u plugin.UID
	if err := f.expect(protowire.BytesType); err != nil {
		return u, err
	}
	if len(f.raw) != len(u) {
		return u, fmt.Errorf("%w: field %d: uid of %d bytes", ErrMalformed, f.num, len(f.raw))
	}
	copy(u[:], f.raw)
	return u, nil
}

func (f field) doubles() ([]float64, error) {
	if err := f.expect(protowire.BytesType); err != nil {
		return nil, err
	}
	if len(f.raw)%8 != 0 {
		return nil, fmt.Errorf("%w: field %d: %d bytes is not a sample array", ErrMalformed, f.num, len(f.raw))
	}
	out := make([]float64, len(f.raw)/8)
	b := f.raw
	for i := range out {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, f.num, protowire.ParseError(n))
		}
		out[i] = math.Float64frombits(v)
		b = b[n:]
	}
	return out, nil
}

func (f field) result() (message.UniversalResult, error) {
	var r message.UniversalResult
	raw, err := f.bytes()
	if err != nil {
		return r, err
	}
	err = eachField(raw, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var code uint64
			code, err = f.uint()
			if err != nil {
				return err
			}
			if code > uint64(message.ResultUnknown) {
				return fmt.Errorf("%w: result code %d", ErrMalformed, code)
			}
			r.Code = message.ResultCode(code)
		case 2:
			r.Raw, err = f.int()
		default:
			err = f.unknown()
		}
		return err
	})
	return r, err
}
