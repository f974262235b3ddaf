// Package protocol implements the binary frame protocol spoken between the two
// sides of a bridge.
//
// A fixed-size 16-byte header is followed by a variable-length body. The
// receiver reads the header first to learn the body length, then reads exactly
// that many bytes, so frames never merge or split on the byte stream.
//
// Frame format:
//
//	0      3  4  5  6  7  8         12        16
//	┌──────┬──┬──┬──┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │ct│mt│dr│rs│   seq   │ bodyLen │    body ...    │
//	│ mbr  │01│  │  │  │00│ uint32  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴──┴──┴──┴─────────┴─────────┴───────────────┘
//
// dr is the direction of the call the frame belongs to: requests carry the
// initiating side, responses echo the request's direction.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic number bytes: "mbr" (mini-bridge).
const (
	MagicNumber byte   = 0x6d // 'm'
	MagicByte2  byte   = 0x62 // 'b'
	MagicByte3  byte   = 0x72 // 'r'
	Version     byte   = 0x01
	HeaderSize  int    = 16 // 3 (magic) + 1 (version) + 1 (codec) + 1 (msgType) + 1 (direction) + 1 (reserved) + 4 (seq) + 4 (bodyLen)
	MaxBodyLen  uint32 = 64 << 20
)

// MsgType distinguishes request, response, error and heartbeat frames.
type MsgType byte

const (
	MsgTypeRequest   MsgType = 0 // a call for the peer's dispatcher
	MsgTypeResponse  MsgType = 1 // the answer to one of our calls
	MsgTypeHeartbeat MsgType = 2 // keep-alive probe (no body)
	MsgTypeError     MsgType = 3 // the peer rejected one of our calls as a protocol violation
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeRequest:
		return "request"
	case MsgTypeResponse:
		return "response"
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeError:
		return "error"
	default:
		return fmt.Sprintf("msgtype(%d)", byte(t))
	}
}

// Codec type constants, mirrored from codec package to avoid circular import.
const (
	CodecTypeJSON   byte = 0
	CodecTypeBinary byte = 1
)

// Direction constants, mirrored from the message package.
const (
	DirectionHostToPlugin byte = 0
	DirectionPluginToHost byte = 1
)

var (
	ErrInvalidMagic  = errors.New("invalid magic number")
	ErrVersion       = errors.New("unsupported version")
	ErrFrameTooLarge = errors.New("frame too large")
	ErrInvalidHeader = errors.New("invalid frame header")
)

// Header represents the fixed 16-byte frame header.
type Header struct {
	CodecType byte    // Serialization format: 0=JSON, 1=Binary
	MsgType   MsgType // Request, Response, Error or Heartbeat
	Direction byte    // Which side initiated the call
	Seq       uint32  // Correlation token: a response carries the seq of its request
	BodyLen   uint32  // Body length in bytes
}

// Encode writes a complete frame (header + body) to w in a single write.
// The caller must hold a write lock if multiple goroutines share the same writer.
func Encode(w io.Writer, h *Header, body []byte) error {
	if uint64(len(body)) > uint64(MaxBodyLen) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}
	buf := make([]byte, HeaderSize+len(body))

	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = h.CodecType
	buf[5] = byte(h.MsgType)
	buf[6] = h.Direction
	buf[7] = 0
	binary.BigEndian.PutUint32(buf[8:12], h.Seq)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(body)))
	copy(buf[HeaderSize:], body)

	_, err := w.Write(buf)
	return err
}

// Decode reads a complete frame (header + body) from r.
// It validates the magic number, version, codec type, message type and direction.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("%w: %x", ErrInvalidMagic, headerBuf[0:3])
	}

	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrVersion, headerBuf[3])
	}

	if headerBuf[4] != CodecTypeJSON && headerBuf[4] != CodecTypeBinary {
		return nil, nil, fmt.Errorf("%w: unsupported codec type %d", ErrInvalidHeader, headerBuf[4])
	}

	msgType := MsgType(headerBuf[5])
	if msgType > MsgTypeError {
		return nil, nil, fmt.Errorf("%w: unsupported message type %d", ErrInvalidHeader, headerBuf[5])
	}

	if headerBuf[6] != DirectionHostToPlugin && headerBuf[6] != DirectionPluginToHost {
		return nil, nil, fmt.Errorf("%w: unsupported direction %d", ErrInvalidHeader, headerBuf[6])
	}

	seq := binary.BigEndian.Uint32(headerBuf[8:12])
	bodyLen := binary.BigEndian.Uint32(headerBuf[12:16])
	if bodyLen > MaxBodyLen {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType: headerBuf[4],
		MsgType:   msgType,
		Direction: headerBuf[6],
		Seq:       seq,
		BodyLen:   bodyLen,
	}, body, nil
}

// IsProtocolError reports whether err came from validating a frame rather
// than from the underlying reader.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrInvalidMagic) || errors.Is(err, ErrVersion) ||
		errors.Is(err, ErrFrameTooLarge) || errors.Is(err, ErrInvalidHeader)
}
