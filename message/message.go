// Package message defines the fixed catalogue of values exchanged between the
// two sides of the bridge.
//
// Every value carries a Kind tag. Requests name the operation and, except for
// construction requests, the instance they target; each request type is bound
// to exactly one response type through RequestOf, so a mismatched pairing does
// not compile. The codec package turns these values into bytes and back.
package message

import "fmt"

// InstanceID names one live object on the side that registered it.
// Zero is never allocated.
type InstanceID uint64

// Direction records which side initiated a request. Both directions share a
// single channel, so it travels with every frame.
type Direction byte

const (
	HostToPlugin Direction = 0 // the native host calling into the plugin
	PluginToHost Direction = 1 // the plugin calling back into the host
)

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == HostToPlugin {
		return PluginToHost
	}
	return HostToPlugin
}

func (d Direction) String() string {
	switch d {
	case HostToPlugin:
		return "host -> plugin"
	case PluginToHost:
		return "plugin -> host"
	default:
		return fmt.Sprintf("direction(%d)", byte(d))
	}
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == HostToPlugin || d == PluginToHost
}

// Value is anything that can cross the boundary.
type Value interface {
	Kind() Kind
}

// Request is a value naming an operation on the peer.
type Request interface {
	Value
	// Failure builds the response sent when the real implementation fails
	// without producing a result of its own.
	Failure(code UniversalResult) Response
	isRequest()
}

// Response is a value answering a Request.
type Response interface {
	Value
	isResponse()
}

// Targeted is implemented by requests that address an existing instance.
type Targeted interface {
	Request
	Target() InstanceID
}

// RequestOf is a Request whose answer is always an R.
type RequestOf[R Response] interface {
	Request
	pairsWith(R)
}
