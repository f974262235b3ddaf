package transport

import (
	"mini-bridge/message"
	"mini-bridge/protocol"
)

// Event describes one frame seen by a Conn.
type Event struct {
	Outgoing  bool
	MsgType   protocol.MsgType
	Direction message.Direction // direction of the call the frame belongs to
	Seq       uint32
	Value     message.Value // nil for heartbeat and error frames
}

// Request returns the request carried by the frame, if any.
func (e Event) Request() (message.Request, bool) {
	req, ok := e.Value.(message.Request)
	return req, ok
}

// Response returns the response carried by the frame, if any.
func (e Event) Response() (message.Response, bool) {
	resp, ok := e.Value.(message.Response)
	return resp, ok
}

func (c *Conn) observe(e Event) {
	for _, tap := range c.taps {
		tap(e)
	}
}
