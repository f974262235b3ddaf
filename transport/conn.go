// Package transport implements the duplex channel between the two sides of a
// bridge.
//
// A Conn multiplexes calls in both directions over a single byte stream. Each
// outgoing request gets a sequence number and a one-shot result slot that is
// registered before the frame is written; the read loop routes every response
// to its slot, so calls complete in whatever order the peer answers them.
// Incoming requests are decoded on the read loop and served on their own
// goroutine, which lets the peer call back into us while one of our calls is
// still waiting for its answer.
//
//	goroutine-1 ──Call(seq=1)──┐                      ┌── serve(seq=4) ── handler
//	goroutine-2 ──Call(seq=2)──┼──→ one stream ←──────┤
//	                           │                      └── response(seq=2) → goroutine-2
//
// Any failure to read or write is fatal: the connection is closed, every
// waiting caller is woken with an error wrapping ErrChannelClosed and every
// later call fails the same way. There is no per-call timeout and no
// reconnect.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mini-bridge/codec"
	"mini-bridge/message"
	"mini-bridge/protocol"
)

var (
	// ErrChannelClosed wraps every error caused by the connection going away.
	ErrChannelClosed = errors.New("transport: channel closed")
	// ErrProtocol wraps violations of the framing or message contract.
	ErrProtocol = errors.New("transport: protocol violation")

	errClosedLocally = errors.New("closed by local side")
)

// Handler serves requests initiated by the peer. A non-nil error means the
// request itself was invalid; it is reported to the peer and the connection
// is torn down.
type Handler interface {
	ServeRequest(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error)

func (f HandlerFunc) ServeRequest(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
	return f(ctx, dir, req)
}

// Result is delivered once to the caller of Send.
type Result struct {
	Response message.Response
	Err      error
}

// Conn is one side of a duplex channel. It is safe for concurrent use.
type Conn struct {
	conn    net.Conn
	codec   codec.Codec
	dir     message.Direction // direction of the requests we initiate
	seq     atomic.Uint32
	pending sync.Map   // map[uint32]chan Result
	sending sync.Mutex // a frame is written in one piece

	handler   Handler
	heartbeat time.Duration
	logger    *zap.Logger
	taps      []func(Event)

	started   atomic.Bool
	group     *errgroup.Group
	ctx       context.Context
	serving   sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

type Option func(*Conn)

// WithCodec selects the body encoding for frames we write. Incoming frames
// are decoded with whatever codec their header names.
func WithCodec(t codec.CodecType) Option {
	return func(c *Conn) { c.codec = codec.GetCodec(t) }
}

// WithHeartbeat sends an empty frame every d. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Conn) { c.heartbeat = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTap registers an observer for every frame crossing the connection.
// Taps run on the goroutine moving the frame and must not block.
func WithTap(tap func(Event)) Option {
	return func(c *Conn) { c.taps = append(c.taps, tap) }
}

// NewConn wraps conn. dir is the direction of the requests this side sends:
// the host side uses message.HostToPlugin, the plugin side message.PluginToHost.
// Nothing is read until Start is called.
func NewConn(conn net.Conn, dir message.Direction, opts ...Option) *Conn {
	c := &Conn{
		conn:   conn,
		codec:  codec.GetCodec(codec.CodecTypeBinary),
		dir:    dir,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.Stringer("side", dir))
	return c
}

// Start launches the read loop, and the heartbeat loop when enabled. Requests
// from the peer are passed to h; a nil h rejects them all. Start may be called
// only once.
func (c *Conn) Start(h Handler) {
	if !c.started.CompareAndSwap(false, true) {
		panic("transport: Conn started twice")
	}
	c.handler = h
	c.group, c.ctx = errgroup.WithContext(context.Background())
	c.group.Go(c.readLoop)
	if c.heartbeat > 0 {
		c.group.Go(c.heartbeatLoop)
	}
}

// Direction returns the direction of the requests this side sends.
func (c *Conn) Direction() message.Direction {
	return c.dir
}

// Done is closed once the connection is torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection was torn down, or nil while it is open.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.closeErr
	default:
		return nil
	}
}

// Close tears the connection down. Waiting callers fail with ErrChannelClosed.
func (c *Conn) Close() error {
	c.fail(errClosedLocally)
	return nil
}

// Wait blocks until the loops started by Start have exited and every request
// being served has been answered, then returns the reason for the teardown.
func (c *Conn) Wait() error {
	<-c.done
	if c.group != nil {
		c.group.Wait()
	}
	c.serving.Wait()
	return c.closeErr
}

// Send writes req and returns its sequence number together with the channel
// that will receive exactly one Result.
func (c *Conn) Send(req message.Request) (uint32, <-chan Result, error) {
	if err := c.Err(); err != nil {
		return 0, nil, err
	}
	body, err := c.codec.Encode(req)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", req.Kind(), err)
	}

	seq := c.seq.Add(1)
	result := make(chan Result, 1)
	c.pending.Store(seq, result)
	// A teardown that started before the Store may have missed this slot.
	select {
	case <-c.done:
		if _, ok := c.pending.LoadAndDelete(seq); ok {
			return 0, nil, c.closeErr
		}
	default:
	}

	err = c.write(protocol.MsgTypeRequest, c.dir, seq, body, req)
	if err != nil {
		if _, ok := c.pending.LoadAndDelete(seq); ok {
			return 0, nil, err
		}
		// The teardown already delivered the error to the slot.
	}
	return seq, result, nil
}

// Call sends req and blocks until the peer answers or the connection fails.
func (c *Conn) Call(req message.Request) (message.Response, error) {
	_, result, err := c.Send(req)
	if err != nil {
		return nil, err
	}
	r := <-result
	return r.Response, r.Err
}

// Invoke calls req on c and returns the response as the type req is bound to.
func Invoke[R message.Response](c *Conn, req message.RequestOf[R]) (R, error) {
	var zero R
	resp, err := c.Call(req)
	if err != nil {
		return zero, err
	}
	r, ok := resp.(R)
	if !ok {
		err := fmt.Errorf("%w: %s answered with %s", ErrProtocol, req.Kind(), resp.Kind())
		c.fail(err)
		return zero, err
	}
	return r, nil
}

func (c *Conn) write(mt protocol.MsgType, dir message.Direction, seq uint32, body []byte, v message.Value) error {
	h := protocol.Header{
		CodecType: byte(c.codec.Type()),
		MsgType:   mt,
		Direction: byte(dir),
		Seq:       seq,
	}
	c.sending.Lock()
	err := protocol.Encode(c.conn, &h, body)
	c.sending.Unlock()
	if err != nil {
		err = fmt.Errorf("write %s frame: %w", mt, err)
		c.fail(err)
		return c.closeErr
	}
	c.observe(Event{Outgoing: true, MsgType: mt, Direction: dir, Seq: seq, Value: v})
	return nil
}

func (c *Conn) readLoop() error {
	for {
		h, body, err := protocol.Decode(c.conn)
		if err != nil {
			if protocol.IsProtocolError(err) {
				err = fmt.Errorf("%w: %w", ErrProtocol, err)
			}
			c.fail(err)
			return c.closeErr
		}

		dir := message.Direction(h.Direction)
		switch h.MsgType {
		case protocol.MsgTypeHeartbeat:
			c.observe(Event{MsgType: h.MsgType, Direction: dir, Seq: h.Seq})

		case protocol.MsgTypeRequest:
			req, err := c.decodeRequest(h, body)
			if err != nil {
				c.reject(dir, h.Seq, err)
				return c.closeErr
			}
			c.observe(Event{MsgType: h.MsgType, Direction: dir, Seq: h.Seq, Value: req})
			c.serving.Add(1)
			go c.serve(dir, h.Seq, req)

		case protocol.MsgTypeResponse:
			resp, err := c.decodeResponse(h, body)
			if err != nil {
				c.reject(dir, h.Seq, err)
				return c.closeErr
			}
			c.observe(Event{MsgType: h.MsgType, Direction: dir, Seq: h.Seq, Value: resp})
			c.deliver(h.Seq, Result{Response: resp})

		case protocol.MsgTypeError:
			c.observe(Event{MsgType: h.MsgType, Direction: dir, Seq: h.Seq})
			err := fmt.Errorf("%w: rejected by peer: %s", ErrProtocol, body)
			// Only frames about our own requests name one of our callers.
			if dir == c.dir {
				c.deliver(h.Seq, Result{Err: err})
			}
			c.fail(err)
			return c.closeErr
		}
	}
}

func (c *Conn) decodeRequest(h *protocol.Header, body []byte) (message.Request, error) {
	if dir := message.Direction(h.Direction); dir != c.dir.Reverse() {
		return nil, fmt.Errorf("%w: request with direction %s on the %s side", ErrProtocol, dir, c.dir)
	}
	v, err := codec.GetCodec(codec.CodecType(h.CodecType)).Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	req, ok := v.(message.Request)
	if !ok {
		return nil, fmt.Errorf("%w: %s sent as a request", ErrProtocol, v.Kind())
	}
	return req, nil
}

func (c *Conn) decodeResponse(h *protocol.Header, body []byte) (message.Response, error) {
	if dir := message.Direction(h.Direction); dir != c.dir {
		return nil, fmt.Errorf("%w: response with direction %s on the %s side", ErrProtocol, dir, c.dir)
	}
	v, err := codec.GetCodec(codec.CodecType(h.CodecType)).Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	resp, ok := v.(message.Response)
	if !ok {
		return nil, fmt.Errorf("%w: %s sent as a response", ErrProtocol, v.Kind())
	}
	return resp, nil
}

func (c *Conn) serve(dir message.Direction, seq uint32, req message.Request) {
	defer c.serving.Done()

	if c.handler == nil {
		c.reject(dir, seq, fmt.Errorf("%w: no handler for %s", ErrProtocol, req.Kind()))
		return
	}
	resp, err := c.handler.ServeRequest(c.ctx, dir, req)
	if err != nil {
		c.reject(dir, seq, err)
		return
	}
	body, err := c.codec.Encode(resp)
	if err != nil {
		c.fail(fmt.Errorf("encode %s: %w", resp.Kind(), err))
		return
	}
	c.write(protocol.MsgTypeResponse, dir, seq, body, resp)
}

// reject answers seq with an error frame and tears the connection down.
func (c *Conn) reject(dir message.Direction, seq uint32, cause error) {
	c.logger.Warn("rejecting peer request", zap.Uint32("seq", seq), zap.Error(cause))
	if c.Err() == nil {
		c.write(protocol.MsgTypeError, dir, seq, []byte(cause.Error()), nil)
	}
	if !errors.Is(cause, ErrProtocol) {
		cause = fmt.Errorf("%w: %w", ErrProtocol, cause)
	}
	c.fail(cause)
}

func (c *Conn) deliver(seq uint32, r Result) {
	slot, ok := c.pending.LoadAndDelete(seq)
	if !ok {
		c.logger.Warn("response for unknown sequence number", zap.Uint32("seq", seq))
		return
	}
	slot.(chan Result) <- r
}

// fail closes the connection once and wakes every waiting caller.
func (c *Conn) fail(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = fmt.Errorf("%w: %w", ErrChannelClosed, cause)
		close(c.done)
		c.conn.Close()
		if !errors.Is(cause, errClosedLocally) {
			c.logger.Info("connection closed", zap.Error(cause))
		}
		c.closeAllPending()
	})
}

func (c *Conn) closeAllPending() {
	c.pending.Range(func(key, _ any) bool {
		if slot, ok := c.pending.LoadAndDelete(key); ok {
			slot.(chan Result) <- Result{Err: c.closeErr}
		}
		return true
	})
}

func (c *Conn) heartbeatLoop() error {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return nil
		case <-ticker.C:
			if err := c.write(protocol.MsgTypeHeartbeat, c.dir, 0, nil, nil); err != nil {
				return err
			}
		}
	}
}
