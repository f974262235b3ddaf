// Package bridge ties the pieces of one side of a connection together.
//
// An Endpoint owns a transport.Conn and serves the peer's requests with a
// dispatch.Dispatcher over its own object registry, while a proxy.Session on
// the same connection makes calls into the peer. Both sides run the same
// Endpoint; only the direction and what they serve differ:
//
//	host process                               plugin process
//	┌──────────────────────────┐               ┌──────────────────────────┐
//	│ proxy.Session ── calls ──┼──── socket ───┼─→ Dispatcher → plugin    │
//	│ host objects ←─ Dispatcher ←─ callbacks ─┼── proxy.Session          │
//	└──────────────────────────┘               └──────────────────────────┘
package bridge

import (
	"net"
	"sync/atomic"
	"time"

	"mini-bridge/codec"
	"mini-bridge/config"
	"mini-bridge/dispatch"
	"mini-bridge/logging"
	"mini-bridge/message"
	"mini-bridge/middleware"
	"mini-bridge/plugin"
	"mini-bridge/protocol"
	"mini-bridge/proxy"
	"mini-bridge/registry"
	"mini-bridge/transport"
)

type options struct {
	codec         codec.CodecType
	heartbeat     time.Duration
	abi           plugin.ABI
	logger        *logging.Logger
	factory       plugin.Factory
	configuration message.Configuration
	middlewares   []middleware.Middleware
}

type Option func(*options)

func WithCodec(t codec.CodecType) Option {
	return func(o *options) { o.codec = t }
}

// WithHeartbeat sends a heartbeat frame every d; zero disables them.
func WithHeartbeat(d time.Duration) Option {
	return func(o *options) { o.heartbeat = d }
}

func WithABI(abi plugin.ABI) Option {
	return func(o *options) { o.abi = abi }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFactory serves f to the peer. Used on the plugin side.
func WithFactory(f plugin.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithConfiguration answers the peer's WantsConfiguration with c. Used on the
// host side.
func WithConfiguration(c message.Configuration) Option {
	return func(o *options) { o.configuration = c }
}

func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithOptions applies the transport and configuration settings of c.
func WithOptions(c config.Options) Option {
	return func(o *options) {
		o.codec = c.Codec
		o.heartbeat = c.Heartbeat
		o.abi = c.ABI
		o.configuration = c.Configuration()
	}
}

func buildOptions(opts []Option) options {
	o := options{
		codec:  codec.CodecTypeBinary,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Stats counts the frames an endpoint has received.
type Stats struct {
	Requests   int64
	Responses  int64
	Heartbeats int64
	Errors     int64
}

// Endpoint is one side of a bridge connection.
type Endpoint struct {
	dir        message.Direction
	conn       *transport.Conn
	objects    *registry.Objects
	session    *proxy.Session
	dispatcher *dispatch.Dispatcher
	logger     *logging.Logger

	requests, responses, heartbeats, errors atomic.Int64
}

// New starts an endpoint on nc. dir is the direction of the calls this side
// makes: message.HostToPlugin for the host, message.PluginToHost for the
// plugin.
func New(nc net.Conn, dir message.Direction, opts ...Option) *Endpoint {
	o := buildOptions(opts)
	e := &Endpoint{
		dir:     dir,
		objects: registry.NewObjects(),
		logger:  o.logger,
	}
	e.conn = transport.NewConn(nc, dir,
		transport.WithCodec(o.codec),
		transport.WithHeartbeat(o.heartbeat),
		transport.WithLogger(o.logger.Zap()),
		transport.WithTap(e.count))
	e.session = proxy.NewSession(e.conn, e.objects,
		proxy.WithABI(o.abi),
		proxy.WithLogger(o.logger.Zap()))

	dopts := []dispatch.Option{
		dispatch.WithABI(o.abi),
		dispatch.WithLogger(o.logger),
		dispatch.WithConfiguration(o.configuration),
		dispatch.WithHostContextProxy(e.session.HostApplication),
		dispatch.WithMiddleware(o.middlewares...),
	}
	if o.factory != nil {
		dopts = append(dopts, dispatch.WithFactory(o.factory))
	}
	e.dispatcher = dispatch.New(e.objects, dopts...)
	e.conn.Start(e.dispatcher)
	return e
}

func (e *Endpoint) count(ev transport.Event) {
	if ev.Outgoing {
		return
	}
	switch ev.MsgType {
	case protocol.MsgTypeRequest:
		e.requests.Add(1)
	case protocol.MsgTypeResponse:
		e.responses.Add(1)
	case protocol.MsgTypeHeartbeat:
		e.heartbeats.Add(1)
	case protocol.MsgTypeError:
		e.errors.Add(1)
	}
}

// Stats returns the frame counters.
func (e *Endpoint) Stats() Stats {
	return Stats{
		Requests:   e.requests.Load(),
		Responses:  e.responses.Load(),
		Heartbeats: e.heartbeats.Load(),
		Errors:     e.errors.Load(),
	}
}

func (e *Endpoint) Direction() message.Direction { return e.dir }

// Conn returns the underlying connection.
func (e *Endpoint) Conn() *transport.Conn { return e.conn }

// Session makes calls into the peer.
func (e *Endpoint) Session() *proxy.Session { return e.session }

// Objects holds the local objects the peer may call.
func (e *Endpoint) Objects() *registry.Objects { return e.objects }

func (e *Endpoint) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }

// Factory returns the peer's plugin factory.
func (e *Endpoint) Factory() (*proxy.Factory, error) {
	return proxy.NewFactory(e.session)
}

// Configuration asks the peer for its configuration.
func (e *Endpoint) Configuration() (message.Configuration, error) {
	return e.session.Configuration()
}

// Done is closed when the connection is gone.
func (e *Endpoint) Done() <-chan struct{} { return e.conn.Done() }

// Err returns why the connection is gone, or nil.
func (e *Endpoint) Err() error { return e.conn.Err() }

func (e *Endpoint) Close() error { return e.conn.Close() }

// Wait blocks until the connection is gone and every request being served
// has finished.
func (e *Endpoint) Wait() error { return e.conn.Wait() }

// Pipe connects a host endpoint and a plugin endpoint in memory.
func Pipe(hostOpts, pluginOpts []Option) (host, plug *Endpoint) {
	a, b := net.Pipe()
	return New(a, message.HostToPlugin, hostOpts...), New(b, message.PluginToHost, pluginOpts...)
}
