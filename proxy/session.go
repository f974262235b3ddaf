// Package proxy provides local stand-ins for objects living on the other side
// of the bridge.
//
// Every method of a proxy sends one request over the session's connection and
// blocks the calling goroutine until the matching response arrives. Proxies
// implement the interfaces of the plugin package, so code using a real
// component cannot tell it apart from a proxied one. Those interfaces only
// carry native result codes: when the connection fails, a proxy returns the
// native internal error code and Session.Err reports why.
//
// Lifetime follows the serving side's ownership: the real object lives as long
// as at least one local reference to its proxy does. Release on the last
// reference tells the peer to drop the object.
package proxy

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mini-bridge/message"
	"mini-bridge/plugin"
	"mini-bridge/registry"
	"mini-bridge/transport"
)

// ResultError reports a request the peer answered with a failure code where
// a value was expected.
type ResultError struct {
	Op     string
	Result message.UniversalResult
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Result)
}

// Session is the calling side of one connection.
type Session struct {
	conn    *transport.Conn
	objects *registry.Objects // local objects the peer may call back into
	proxies *registry.Proxies
	abi     plugin.ABI
	results plugin.Results
	logger  *zap.Logger
}

type Option func(*Session)

// WithABI selects the native result table proxies return.
func WithABI(abi plugin.ABI) Option {
	return func(s *Session) { s.abi = abi }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession calls the peer over conn. objects is where local objects handed
// to the peer, such as host contexts, are registered; it is normally shared
// with the dispatcher serving the same connection.
func NewSession(conn *transport.Conn, objects *registry.Objects, opts ...Option) *Session {
	s := &Session{
		conn:    conn,
		objects: objects,
		proxies: registry.NewProxies(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.results = plugin.ResultsFor(s.abi)
	return s
}

// Err returns the reason the connection failed, or nil while it is usable.
func (s *Session) Err() error {
	return s.conn.Err()
}

// Proxies returns the table of live proxies.
func (s *Session) Proxies() *registry.Proxies {
	return s.proxies
}

// Objects returns the registry of local objects exposed to the peer.
func (s *Session) Objects() *registry.Objects {
	return s.objects
}

func call[R message.Response](s *Session, req message.RequestOf[R]) (R, error) {
	resp, err := transport.Invoke[R](s.conn, req)
	if err != nil {
		s.logger.Warn("remote call failed", zap.Stringer("kind", req.Kind()), zap.Error(err))
	}
	return resp, err
}

// native converts the outcome of a call into the native result callers of
// the plugin interfaces expect.
func (s *Session) native(r message.UniversalResult, err error) plugin.TResult {
	if err != nil {
		return s.results.InternalError
	}
	return r.Native(s.abi)
}

// refcount is the local reference count of one proxy. A proxy starts with
// one reference; once the count drops to zero it is dead for good.
type refcount struct {
	mu   sync.Mutex
	refs int32
}

func newRefcount() refcount {
	return refcount{refs: 1}
}

func (r *refcount) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs <= 0 {
		return false
	}
	r.refs++
	return true
}

// release drops one reference and reports whether it was the last.
func (r *refcount) release() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs <= 0 {
		return false
	}
	r.refs--
	return r.refs == 0
}

func (r *refcount) alive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs <= 0 {
		return errReleased
	}
	return nil
}

// acquirable is implemented by proxies kept in the session's table.
type acquirable interface {
	acquire() bool
}

// lookup returns the live proxy for id, creating it when there is none. A
// proxy whose last reference is being released is replaced.
func lookup[P acquirable](s *Session, id message.InstanceID, create func() P) P {
	for {
		p, loaded := s.proxies.LoadOrCreate(id, func() any { return create() })
		proxy, ok := p.(P)
		if !ok {
			// The peer reused an id for a different kind of object.
			s.logger.Error("proxy type mismatch", zap.Uint64("instance_id", uint64(id)))
			s.proxies.Forget(id, p)
			continue
		}
		if !loaded || proxy.acquire() {
			return proxy
		}
		s.proxies.Forget(id, p)
	}
}

// errReleased is returned for calls through a proxy after its last Release.
var errReleased = errors.New("proxy: released")

// Configuration asks the host side for its configuration.
func (s *Session) Configuration() (message.Configuration, error) {
	return call[message.Configuration](s, message.WantsConfiguration{})
}
