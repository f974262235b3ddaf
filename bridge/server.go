package bridge

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mini-bridge/discovery"
	"mini-bridge/message"
)

// Server accepts host connections on the plugin side. Every connection gets
// its own Endpoint serving the configured factory.
//
//	Accept conn → New(conn, PluginToHost) → Endpoint serves until the host hangs up
type Server struct {
	opts   []Option
	logger *zap.Logger

	mu        sync.Mutex
	listener  net.Listener
	endpoints map[*Endpoint]struct{}
	conns     errgroup.Group
	ready     chan struct{}
	shutdown  atomic.Bool

	directory discovery.Directory
	instance  discovery.EndpointInstance
}

// NewServer returns a server whose endpoints are built with opts.
func NewServer(opts ...Option) *Server {
	o := buildOptions(opts)
	return &Server{
		opts:      opts,
		logger:    o.logger.Zap(),
		endpoints: make(map[*Endpoint]struct{}),
		ready:     make(chan struct{}),
	}
}

// Announce registers the server in dir once it listens. instance.Network and
// instance.Addr are filled in by Serve.
func (s *Server) Announce(dir discovery.Directory, instance discovery.EndpointInstance) {
	s.directory = dir
	s.instance = instance
}

// Ready is closed once the server listens.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address. Only valid after Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve listens on address and serves connections until Shutdown.
func (s *Server) Serve(network, address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	if s.directory != nil {
		s.instance.Network = listener.Addr().Network()
		s.instance.Addr = listener.Addr().String()
		if err := s.directory.Register(context.Background(), s.instance, 10); err != nil {
			s.logger.Warn("announcing endpoint failed", zap.Error(err))
		}
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}

		// Shutdown flips the flag under mu before it waits on conns.
		s.mu.Lock()
		if s.shutdown.Load() {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		ep := New(conn, message.PluginToHost, s.opts...)
		s.endpoints[ep] = struct{}{}
		s.conns.Go(func() error {
			err := ep.Wait()
			s.mu.Lock()
			delete(s.endpoints, ep)
			s.mu.Unlock()
			s.logger.Info("host disconnected", zap.Error(err))
			return nil
		})
		s.mu.Unlock()
		s.logger.Info("host connected", zap.Stringer("remote", conn.RemoteAddr()))
	}
}

// Connections returns the number of connected hosts.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.endpoints)
}

// Shutdown stops accepting hosts and waits for the connected ones to hang up.
// Hosts still connected after timeout are disconnected.
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.directory != nil {
		if err := s.directory.Deregister(context.Background(), s.instance.Group, s.instance.Addr); err != nil {
			s.logger.Warn("withdrawing endpoint failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.shutdown.Store(true)
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		s.mu.Lock()
		n := len(s.endpoints)
		for ep := range s.endpoints {
			ep.Close()
		}
		s.mu.Unlock()
		<-done
		return fmt.Errorf("bridge: closed %d connections still open after %s", n, timeout)
	}
}

// Dial connects to a plugin-side server as the host.
func Dial(network, address string, opts ...Option) (*Endpoint, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return New(conn, message.HostToPlugin, opts...), nil
}

// DialGroup connects to the endpoint of group responsible for key, as found
// in dir.
func DialGroup(ctx context.Context, dir discovery.Directory, group, key string, opts ...Option) (*Endpoint, error) {
	instances, err := dir.Discover(ctx, group)
	if err != nil {
		return nil, err
	}
	instance, err := discovery.NewRing(instances).Pick(key)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", group, err)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, instance.Network, instance.Addr)
	if err != nil {
		return nil, fmt.Errorf("group %q: dial %s: %w", group, instance.Addr, err)
	}
	return New(conn, message.HostToPlugin, opts...), nil
}
