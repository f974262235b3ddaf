// Package discovery lets host processes find running plugin-side endpoints.
//
// A plugin-side server announces the socket it listens on under its group
// name. Several servers may serve the same group; a host picks one with a
// Ring so that a given plugin always ends up in the same process while that
// process is alive.
package discovery

import (
	"context"

	"mini-bridge/plugin"
)

// EndpointInstance describes one listening plugin-side endpoint.
type EndpointInstance struct {
	Network string       // "unix" or "tcp"
	Addr    string       // socket path or host:port
	Group   string       // plugin group the endpoint serves
	Classes []plugin.UID // classes its factory creates
	Codec   string
	Version string
}

type Directory interface {
	Register(ctx context.Context, instance EndpointInstance, ttl int64) error
	Deregister(ctx context.Context, group, addr string) error
	Discover(ctx context.Context, group string) ([]EndpointInstance, error)
	Watch(ctx context.Context, group string) <-chan []EndpointInstance
}
