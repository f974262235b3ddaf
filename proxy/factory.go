package proxy

import (
	"fmt"

	"mini-bridge/message"
	"mini-bridge/plugin"
	"mini-bridge/transport"
)

// Factory is the peer's plugin factory. Its description is fetched once on
// creation; only CreateInstance goes back to the peer.
type Factory struct {
	s          *Session
	info       plugin.FactoryInfo
	numClasses int32
	classes    []plugin.ClassInfo
}

// NewFactory asks the peer for its factory.
func NewFactory(s *Session) (*Factory, error) {
	resp, err := call[message.FactoryConstructResult](s, message.FactoryConstruct{})
	if err != nil {
		return nil, err
	}
	if resp.Args == nil {
		if resp.Result == nil {
			return nil, fmt.Errorf("%w: %s without factory or result", transport.ErrProtocol, resp.Kind())
		}
		return nil, &ResultError{Op: "GetPluginFactory", Result: *resp.Result}
	}
	return &Factory{
		s:          s,
		info:       resp.Args.Info,
		numClasses: resp.Args.NumClasses,
		classes:    resp.Args.Classes,
	}, nil
}

func (f *Factory) Info() plugin.FactoryInfo {
	return f.info
}

func (f *Factory) CountClasses() int32 {
	return f.numClasses
}

func (f *Factory) ClassInfo(index int32) (plugin.ClassInfo, plugin.TResult) {
	if index < 0 || int(index) >= len(f.classes) {
		return plugin.ClassInfo{}, f.s.results.InvalidArgument
	}
	return f.classes[index], f.s.results.OK
}

// CreateInstance constructs a component on the peer and returns its proxy.
// The proxy holds one reference the caller must Release.
func (f *Factory) CreateInstance(cid, iid plugin.UID) (any, plugin.TResult) {
	c, res, err := f.Construct(cid)
	if err != nil {
		return nil, f.s.results.InternalError
	}
	if c == nil {
		return nil, res.Native(f.s.abi)
	}
	if !c.Supports(iid) {
		c.Release()
		return nil, f.s.results.NoInterface
	}
	return c, f.s.results.OK
}

// Construct is CreateInstance for callers that want the connection error and
// the concrete proxy type. c is nil when the peer refused, with res saying why.
func (f *Factory) Construct(cid plugin.UID) (c *Component, res message.UniversalResult, err error) {
	resp, err := call[message.ComponentConstructResult](f.s, message.ComponentConstruct{CID: cid})
	if err != nil {
		return nil, message.UniversalResult{}, err
	}
	if resp.Args == nil {
		if resp.Result == nil {
			return nil, message.UniversalResult{}, fmt.Errorf("%w: %s without instance or result", transport.ErrProtocol, resp.Kind())
		}
		return nil, *resp.Result, nil
	}
	c = f.s.component(resp.Args.InstanceID, resp.Args.Interfaces)
	return c, message.Result(message.ResultOK), nil
}
