// Package dispatch serves the requests one side of the bridge receives from
// its peer.
//
// A Dispatcher resolves the target of every request through the side's
// object registry, calls the real implementation and builds the response the
// request is paired with. Failures of the real implementation become result
// codes; only requests that cannot be valid for any correct peer, such as
// ones naming an instance that does not exist, are returned as errors.
//
//	transport.Conn ── ServeRequest ──→ middleware chain ──→ serve (type switch)
//	                                                           │
//	                                           registry.Objects.Resolve(id)
//	                                                           │
//	                                            real plugin / host object
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mini-bridge/logging"
	"mini-bridge/message"
	"mini-bridge/middleware"
	"mini-bridge/plugin"
	"mini-bridge/registry"
)

// HostContextFunc returns the object passed to a component's Initialize for
// the host context the peer registered under id.
type HostContextFunc func(id message.InstanceID) plugin.HostApplication

// Releaser is implemented by host context objects that hold a remote
// reference. Release is called once the component is done with it.
type Releaser interface {
	Release()
}

type Dispatcher struct {
	objects     *registry.Objects
	factory     plugin.Factory
	config      message.Configuration
	hostContext HostContextFunc
	abi         plugin.ABI
	logger      *logging.Logger
	resolver    *Resolver
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc

	mu       sync.Mutex
	contexts map[message.InstanceID]plugin.HostApplication // host context per initialized component
	derived  map[derivedKey]message.InstanceID             // objects handed out through plugin.Querier
	orphans  map[message.InstanceID]struct{}               // delegated objects retired with their parent
}

type derivedKey struct {
	parent message.InstanceID
	iid    plugin.UID
}

type Option func(*Dispatcher)

// WithFactory serves factory and component construction requests from f.
func WithFactory(f plugin.Factory) Option {
	return func(d *Dispatcher) { d.factory = f }
}

// WithConfiguration sets the value returned for WantsConfiguration.
func WithConfiguration(c message.Configuration) Option {
	return func(d *Dispatcher) { d.config = c }
}

// WithHostContextProxy sets how host contexts named in Initialize requests
// are turned into objects. Without it components are initialized with a nil
// context.
func WithHostContextProxy(fn HostContextFunc) Option {
	return func(d *Dispatcher) { d.hostContext = fn }
}

// WithABI selects the native result table the real objects use.
func WithABI(abi plugin.ABI) Option {
	return func(d *Dispatcher) { d.abi = abi }
}

func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMiddleware adds middlewares around the dispatcher, outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(d *Dispatcher) { d.middlewares = append(d.middlewares, mws...) }
}

func New(objects *registry.Objects, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		objects:  objects,
		logger:   logging.Nop(),
		contexts: make(map[message.InstanceID]plugin.HostApplication),
		derived:  make(map[derivedKey]message.InstanceID),
		orphans:  make(map[message.InstanceID]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.resolver = NewResolver(d.logger)

	// Logging sees the response built after a recovered panic.
	chain := append([]middleware.Middleware{middleware.LoggingMiddleware(d.logger)}, d.middlewares...)
	chain = append(chain, middleware.RecoverMiddleware(d.logger.Zap()))
	d.handler = middleware.Chain(chain...)(d.serve)
	return d
}

// Objects returns the registry the dispatcher resolves targets in.
func (d *Dispatcher) Objects() *registry.Objects {
	return d.objects
}

// Resolver returns the resolver used for unsatisfiable capability queries.
func (d *Dispatcher) Resolver() *Resolver {
	return d.resolver
}

// ServeRequest serves req. It implements transport.Handler.
func (d *Dispatcher) ServeRequest(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
	return d.handler(ctx, dir, req)
}

func (d *Dispatcher) serve(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
	switch r := req.(type) {
	case message.WantsConfiguration:
		return d.config, nil
	case message.FactoryConstruct:
		return d.factoryConstruct(), nil
	case message.ComponentConstruct:
		return d.componentConstruct(r), nil
	case message.ComponentDestruct:
		return d.destruct(r)
	case message.ComponentInitialize:
		return d.initialize(r)
	case message.ComponentTerminate:
		return d.terminate(r)
	case message.ComponentSetActive:
		c, err := resolve[plugin.Component](d, r, "IComponent::setActive")
		if err != nil {
			return nil, err
		}
		return d.result(c.SetActive(r.State)), nil
	case message.ComponentGetControllerClassID:
		c, err := resolve[plugin.Component](d, r, "IComponent::getControllerClassId")
		if err != nil {
			return nil, err
		}
		cid, res := c.GetControllerClassID()
		return message.ControllerClassIDResult{Result: d.result(res), CID: cid}, nil
	case message.QueryInterface:
		return d.queryInterface(r)
	case message.AudioProcessorSetProcessing:
		p, err := resolve[plugin.AudioProcessor](d, r, "IAudioProcessor::setProcessing")
		if err != nil {
			return nil, err
		}
		return d.result(p.SetProcessing(r.State)), nil
	case message.AudioProcessorCanProcessSampleSize:
		p, err := resolve[plugin.AudioProcessor](d, r, "IAudioProcessor::canProcessSampleSize")
		if err != nil {
			return nil, err
		}
		return d.result(p.CanProcessSampleSize(r.SymbolicSampleSize)), nil
	case message.AudioProcessorProcess:
		p, err := resolve[plugin.AudioProcessor](d, r, "IAudioProcessor::process")
		if err != nil {
			return nil, err
		}
		data := r.Data
		res := p.Process(&data)
		return message.ProcessResponse{Result: d.result(res), Outputs: data.Outputs}, nil
	case message.HostApplicationGetName:
		h, err := resolve[plugin.HostApplication](d, r, "IHostApplication::getName")
		if err != nil {
			return nil, err
		}
		name, res := h.Name()
		return message.HostNameResult{Result: d.result(res), Name: name}, nil
	case message.HostContextDestruct:
		if _, err := d.retire(r.InstanceID, "IHostApplication::~IHostApplication", hostObject); err != nil {
			return nil, err
		}
		return message.Ack{}, nil
	default:
		return nil, fmt.Errorf("dispatch: no handler for %s", req.Kind())
	}
}

// resolve looks up the target of req as a T. An unknown target is logged once
// and returned as an error.
func resolve[T any](d *Dispatcher, req message.Targeted, where string) (T, error) {
	obj, err := registry.ResolveAs[T](d.objects, req.Target())
	if err != nil {
		d.logger.LogUnknownInstance(where, req.Target())
	}
	return obj, err
}

// retire drops id when its object satisfies match. Anything else is handled
// like an unknown target.
func (d *Dispatcher) retire(id message.InstanceID, where string, match func(any) bool) (any, error) {
	obj, err := d.objects.RetireIf(id, match)
	if err != nil {
		d.logger.LogUnknownInstance(where, id)
	}
	return obj, err
}

func (d *Dispatcher) result(r plugin.TResult) message.UniversalResult {
	return message.FromNative(r, d.abi)
}

func (d *Dispatcher) factoryConstruct() message.FactoryConstructResult {
	if d.factory == nil {
		res := message.Result(message.ResultNotImplemented)
		return message.FactoryConstructResult{Result: &res}
	}
	args := &message.FactoryConstructArgs{
		Info:       d.factory.Info(),
		NumClasses: d.factory.CountClasses(),
	}
	for i := int32(0); i < args.NumClasses; i++ {
		info, res := d.factory.ClassInfo(i)
		if !d.result(res).IsOK() {
			d.logger.Zap().Warn("skipping unreadable class", zap.Int32("index", i))
			continue
		}
		args.Classes = append(args.Classes, info)
	}
	return message.FactoryConstructResult{Args: args}
}

func (d *Dispatcher) componentConstruct(r message.ComponentConstruct) message.ComponentConstructResult {
	fail := func(code message.UniversalResult) message.ComponentConstructResult {
		return message.ComponentConstructResult{Result: &code}
	}
	if d.factory == nil {
		return fail(message.Result(message.ResultNotImplemented))
	}
	if !d.hasClass(r.CID) {
		d.resolver.Unsupported("IPluginFactory::createInstance", &r.CID)
		return fail(message.Result(message.ResultNoInterface))
	}

	obj, res := d.factory.CreateInstance(r.CID, plugin.ComponentIID)
	if code := d.result(res); !code.IsOK() {
		return fail(code)
	}
	if !plugin.Implements(obj, plugin.ComponentIID) {
		d.resolver.Unsupported("IPluginFactory::createInstance", &plugin.ComponentIID)
		return fail(message.Result(message.ResultNoInterface))
	}

	id := d.objects.Register(obj)
	d.logger.Zap().Debug("registered component",
		zap.Uint64("instance_id", uint64(id)), zap.Stringer("cid", r.CID))
	return message.ComponentConstructResult{Args: &message.ComponentConstructArgs{
		InstanceID: id,
		Interfaces: plugin.Capabilities(obj),
	}}
}

func (d *Dispatcher) hasClass(cid plugin.UID) bool {
	for i := int32(0); i < d.factory.CountClasses(); i++ {
		if info, res := d.factory.ClassInfo(i); d.result(res).IsOK() && info.CID == cid {
			return true
		}
	}
	return false
}

func hostObject(obj any) bool {
	_, ok := obj.(plugin.HostApplication)
	return ok
}

func pluginObject(obj any) bool {
	switch obj.(type) {
	case plugin.PluginBase, plugin.AudioProcessor:
		return true
	}
	return false
}

func anyObject(any) bool { return true }

func (d *Dispatcher) destruct(r message.ComponentDestruct) (message.Response, error) {
	d.mu.Lock()
	_, orphan := d.orphans[r.InstanceID]
	delete(d.orphans, r.InstanceID)
	delegated := false
	for _, id := range d.derived {
		if id == r.InstanceID {
			delegated = true
			break
		}
	}
	d.mu.Unlock()
	if orphan {
		// Already retired together with the object that handed it out.
		return message.Ack{}, nil
	}

	match := pluginObject
	if delegated {
		match = anyObject
	}
	if _, err := d.retire(r.InstanceID, "IComponent::~IComponent", match); err != nil {
		return nil, err
	}
	d.releaseContext(r.InstanceID)
	d.retireDerived(r.InstanceID)
	return message.Ack{}, nil
}

// retireDerived retires the objects parent handed out through plugin.Querier,
// and their own delegated objects in turn. The peer may still hold proxies for
// them; the destruct requests those proxies send later are acknowledged.
func (d *Dispatcher) retireDerived(parent message.InstanceID) {
	var children []message.InstanceID
	d.mu.Lock()
	for k, id := range d.derived {
		switch {
		case k.parent == parent:
			delete(d.derived, k)
			d.orphans[id] = struct{}{}
			children = append(children, id)
		case id == parent:
			delete(d.derived, k)
		}
	}
	d.mu.Unlock()

	for _, id := range children {
		if _, err := d.objects.Retire(id); err != nil {
			continue
		}
		d.releaseContext(id)
		d.retireDerived(id)
	}
}

func (d *Dispatcher) initialize(r message.ComponentInitialize) (message.Response, error) {
	c, err := resolve[plugin.PluginBase](d, r, "IPluginBase::initialize")
	if err != nil {
		return nil, err
	}

	var ctx plugin.HostApplication
	if r.HostContext != nil && d.hostContext != nil {
		ctx = d.hostContext(r.HostContext.InstanceID)
	}
	res := d.result(c.Initialize(ctx))
	if ctx == nil {
		return res, nil
	}
	if !res.IsOK() {
		release(ctx)
		return res, nil
	}

	d.mu.Lock()
	prev := d.contexts[r.InstanceID]
	d.contexts[r.InstanceID] = ctx
	d.mu.Unlock()
	if prev != nil {
		release(prev)
	}
	return res, nil
}

func (d *Dispatcher) terminate(r message.ComponentTerminate) (message.Response, error) {
	c, err := resolve[plugin.PluginBase](d, r, "IPluginBase::terminate")
	if err != nil {
		return nil, err
	}
	res := d.result(c.Terminate())
	d.releaseContext(r.InstanceID)
	return res, nil
}

func (d *Dispatcher) releaseContext(id message.InstanceID) {
	d.mu.Lock()
	ctx := d.contexts[id]
	delete(d.contexts, id)
	d.mu.Unlock()
	if ctx != nil {
		release(ctx)
	}
}

func release(ctx plugin.HostApplication) {
	if r, ok := ctx.(Releaser); ok {
		r.Release()
	}
}

// queryInterface hands out the instance itself when it implements iid, or an
// object it delegates to through plugin.Querier. Delegated objects are
// registered once per instance and interface.
func (d *Dispatcher) queryInterface(r message.QueryInterface) (message.Response, error) {
	obj, err := resolve[any](d, r, "FUnknown::queryInterface")
	if err != nil {
		return nil, err
	}
	if plugin.Implements(obj, r.IID) {
		return message.QueryInterfaceResult{Supported: &message.Supported{
			InstanceID: r.InstanceID,
			Interfaces: plugin.Capabilities(obj),
		}}, nil
	}

	key := derivedKey{parent: r.InstanceID, iid: r.IID}
	d.mu.Lock()
	id, ok := d.derived[key]
	d.mu.Unlock()
	if ok {
		if derived, err := d.objects.Resolve(id); err == nil {
			return message.QueryInterfaceResult{Supported: &message.Supported{
				InstanceID: id,
				Interfaces: plugin.Capabilities(derived),
			}}, nil
		}
	}

	if q, ok := obj.(plugin.Querier); ok {
		if derived, ok := q.QueryInterface(r.IID); ok && plugin.Implements(derived, r.IID) {
			id := d.objects.Register(derived)
			d.mu.Lock()
			d.derived[key] = id
			d.mu.Unlock()
			return message.QueryInterfaceResult{Supported: &message.Supported{
				InstanceID: id,
				Interfaces: plugin.Capabilities(derived),
			}}, nil
		}
	}

	where := fmt.Sprintf("FUnknown::queryInterface on #%d", r.InstanceID)
	if r.IID.IsZero() {
		return d.resolver.Unsupported(where, nil), nil
	}
	return d.resolver.Unsupported(where, &r.IID), nil
}
