package proxy

import (
	"slices"

	"mini-bridge/message"
	"mini-bridge/plugin"
)

// Component is a component living on the peer. It implements
// plugin.Component and plugin.AudioProcessor, but the audio processor methods
// answer kNoInterface without a round trip when the peer did not report that
// capability.
type Component struct {
	refcount
	s          *Session
	id         message.InstanceID
	interfaces []plugin.UID
}

func (s *Session) component(id message.InstanceID, interfaces []plugin.UID) *Component {
	return lookup(s, id, func() *Component {
		return &Component{refcount: newRefcount(), s: s, id: id, interfaces: interfaces}
	})
}

// InstanceID returns the id the peer registered the component under.
func (c *Component) InstanceID() message.InstanceID {
	return c.id
}

// Interfaces returns the capabilities the peer reported.
func (c *Component) Interfaces() []plugin.UID {
	return slices.Clone(c.interfaces)
}

// Supports reports whether the peer said the component implements iid.
func (c *Component) Supports(iid plugin.UID) bool {
	return slices.Contains(c.interfaces, iid)
}

// AddRef adds a local reference.
func (c *Component) AddRef() {
	c.acquire()
}

// Release drops a local reference. Dropping the last one destroys the
// component on the peer.
func (c *Component) Release() {
	if !c.release() {
		return
	}
	c.s.proxies.Forget(c.id, c)
	call[message.Ack](c.s, message.ComponentDestruct{InstanceID: c.id})
}

// Initialize passes host to the component. host is registered locally for the
// duration of the call chain so the peer can call back into it; the peer
// releases it when the component no longer needs it.
func (c *Component) Initialize(host plugin.HostApplication) plugin.TResult {
	if err := c.alive(); err != nil {
		return c.s.native(message.UniversalResult{}, err)
	}
	req := message.ComponentInitialize{InstanceID: c.id}
	var hostID message.InstanceID
	if host != nil {
		hostID = c.s.objects.Register(host)
		req.HostContext = &message.HostContextArgs{InstanceID: hostID}
	}
	res, err := call[message.UniversalResult](c.s, req)
	if err != nil && hostID != 0 {
		c.s.objects.Retire(hostID)
	}
	return c.s.native(res, err)
}

func (c *Component) Terminate() plugin.TResult {
	return c.result(message.ComponentTerminate{InstanceID: c.id})
}

func (c *Component) SetActive(state bool) plugin.TResult {
	return c.result(message.ComponentSetActive{InstanceID: c.id, State: state})
}

func (c *Component) GetControllerClassID() (plugin.UID, plugin.TResult) {
	if err := c.alive(); err != nil {
		return plugin.UID{}, c.s.native(message.UniversalResult{}, err)
	}
	resp, err := call[message.ControllerClassIDResult](c.s, message.ComponentGetControllerClassID{InstanceID: c.id})
	return resp.CID, c.s.native(resp.Result, err)
}

// QueryInterface asks the peer for iid. The result is this component when the
// peer answers with the same instance, or the proxy for another instance.
// Either way the caller owns one reference to it.
func (c *Component) QueryInterface(iid plugin.UID) (any, bool) {
	if c.alive() != nil {
		return nil, false
	}
	resp, err := call[message.QueryInterfaceResult](c.s, message.QueryInterface{InstanceID: c.id, IID: iid})
	if err != nil || resp.Supported == nil {
		return nil, false
	}
	if resp.Supported.InstanceID == c.id {
		if !c.acquire() {
			return nil, false
		}
		return c, true
	}
	return c.s.component(resp.Supported.InstanceID, resp.Supported.Interfaces), true
}

func (c *Component) SetProcessing(state bool) plugin.TResult {
	if !c.Supports(plugin.AudioProcessorIID) {
		return c.s.results.NoInterface
	}
	return c.result(message.AudioProcessorSetProcessing{InstanceID: c.id, State: state})
}

func (c *Component) CanProcessSampleSize(symbolicSampleSize int32) plugin.TResult {
	if !c.Supports(plugin.AudioProcessorIID) {
		return c.s.results.NoInterface
	}
	return c.result(message.AudioProcessorCanProcessSampleSize{InstanceID: c.id, SymbolicSampleSize: symbolicSampleSize})
}

// Process sends data to the peer and copies the processed output back into
// data.Outputs, reusing the caller's sample slices where the shapes match.
func (c *Component) Process(data *plugin.ProcessData) plugin.TResult {
	if !c.Supports(plugin.AudioProcessorIID) {
		return c.s.results.NoInterface
	}
	if err := c.alive(); err != nil {
		return c.s.native(message.UniversalResult{}, err)
	}
	resp, err := call[message.ProcessResponse](c.s, message.AudioProcessorProcess{InstanceID: c.id, Data: *data})
	if err != nil {
		return c.s.native(resp.Result, err)
	}
	copyOutputs(data, resp.Outputs)
	return c.s.native(resp.Result, nil)
}

func copyOutputs(data *plugin.ProcessData, outputs []plugin.AudioBusBuffers) {
	if len(outputs) != len(data.Outputs) {
		data.Outputs = outputs
		return
	}
	for i, bus := range outputs {
		dst := &data.Outputs[i]
		dst.SilenceFlags = bus.SilenceFlags
		if len(bus.Channels) != len(dst.Channels) {
			dst.Channels = bus.Channels
			continue
		}
		for ch, samples := range bus.Channels {
			if len(samples) == len(dst.Channels[ch]) {
				copy(dst.Channels[ch], samples)
			} else {
				dst.Channels[ch] = samples
			}
		}
	}
}

func (c *Component) result(req message.RequestOf[message.UniversalResult]) plugin.TResult {
	if err := c.alive(); err != nil {
		return c.s.native(message.UniversalResult{}, err)
	}
	return c.s.native(call[message.UniversalResult](c.s, req))
}
