// Package gain is a small reference plugin: one factory class whose
// component scales every input channel by a gain factor. Gain changes are
// ramped linearly over one block.
package gain

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-vecmath"

	"mini-bridge/plugin"
)

var (
	ClassID           = plugin.NewUID(0x6D696E69, 0x62726964, 0x67656761, 0x696E0001)
	ControllerClassID = plugin.NewUID(0x6D696E69, 0x62726964, 0x67656761, 0x696E0002)
)

const (
	Vendor   = "mini-bridge"
	Category = "Audio Module Class"
	Name     = "Gain"

	manyInstances int32 = 0x7FFFFFFF
)

// Factory creates gain processors. Results use the table of the ABI it was
// built for.
type Factory struct {
	results plugin.Results
}

func NewFactory(abi plugin.ABI) *Factory {
	return &Factory{results: plugin.ResultsFor(abi)}
}

func (f *Factory) Info() plugin.FactoryInfo {
	return plugin.FactoryInfo{
		Vendor: Vendor,
		URL:    "https://example.invalid/mini-bridge",
		Flags:  plugin.FactoryUnicode,
	}
}

func (f *Factory) CountClasses() int32 { return 1 }

func (f *Factory) ClassInfo(index int32) (plugin.ClassInfo, plugin.TResult) {
	if index != 0 {
		return plugin.ClassInfo{}, f.results.InvalidArgument
	}
	return plugin.ClassInfo{
		CID:         ClassID,
		Cardinality: manyInstances,
		Category:    Category,
		Name:        Name,
	}, f.results.OK
}

func (f *Factory) CreateInstance(cid, iid plugin.UID) (any, plugin.TResult) {
	if cid != ClassID {
		return nil, f.results.InvalidArgument
	}
	p := NewProcessor(f.results)
	if !plugin.Implements(p, iid) {
		return nil, f.results.NoInterface
	}
	return p, f.results.OK
}

// Processor implements plugin.Component and plugin.AudioProcessor.
type Processor struct {
	results plugin.Results

	mu          sync.Mutex
	initialized bool
	active      bool
	processing  bool
	host        plugin.HostApplication
	hostName    string
	gain        float64
	target      float64
	ramp        []float64
}

func NewProcessor(results plugin.Results) *Processor {
	return &Processor{results: results, gain: 1, target: 1}
}

func (p *Processor) Initialize(context plugin.HostApplication) plugin.TResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return p.results.False
	}
	p.initialized = true
	p.host = context
	if context != nil {
		if name, res := context.Name(); res == p.results.OK {
			p.hostName = name
		}
	}
	return p.results.OK
}

func (p *Processor) Terminate() plugin.TResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return p.results.NotInitialized
	}
	p.initialized, p.active, p.processing = false, false, false
	p.host = nil
	return p.results.OK
}

func (p *Processor) GetControllerClassID() (plugin.UID, plugin.TResult) {
	return ControllerClassID, p.results.OK
}

func (p *Processor) SetActive(state bool) plugin.TResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return p.results.NotInitialized
	}
	p.active = state
	if !state {
		p.processing = false
	}
	return p.results.OK
}

func (p *Processor) SetProcessing(state bool) plugin.TResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state && !p.active {
		return p.results.NotInitialized
	}
	p.processing = state
	return p.results.OK
}

func (p *Processor) CanProcessSampleSize(symbolicSampleSize int32) plugin.TResult {
	switch symbolicSampleSize {
	case plugin.Sample32, plugin.Sample64:
		return p.results.OK
	default:
		return p.results.False
	}
}

// Process writes the scaled input of every bus into the matching output bus.
// Output channels without a matching input channel are silenced.
func (p *Processor) Process(data *plugin.ProcessData) plugin.TResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.processing {
		return p.results.NotInitialized
	}
	n := int(data.NumSamples)
	if n < 0 {
		return p.results.InvalidArgument
	}
	for _, out := range data.Outputs {
		for _, ch := range out.Channels {
			if len(ch) < n {
				return p.results.InvalidArgument
			}
		}
	}
	for _, in := range data.Inputs {
		for _, ch := range in.Channels {
			if len(ch) < n {
				return p.results.InvalidArgument
			}
		}
	}

	ramp := p.rampTo(n)
	for i := range data.Outputs {
		out := &data.Outputs[i]
		var in plugin.AudioBusBuffers
		if i < len(data.Inputs) {
			in = data.Inputs[i]
		}
		out.SilenceFlags = in.SilenceFlags
		for c, dst := range out.Channels {
			dst = dst[:n]
			if c >= len(in.Channels) {
				clear(dst)
				out.SilenceFlags |= 1 << uint(c)
				continue
			}
			vecmath.MulBlock(dst, in.Channels[c][:n], ramp)
		}
	}
	return p.results.OK
}

// rampTo returns n per-sample gain factors moving from the current gain to
// the target, and makes the target current.
func (p *Processor) rampTo(n int) []float64 {
	if cap(p.ramp) < n {
		p.ramp = make([]float64, n)
	}
	ramp := p.ramp[:n]
	step := (p.target - p.gain) / math.Max(float64(n), 1)
	for i := range ramp {
		ramp[i] = p.gain + step*float64(i+1)
	}
	if n > 0 {
		ramp[n-1] = p.target
		p.gain = p.target
	}
	return ramp
}

// SetGain sets the linear gain reached at the end of the next block.
func (p *Processor) SetGain(g float64) {
	p.mu.Lock()
	p.target = g
	p.mu.Unlock()
}

// Gain returns the gain currently applied.
func (p *Processor) Gain() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}

// HostName returns the name the host context reported on Initialize.
func (p *Processor) HostName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hostName
}
