package gain

import (
	"testing"

	"mini-bridge/plugin"
)

type host struct{ name string }

func (h host) Name() (string, plugin.TResult) { return h.name, 0 }

func process(t *testing.T, p *Processor, in []float64) []float64 {
	t.Helper()
	out := make([]float64, len(in))
	data := &plugin.ProcessData{
		SymbolicSampleSize: plugin.Sample64,
		NumSamples:         int32(len(in)),
		Inputs:             []plugin.AudioBusBuffers{{Channels: [][]float64{in}}},
		Outputs:            []plugin.AudioBusBuffers{{Channels: [][]float64{out}}},
	}
	if res := p.Process(data); res != p.results.OK {
		t.Fatalf("process returned %d", res)
	}
	return data.Outputs[0].Channels[0]
}

func TestFactory(t *testing.T) {
	f := NewFactory(plugin.ABIPosix)
	info, res := f.ClassInfo(0)
	if res != 0 || info.CID != ClassID || info.Name != Name {
		t.Fatalf("unexpected class info %+v (%d)", info, res)
	}
	if _, res := f.ClassInfo(1); res != f.results.InvalidArgument {
		t.Fatalf("expect kInvalidArgument, got %d", res)
	}
	if _, res := f.CreateInstance(ControllerClassID, plugin.ComponentIID); res != f.results.InvalidArgument {
		t.Fatalf("expect kInvalidArgument, got %d", res)
	}
	if _, res := f.CreateInstance(ClassID, plugin.HostApplicationIID); res != f.results.NoInterface {
		t.Fatalf("expect kNoInterface, got %d", res)
	}
	obj, res := f.CreateInstance(ClassID, plugin.ComponentIID)
	if res != f.results.OK {
		t.Fatalf("expect kResultOk, got %d", res)
	}
	if !plugin.Implements(obj, plugin.AudioProcessorIID) {
		t.Fatal("gain must be an audio processor")
	}
}

func TestLifecycle(t *testing.T) {
	p := NewProcessor(plugin.ResultsFor(plugin.ABIWindows))
	r := p.results

	if res := p.SetActive(true); res != r.NotInitialized {
		t.Fatalf("expect kNotInitialized before initialize, got %d", res)
	}
	if res := p.Initialize(host{"Test Host"}); res != r.OK {
		t.Fatalf("initialize: %d", res)
	}
	if res := p.Initialize(nil); res != r.False {
		t.Fatalf("expect kResultFalse on second initialize, got %d", res)
	}
	if p.HostName() != "Test Host" {
		t.Fatalf("unexpected host name %q", p.HostName())
	}
	if res := p.SetProcessing(true); res != r.NotInitialized {
		t.Fatalf("expect kNotInitialized while inactive, got %d", res)
	}
	if p.SetActive(true) != r.OK || p.SetProcessing(true) != r.OK {
		t.Fatal("activation failed")
	}
	if res := p.CanProcessSampleSize(7); res != r.False {
		t.Fatalf("expect kResultFalse, got %d", res)
	}
	if res := p.Terminate(); res != r.OK {
		t.Fatalf("terminate: %d", res)
	}
	if res := p.Terminate(); res != r.NotInitialized {
		t.Fatalf("expect kNotInitialized on second terminate, got %d", res)
	}
}

func TestProcessRampsGain(t *testing.T) {
	p := NewProcessor(plugin.ResultsFor(plugin.ABIPosix))
	p.Initialize(nil)
	p.SetActive(true)
	p.SetProcessing(true)

	in := []float64{1, 1, 1, 1}
	out := process(t, p, in)
	for i, v := range out {
		if v != 1 {
			t.Fatalf("unity gain: sample %d = %v", i, v)
		}
	}

	p.SetGain(0)
	out = process(t, p, in)
	want := []float64{0.75, 0.5, 0.25, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("ramp: sample %d = %v, want %v", i, out[i], want[i])
		}
	}
	if p.Gain() != 0 {
		t.Fatalf("gain after ramp = %v", p.Gain())
	}
}

func TestProcessRejectsShortBuffers(t *testing.T) {
	p := NewProcessor(plugin.ResultsFor(plugin.ABIPosix))
	p.Initialize(nil)
	p.SetActive(true)
	p.SetProcessing(true)

	data := &plugin.ProcessData{
		NumSamples: 8,
		Inputs:     []plugin.AudioBusBuffers{{Channels: [][]float64{make([]float64, 4)}}},
		Outputs:    []plugin.AudioBusBuffers{{Channels: [][]float64{make([]float64, 8)}}},
	}
	if res := p.Process(data); res != p.results.InvalidArgument {
		t.Fatalf("expect kInvalidArgument, got %d", res)
	}
}

func TestProcessSilencesMissingInput(t *testing.T) {
	p := NewProcessor(plugin.ResultsFor(plugin.ABIPosix))
	p.Initialize(nil)
	p.SetActive(true)
	p.SetProcessing(true)

	data := &plugin.ProcessData{
		NumSamples: 2,
		Outputs:    []plugin.AudioBusBuffers{{Channels: [][]float64{{9, 9}}}},
	}
	if res := p.Process(data); res != p.results.OK {
		t.Fatalf("process returned %d", res)
	}
	if data.Outputs[0].Channels[0][0] != 0 || data.Outputs[0].SilenceFlags != 1 {
		t.Fatalf("expect silenced channel, got %+v", data.Outputs[0])
	}
}
