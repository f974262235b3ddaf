package proxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"mini-bridge/codec"
	"mini-bridge/dispatch"
	"mini-bridge/message"
	"mini-bridge/plugin"
	"mini-bridge/plugins/gain"
	"mini-bridge/protocol"
	"mini-bridge/registry"
	"mini-bridge/transport"
)

type testHost struct{ name string }

func (h testHost) Name() (string, plugin.TResult) { return h.name, 0 }

type side struct {
	conn    *transport.Conn
	objects *registry.Objects
	session *Session
}

// connect wires a host side and a plugin side serving the gain plugin.
func connect(t *testing.T) (host, plug side) {
	t.Helper()
	a, b := net.Pipe()
	host = side{conn: transport.NewConn(a, message.HostToPlugin), objects: registry.NewObjects()}
	plug = side{conn: transport.NewConn(b, message.PluginToHost), objects: registry.NewObjects()}
	host.session = NewSession(host.conn, host.objects)
	plug.session = NewSession(plug.conn, plug.objects)

	host.conn.Start(dispatch.New(host.objects))
	plug.conn.Start(dispatch.New(plug.objects,
		dispatch.WithFactory(gain.NewFactory(plugin.ABIPosix)),
		dispatch.WithHostContextProxy(plug.session.HostApplication)))
	t.Cleanup(func() {
		host.conn.Close()
		plug.conn.Close()
	})
	return host, plug
}

func createGain(t *testing.T, s *Session) *Component {
	t.Helper()
	f, err := NewFactory(s)
	if err != nil {
		t.Fatal(err)
	}
	obj, res := f.CreateInstance(gain.ClassID, plugin.ComponentIID)
	if res != 0 {
		t.Fatalf("createInstance returned %d", res)
	}
	return obj.(*Component)
}

func TestFactory(t *testing.T) {
	host, _ := connect(t)
	f, err := NewFactory(host.session)
	if err != nil {
		t.Fatal(err)
	}
	if f.Info().Vendor != gain.Vendor || f.CountClasses() != 1 {
		t.Fatalf("unexpected factory %+v", f.Info())
	}
	info, res := f.ClassInfo(0)
	if res != 0 || info.CID != gain.ClassID {
		t.Fatalf("unexpected class %+v (%d)", info, res)
	}
	if _, res := f.ClassInfo(3); res != host.session.results.InvalidArgument {
		t.Fatalf("expect kInvalidArgument, got %d", res)
	}
}

func TestLifecycle(t *testing.T) {
	host, plug := connect(t)
	c := createGain(t, host.session)

	if res := c.Initialize(testHost{"Test Host"}); res != 0 {
		t.Fatalf("initialize returned %d", res)
	}
	obj, err := plug.objects.Resolve(c.InstanceID())
	if err != nil {
		t.Fatal(err)
	}
	if name := obj.(*gain.Processor).HostName(); name != "Test Host" {
		t.Fatalf("plugin saw host name %q", name)
	}
	if host.objects.Len() != 1 {
		t.Fatalf("expect the host context to be registered, got %d objects", host.objects.Len())
	}

	if res := c.Terminate(); res != 0 {
		t.Fatalf("terminate returned %d", res)
	}
	if host.objects.Len() != 0 {
		t.Fatal("host context must be released after terminate")
	}
	if plug.session.Proxies().Len() != 0 {
		t.Fatal("plugin side must forget the host context proxy")
	}

	c.Release()
	if plug.objects.Len() != 0 {
		t.Fatal("component must be destroyed after the last release")
	}
	if host.session.Proxies().Len() != 0 {
		t.Fatal("host side must forget the component proxy")
	}

	if res := c.SetActive(true); res != host.session.results.InternalError {
		t.Fatalf("expect kInternalError through a released proxy, got %d", res)
	}
	if host.session.Err() != nil {
		t.Fatal("calls through a released proxy must not reach the peer")
	}
}

func TestQueryInterfaceIdentity(t *testing.T) {
	host, plug := connect(t)
	c := createGain(t, host.session)

	var wg sync.WaitGroup
	found := make([]any, 8)
	for i := range found {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			found[i], _ = c.QueryInterface(plugin.AudioProcessorIID)
		}(i)
	}
	wg.Wait()
	for i, p := range found {
		if p != c {
			t.Fatalf("query %d returned %v, want the same proxy", i, p)
		}
	}

	if p, ok := c.QueryInterface(plugin.EditControllerIID); ok || p != nil {
		t.Fatal("expect an unsupported interface to yield no proxy")
	}
	if host.session.Err() != nil {
		t.Fatal("an unsupported query must not be a protocol error")
	}

	// One reference from creation plus one per successful query.
	for range found {
		c.Release()
	}
	if plug.objects.Len() != 1 {
		t.Fatal("component destroyed while still referenced")
	}
	c.Release()
	if plug.objects.Len() != 0 {
		t.Fatal("component must be destroyed after the last release")
	}
}

func TestProcess(t *testing.T) {
	host, _ := connect(t)
	c := createGain(t, host.session)
	defer c.Release()

	c.Initialize(nil)
	if c.SetActive(true) != 0 || c.SetProcessing(true) != 0 {
		t.Fatal("activation failed")
	}
	if res := c.CanProcessSampleSize(plugin.Sample32); res != 0 {
		t.Fatalf("canProcessSampleSize returned %d", res)
	}

	out := []float64{0, 0, 0}
	data := &plugin.ProcessData{
		SymbolicSampleSize: plugin.Sample64,
		NumSamples:         3,
		Inputs:             []plugin.AudioBusBuffers{{Channels: [][]float64{{0.1, 0.2, 0.3}}}},
		Outputs:            []plugin.AudioBusBuffers{{Channels: [][]float64{out}}},
	}
	if res := c.Process(data); res != 0 {
		t.Fatalf("process returned %d", res)
	}
	if out[0] != 0.1 || out[1] != 0.2 || out[2] != 0.3 {
		t.Fatalf("output not written in place: %v", out)
	}

	cid, res := c.GetControllerClassID()
	if res != 0 || cid != gain.ControllerClassID {
		t.Fatalf("unexpected controller class %s (%d)", cid, res)
	}
}

func TestCreateInstanceFailures(t *testing.T) {
	host, plug := connect(t)
	f, err := NewFactory(host.session)
	if err != nil {
		t.Fatal(err)
	}

	if obj, res := f.CreateInstance(gain.ControllerClassID, plugin.ComponentIID); obj != nil || res != host.session.results.NoInterface {
		t.Fatalf("expect kNoInterface for an unknown class, got %v (%d)", obj, res)
	}
	if obj, res := f.CreateInstance(gain.ClassID, plugin.HostApplicationIID); obj != nil || res != host.session.results.NoInterface {
		t.Fatalf("expect kNoInterface for an unsupported interface, got %v (%d)", obj, res)
	}
	if plug.objects.Len() != 0 {
		t.Fatal("an instance created for an unsupported interface must be destroyed")
	}
}

func TestSeveredConnection(t *testing.T) {
	host, plug := connect(t)
	c := createGain(t, host.session)

	plug.conn.Close()
	<-host.conn.Done()

	if res := c.SetActive(true); res != host.session.results.InternalError {
		t.Fatalf("expect kInternalError, got %d", res)
	}
	if !errors.Is(host.session.Err(), transport.ErrChannelClosed) {
		t.Fatalf("expect ErrChannelClosed, got %v", host.session.Err())
	}
	if _, err := NewFactory(host.session); !errors.Is(err, transport.ErrChannelClosed) {
		t.Fatalf("expect ErrChannelClosed, got %v", err)
	}
}

func TestFactoryRefused(t *testing.T) {
	a, b := net.Pipe()
	hostConn := transport.NewConn(a, message.HostToPlugin)
	pluginConn := transport.NewConn(b, message.PluginToHost)
	hostConn.Start(nil)
	pluginConn.Start(dispatch.New(registry.NewObjects()))
	defer hostConn.Close()
	defer pluginConn.Close()

	_, err := NewFactory(NewSession(hostConn, registry.NewObjects()))
	var resultErr *ResultError
	if !errors.As(err, &resultErr) || resultErr.Result.Code != message.ResultNotImplemented {
		t.Fatalf("expect a kNotImplemented result error, got %v", err)
	}
}

// A factory answer holding neither the factory nor a result must fail the
// call instead of reaching the proxy.
func TestEmptyFactoryAnswer(t *testing.T) {
	a, b := net.Pipe()
	hostConn := transport.NewConn(a, message.HostToPlugin, transport.WithCodec(codec.CodecTypeJSON))
	hostConn.Start(nil)
	defer hostConn.Close()

	go func() {
		h, _, err := protocol.Decode(b)
		if err != nil {
			return
		}
		body := fmt.Sprintf(`{"kind":%d,"value":{}}`, message.KindFactoryConstructResult)
		protocol.Encode(b, &protocol.Header{
			CodecType: byte(codec.CodecTypeJSON),
			MsgType:   protocol.MsgTypeResponse,
			Direction: byte(message.HostToPlugin),
			Seq:       h.Seq,
		}, []byte(body))
		io.Copy(io.Discard, b)
	}()

	_, err := NewFactory(NewSession(hostConn, registry.NewObjects()))
	if !errors.Is(err, transport.ErrProtocol) || !errors.Is(err, codec.ErrMalformed) {
		t.Fatalf("expect a malformed-body protocol error, got %v", err)
	}
	<-hostConn.Done()
}
