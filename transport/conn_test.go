package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"mini-bridge/codec"
	"mini-bridge/message"
	"mini-bridge/protocol"
)

func pair(t *testing.T, hostHandler, pluginHandler Handler, hostOpts, pluginOpts []Option) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	host := NewConn(a, message.HostToPlugin, hostOpts...)
	plugin := NewConn(b, message.PluginToHost, pluginOpts...)
	host.Start(hostHandler)
	plugin.Start(pluginHandler)
	t.Cleanup(func() {
		host.Close()
		plugin.Close()
	})
	return host, plugin
}

func activeResult(state bool) message.UniversalResult {
	if state {
		return message.Result(message.ResultOK)
	}
	return message.Result(message.ResultFalse)
}

func TestCallsCompleteOutOfOrder(t *testing.T) {
	release := make(chan struct{})
	handler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		r := req.(message.ComponentSetActive)
		if r.InstanceID == 1 {
			<-release
		}
		return activeResult(r.State), nil
	})
	host, _ := pair(t, nil, handler, nil, nil)

	first := make(chan Result, 1)
	go func() {
		resp, err := host.Call(message.ComponentSetActive{InstanceID: 1, State: true})
		first <- Result{Response: resp, Err: err}
	}()

	// Instance 1 is still blocked on the serving side, yet instance 2 answers.
	resp, err := Invoke[message.UniversalResult](host, message.ComponentSetActive{InstanceID: 2, State: false})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Code != message.ResultFalse {
		t.Fatalf("expect kResultFalse, got %s", resp)
	}
	close(release)

	r := <-first
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if r.Response != message.Result(message.ResultOK) {
		t.Fatalf("expect kResultOk, got %v", r.Response)
	}
}

func TestConcurrentCalls(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		r := req.(message.ComponentSetActive)
		time.Sleep(time.Duration(r.InstanceID%5) * time.Millisecond)
		return activeResult(r.State), nil
	})
	host, _ := pair(t, nil, handler, nil, []Option{WithCodec(codec.CodecTypeJSON)})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id message.InstanceID) {
			defer wg.Done()
			state := id%2 == 0
			resp, err := Invoke[message.UniversalResult](host, message.ComponentSetActive{InstanceID: id, State: state})
			if err != nil {
				t.Errorf("call #%d: %v", id, err)
				return
			}
			if resp != activeResult(state) {
				t.Errorf("call #%d: got %s", id, resp)
			}
		}(message.InstanceID(i))
	}
	wg.Wait()
}

func TestNestedCallbackDuringCall(t *testing.T) {
	var plugin *Conn
	pluginHandler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		// Ask the host for its name while the host is still waiting on us.
		name, err := Invoke[message.HostNameResult](plugin, message.HostApplicationGetName{InstanceID: 9})
		if err != nil {
			return nil, err
		}
		if name.Name != "Test Host" {
			return message.Result(message.ResultFalse), nil
		}
		return message.Result(message.ResultOK), nil
	})
	hostHandler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		if dir != message.PluginToHost {
			t.Errorf("expect plugin -> host, got %s", dir)
		}
		return message.HostNameResult{Result: message.Result(message.ResultOK), Name: "Test Host"}, nil
	})
	var host *Conn
	host, plugin = pair(t, hostHandler, pluginHandler, nil, nil)

	done := make(chan error, 1)
	go func() {
		resp, err := Invoke[message.UniversalResult](host, message.ComponentInitialize{
			InstanceID:  3,
			HostContext: &message.HostContextArgs{InstanceID: 9},
		})
		if err == nil && !resp.IsOK() {
			err = errors.New("unexpected result " + resp.String())
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nested callback deadlocked")
	}
}

func TestSeverDuringCall(t *testing.T) {
	a, raw := net.Pipe()
	host := NewConn(a, message.HostToPlugin)
	host.Start(nil)
	defer host.Close()

	done := make(chan error, 1)
	go func() {
		_, err := host.Call(message.ComponentTerminate{InstanceID: 7})
		done <- err
	}()

	h, body, err := protocol.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	v, err := codec.GetCodec(codec.CodecType(h.CodecType)).Decode(body)
	if err != nil {
		t.Fatal(err)
	}
	if v != (message.ComponentTerminate{InstanceID: 7}) {
		t.Fatalf("unexpected request %#v", v)
	}
	raw.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrChannelClosed) {
			t.Fatalf("expect ErrChannelClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight call was not woken")
	}

	if _, err := host.Call(message.ComponentTerminate{InstanceID: 7}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expect ErrChannelClosed for a later call, got %v", err)
	}
	if !errors.Is(host.Wait(), ErrChannelClosed) {
		t.Fatal("Wait must report the teardown")
	}
}

func TestUnknownTagTearsDown(t *testing.T) {
	raw, b := net.Pipe()
	plugin := NewConn(b, message.PluginToHost)
	plugin.Start(HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		t.Error("handler must not see an undecodable request")
		return nil, nil
	}))
	defer plugin.Close()

	go protocol.Encode(raw, &protocol.Header{
		CodecType: protocol.CodecTypeBinary,
		MsgType:   protocol.MsgTypeRequest,
		Direction: protocol.DirectionHostToPlugin,
		Seq:       5,
	}, protowire.AppendVarint(nil, 999))

	h, _, err := protocol.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if h.MsgType != protocol.MsgTypeError || h.Seq != 5 {
		t.Fatalf("expect error frame for seq 5, got %s seq %d", h.MsgType, h.Seq)
	}

	select {
	case <-plugin.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection not torn down")
	}
	err = plugin.Err()
	if !errors.Is(err, ErrProtocol) || !errors.Is(err, codec.ErrUnknownTag) || !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("unexpected teardown reason %v", err)
	}
}

// An error frame about one of the peer's requests must not be taken as the
// answer to ours, even when the sequence numbers collide.
func TestErrorFrameForPeerRequest(t *testing.T) {
	raw, a := net.Pipe()
	host := NewConn(a, message.HostToPlugin)
	host.Start(nil)
	defer host.Close()

	go func() {
		h, _, err := protocol.Decode(raw)
		if err != nil {
			return
		}
		protocol.Encode(raw, &protocol.Header{
			CodecType: protocol.CodecTypeBinary,
			MsgType:   protocol.MsgTypeError,
			Direction: protocol.DirectionPluginToHost,
			Seq:       h.Seq,
		}, []byte("cannot decode response"))
		for {
			if _, _, err := protocol.Decode(raw); err != nil {
				return
			}
		}
	}()

	_, err := host.Call(message.ComponentTerminate{InstanceID: 1})
	if !errors.Is(err, ErrChannelClosed) || !errors.Is(err, ErrProtocol) {
		t.Fatalf("expect the teardown error, got %v", err)
	}
	<-host.Done()
}

func TestHandlerErrorRejectsCall(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		return nil, errors.New("unknown instance #999")
	})
	host, plugin := pair(t, nil, handler, nil, nil)

	_, err := host.Call(message.ComponentTerminate{InstanceID: 999})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expect ErrProtocol, got %v", err)
	}
	<-host.Done()
	<-plugin.Done()
	if _, err := host.Call(message.ComponentTerminate{InstanceID: 1}); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expect ErrChannelClosed, got %v", err)
	}
}

func TestRequestsRejectedWithoutHandler(t *testing.T) {
	host, _ := pair(t, nil, nil, nil, nil)
	if _, err := host.Call(message.WantsConfiguration{}); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expect ErrProtocol, got %v", err)
	}
}

func TestHeartbeatAndTaps(t *testing.T) {
	var heartbeats, requests, responses atomic.Int32
	tap := func(e Event) {
		if e.Outgoing {
			return
		}
		switch e.MsgType {
		case protocol.MsgTypeHeartbeat:
			heartbeats.Add(1)
		case protocol.MsgTypeRequest:
			if _, ok := e.Request(); ok {
				requests.Add(1)
			}
		case protocol.MsgTypeResponse:
			if _, ok := e.Response(); ok {
				responses.Add(1)
			}
		}
	}
	handler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		return message.Ack{}, nil
	})
	host, _ := pair(t, nil, handler,
		[]Option{WithHeartbeat(5 * time.Millisecond), WithTap(tap)},
		[]Option{WithTap(tap)})

	if _, err := Invoke[message.Ack](host, message.ComponentDestruct{InstanceID: 1}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for heartbeats.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if heartbeats.Load() < 2 {
		t.Fatalf("expect heartbeats, saw %d", heartbeats.Load())
	}
	if requests.Load() != 1 || responses.Load() != 1 {
		t.Fatalf("expect 1 request and 1 response, saw %d and %d", requests.Load(), responses.Load())
	}
}

func TestWrongResponseTypeIsProtocolError(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, dir message.Direction, req message.Request) (message.Response, error) {
		return message.Ack{}, nil
	})
	host, _ := pair(t, nil, handler, nil, nil)
	if _, err := Invoke[message.UniversalResult](host, message.ComponentTerminate{InstanceID: 1}); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expect ErrProtocol, got %v", err)
	}
	<-host.Done()
}
