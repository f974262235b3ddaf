package bridge

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"mini-bridge/discovery"
	"mini-bridge/plugin"
	"mini-bridge/plugins/gain"
)

func etcdDirectory(t *testing.T) *discovery.EtcdDirectory {
	t.Helper()
	d, err := discovery.NewEtcdDirectory([]string{"localhost:2379"}, zap.NewNop())
	if err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.Discover(ctx, "probe"); err != nil {
		d.Close()
		t.Skipf("etcd not available: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// TestGroupWithEtcd runs two plugin servers announced in etcd and reaches
// each of them through DialGroup.
//
//	host → etcd lookup → ring → unix socket → Endpoint → Dispatcher → gain
func TestGroupWithEtcd(t *testing.T) {
	dir := etcdDirectory(t)
	group := fmt.Sprintf("test-%d", time.Now().UnixNano())
	sockets := t.TempDir()

	var servers []*Server
	for i := 0; i < 2; i++ {
		srv := NewServer(WithFactory(gain.NewFactory(plugin.ABIPosix)))
		srv.Announce(dir, discovery.EndpointInstance{Group: group, Classes: []plugin.UID{gain.ClassID}})
		go srv.Serve("unix", filepath.Join(sockets, fmt.Sprintf("gain-%d.sock", i)))
		<-srv.Ready()
		servers = append(servers, srv)
	}

	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if instances, _ := dir.Discover(ctx, group); len(instances) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for i := 0; i < 8; i++ {
		host, err := DialGroup(ctx, dir, group, fmt.Sprintf("track-%d", i))
		if err != nil {
			t.Fatal(err)
		}
		c := createGain(t, host)
		if res := c.Initialize(testHost{}); res != 0 {
			t.Fatalf("initialize returned %d", res)
		}
		if res := c.Terminate(); res != 0 {
			t.Fatalf("terminate returned %d", res)
		}
		c.Release()
		host.Close()
	}

	for _, srv := range servers {
		if err := srv.Shutdown(3 * time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if instances, _ := dir.Discover(ctx, group); len(instances) != 0 {
		t.Fatalf("expect no instances after shutdown, got %d", len(instances))
	}
}
