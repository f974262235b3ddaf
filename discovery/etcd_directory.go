package discovery

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// Entries live under /mini-bridge/{group}/{escaped addr}; the value is the
// JSON-encoded EndpointInstance. Every entry is attached to a lease, so a
// crashed server disappears once its lease runs out.
const keyPrefix = "/mini-bridge/"

// EtcdDirectory implements Directory on etcd v3.
type EtcdDirectory struct {
	client *clientv3.Client
	logger *zap.Logger
}

// NewEtcdDirectory connects to the given etcd endpoints.
func NewEtcdDirectory(endpoints []string, logger *zap.Logger) (*EtcdDirectory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 2 * time.Second,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, err
	}
	return &EtcdDirectory{client: c, logger: logger}, nil
}

func (d *EtcdDirectory) Close() error {
	return d.client.Close()
}

func groupPrefix(group string) string {
	return keyPrefix + url.PathEscape(group) + "/"
}

func instanceKey(group, addr string) string {
	return groupPrefix(group) + url.PathEscape(addr)
}

// Register announces instance under a lease of ttl seconds and keeps the
// lease alive until Deregister or until ctx is done.
func (d *EtcdDirectory) Register(ctx context.Context, instance EndpointInstance, ttl int64) error {
	lease, err := d.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = d.client.Put(ctx, instanceKey(instance.Group, instance.Addr), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := d.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
		d.logger.Debug("lease keepalive stopped",
			zap.String("group", instance.Group), zap.String("addr", instance.Addr))
	}()
	return nil
}

func (d *EtcdDirectory) Deregister(ctx context.Context, group, addr string) error {
	_, err := d.client.Delete(ctx, instanceKey(group, addr))
	return err
}

// Discover returns every endpoint currently registered for group.
func (d *EtcdDirectory) Discover(ctx context.Context, group string) ([]EndpointInstance, error) {
	resp, err := d.client.Get(ctx, groupPrefix(group), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]EndpointInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance EndpointInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			d.logger.Warn("skipping malformed directory entry",
				zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Watch emits the full endpoint list of group after every change, until ctx
// is done.
func (d *EtcdDirectory) Watch(ctx context.Context, group string) <-chan []EndpointInstance {
	ch := make(chan []EndpointInstance, 1)

	go func() {
		defer close(ch)
		watchChan := d.client.Watch(ctx, groupPrefix(group), clientv3.WithPrefix())
		for range watchChan {
			instances, err := d.Discover(ctx, group)
			if err != nil {
				d.logger.Warn("re-reading directory failed", zap.String("group", group), zap.Error(err))
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
