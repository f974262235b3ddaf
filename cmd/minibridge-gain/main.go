// Command minibridge-gain serves the gain reference plugin to hosts on a
// socket. Settings come from the MINIBRIDGE_* environment variables; when
// MINIBRIDGE_ETCD_ENDPOINTS is set the socket is announced under
// MINIBRIDGE_GROUP.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mini-bridge/bridge"
	"mini-bridge/config"
	"mini-bridge/discovery"
	"mini-bridge/plugin"
	"mini-bridge/plugins/gain"
)

func main() {
	network := flag.String("network", "unix", "network to listen on")
	addr := flag.String("addr", "/tmp/minibridge-gain.sock", "address to listen on")
	flag.Parse()

	opts, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	logger, sync, err := opts.NewLogger("plugin")
	if err != nil {
		log.Fatal(err)
	}
	defer sync()

	if *network == "unix" {
		os.Remove(*addr)
	}

	srv := bridge.NewServer(
		bridge.WithOptions(opts),
		bridge.WithLogger(logger),
		bridge.WithFactory(gain.NewFactory(opts.ABI)))

	if len(opts.EtcdEndpoints) > 0 {
		dir, err := discovery.NewEtcdDirectory(opts.EtcdEndpoints, logger.Zap())
		if err != nil {
			logger.Zap().Fatal("connecting to etcd failed", zap.Error(err))
		}
		defer dir.Close()
		srv.Announce(dir, discovery.EndpointInstance{
			Group:   opts.Group,
			Classes: []plugin.UID{gain.ClassID},
			Codec:   opts.Codec.String(),
			Version: config.Version,
		})
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		if err := srv.Shutdown(5 * time.Second); err != nil {
			logger.Zap().Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Zap().Info("serving", zap.String("network", *network), zap.String("addr", *addr),
		zap.String("version", config.Version))
	if err := srv.Serve(*network, *addr); err != nil {
		logger.Zap().Fatal("serve failed", zap.Error(err))
	}
}
