// Command minibridge-host connects to a plugin endpoint as the host, lists
// the classes of its factory and runs one block of audio through every
// class that supports audio processing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"mini-bridge/bridge"
	"mini-bridge/config"
	"mini-bridge/discovery"
	"mini-bridge/plugin"
	"mini-bridge/proxy"
)

type host struct{}

func (host) Name() (string, plugin.TResult) { return "minibridge-host", 0 }

func main() {
	network := flag.String("network", "unix", "network of the plugin endpoint")
	addr := flag.String("addr", "/tmp/minibridge-gain.sock", "address of the plugin endpoint, ignored with -key")
	key := flag.String("key", "", "pick an endpoint of MINIBRIDGE_GROUP from etcd by this key")
	block := flag.Int("block", 64, "samples per processed block")
	flag.Parse()

	opts, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	logger, sync, err := opts.NewLogger("host")
	if err != nil {
		log.Fatal(err)
	}
	defer sync()

	bopts := []bridge.Option{bridge.WithOptions(opts), bridge.WithLogger(logger)}
	var ep *bridge.Endpoint
	if *key != "" {
		dir, err := discovery.NewEtcdDirectory(opts.EtcdEndpoints, logger.Zap())
		if err != nil {
			logger.Zap().Fatal("connecting to etcd failed", zap.Error(err))
		}
		defer dir.Close()
		ep, err = bridge.DialGroup(context.Background(), dir, opts.Group, *key, bopts...)
		if err != nil {
			logger.Zap().Fatal("dial failed", zap.Error(err))
		}
	} else {
		ep, err = bridge.Dial(*network, *addr, bopts...)
		if err != nil {
			logger.Zap().Fatal("dial failed", zap.Error(err))
		}
	}
	defer ep.Close()

	if err := run(ep, *block); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ep *bridge.Endpoint, block int) error {
	f, err := ep.Factory()
	if err != nil {
		return err
	}
	info := f.Info()
	fmt.Printf("%s (%s), %d classes\n", info.Vendor, info.URL, f.CountClasses())

	for i := int32(0); i < f.CountClasses(); i++ {
		class, res := f.ClassInfo(i)
		if res != 0 {
			continue
		}
		fmt.Printf("  %s %q %s\n", class.CID, class.Name, class.Category)

		obj, res := f.CreateInstance(class.CID, plugin.ComponentIID)
		if res != 0 {
			fmt.Printf("    createInstance: %d\n", res)
			continue
		}
		if err := exercise(obj.(*proxy.Component), block); err != nil {
			return err
		}
	}
	return ep.Err()
}

func exercise(c *proxy.Component, block int) error {
	defer c.Release()
	if res := c.Initialize(host{}); res != 0 {
		return fmt.Errorf("initialize: %d", res)
	}
	defer c.Terminate()

	if !c.Supports(plugin.AudioProcessorIID) {
		fmt.Println("    no audio processor")
		return nil
	}
	if res := c.SetActive(true); res != 0 {
		return fmt.Errorf("setActive: %d", res)
	}
	defer c.SetActive(false)
	if res := c.SetProcessing(true); res != 0 {
		return fmt.Errorf("setProcessing: %d", res)
	}
	defer c.SetProcessing(false)

	in := make([]float64, block)
	for i := range in {
		in[i] = 1
	}
	out := make([]float64, block)
	data := &plugin.ProcessData{
		SymbolicSampleSize: plugin.Sample64,
		NumSamples:         int32(block),
		Inputs:             []plugin.AudioBusBuffers{{Channels: [][]float64{in}}},
		Outputs:            []plugin.AudioBusBuffers{{Channels: [][]float64{out}}},
	}
	if res := c.Process(data); res != 0 {
		return fmt.Errorf("process: %d", res)
	}
	fmt.Printf("    processed %d samples, last output %g\n", block, out[block-1])
	return nil
}
