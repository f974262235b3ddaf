// Package config reads the bridge's settings from the environment.
//
//	MINIBRIDGE_DEBUG_LEVEL      0, 1 or 2 (basic, most events, all events)
//	MINIBRIDGE_DEBUG_FILE       log to this file instead of stderr
//	MINIBRIDGE_CODEC            binary or json
//	MINIBRIDGE_HEARTBEAT        Go duration, 0 disables heartbeats
//	MINIBRIDGE_ABI              posix or windows
//	MINIBRIDGE_ETCD_ENDPOINTS   comma separated etcd endpoints
//	MINIBRIDGE_GROUP            plugin group name
//	MINIBRIDGE_FRAME_RATE       editor frame rate served to the plugin side
//	MINIBRIDGE_HIDE_DAW         report a generic host name to plugins
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mini-bridge/codec"
	"mini-bridge/logging"
	"mini-bridge/message"
	"mini-bridge/plugin"
)

// Version is reported to the peer in the Configuration response.
const Version = "0.3.0"

// ErrInvalid wraps every malformed environment value.
var ErrInvalid = errors.New("config: invalid value")

type Options struct {
	Verbosity     logging.Verbosity
	LogFile       string
	Codec         codec.CodecType
	Heartbeat     time.Duration
	ABI           plugin.ABI
	EtcdEndpoints []string
	Group         string
	FrameRate     float64 // zero means unset
	HideDAW       bool
}

// Default returns the settings used when nothing is configured.
func Default() Options {
	return Options{
		Verbosity: logging.Basic,
		Codec:     codec.CodecTypeBinary,
		Heartbeat: 30 * time.Second,
		ABI:       plugin.ABIPosix,
	}
}

// FromEnv returns Default overridden by the process environment.
func FromEnv() (Options, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv with a custom variable source.
func FromLookup(lookup func(string) (string, bool)) (Options, error) {
	o := Default()

	if v, ok := lookup("MINIBRIDGE_DEBUG_LEVEL"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < int(logging.Basic) {
			return o, fmt.Errorf("%w: MINIBRIDGE_DEBUG_LEVEL=%q", ErrInvalid, v)
		}
		o.Verbosity = logging.Verbosity(min(n, int(logging.AllEvents)))
	}
	if v, ok := lookup("MINIBRIDGE_DEBUG_FILE"); ok {
		o.LogFile = v
	}
	if v, ok := lookup("MINIBRIDGE_CODEC"); ok {
		switch strings.ToLower(v) {
		case "binary", "":
			o.Codec = codec.CodecTypeBinary
		case "json":
			o.Codec = codec.CodecTypeJSON
		default:
			return o, fmt.Errorf("%w: MINIBRIDGE_CODEC=%q", ErrInvalid, v)
		}
	}
	if v, ok := lookup("MINIBRIDGE_HEARTBEAT"); ok {
		d, err := time.ParseDuration(v)
		if v == "0" {
			d, err = 0, nil
		}
		if err != nil || d < 0 {
			return o, fmt.Errorf("%w: MINIBRIDGE_HEARTBEAT=%q", ErrInvalid, v)
		}
		o.Heartbeat = d
	}
	if v, ok := lookup("MINIBRIDGE_ABI"); ok {
		switch strings.ToLower(v) {
		case "posix":
			o.ABI = plugin.ABIPosix
		case "windows":
			o.ABI = plugin.ABIWindows
		default:
			return o, fmt.Errorf("%w: MINIBRIDGE_ABI=%q", ErrInvalid, v)
		}
	}
	if v, ok := lookup("MINIBRIDGE_ETCD_ENDPOINTS"); ok {
		for _, ep := range strings.Split(v, ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				o.EtcdEndpoints = append(o.EtcdEndpoints, ep)
			}
		}
	}
	if v, ok := lookup("MINIBRIDGE_GROUP"); ok {
		o.Group = v
	}
	if v, ok := lookup("MINIBRIDGE_FRAME_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return o, fmt.Errorf("%w: MINIBRIDGE_FRAME_RATE=%q", ErrInvalid, v)
		}
		o.FrameRate = f
	}
	if v, ok := lookup("MINIBRIDGE_HIDE_DAW"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, fmt.Errorf("%w: MINIBRIDGE_HIDE_DAW=%q", ErrInvalid, v)
		}
		o.HideDAW = b
	}
	return o, nil
}

// Configuration is the value the host side answers WantsConfiguration with.
func (o Options) Configuration() message.Configuration {
	c := message.Configuration{
		Version:      Version,
		LogVerbosity: int32(o.Verbosity),
		HideDAW:      o.HideDAW,
	}
	if o.FrameRate > 0 {
		rate := o.FrameRate
		c.FrameRate = &rate
	}
	if o.Group != "" {
		group := o.Group
		c.Group = &group
	}
	return c
}

// NewLogger builds the logger described by o. name tags every line, e.g.
// "host" or "plugin". The returned function flushes buffered output.
func (o Options) NewLogger(name string) (*logging.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if o.Verbosity == logging.Basic {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if o.LogFile != "" {
		cfg.OutputPaths = []string{o.LogFile}
		cfg.ErrorOutputPaths = []string{o.LogFile}
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	z = z.Named(name)
	return logging.New(z, o.Verbosity), func() { z.Sync() }, nil
}
