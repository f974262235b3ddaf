// Package logging renders the values crossing the bridge as human-readable
// log lines.
//
// Rendering is gated on a verbosity level checked before any formatting, so
// call sites on the audio thread pay a single comparison when logging is off.
// Audio processing calls are only rendered at AllEvents.
package logging

import (
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mini-bridge/message"
	"mini-bridge/plugin"
)

type Verbosity int

const (
	// Basic logs only lifecycle events and errors.
	Basic Verbosity = 0
	// MostEvents also logs every request and response, except audio processing.
	MostEvents Verbosity = 1
	// AllEvents also logs audio processing calls.
	AllEvents Verbosity = 2
)

// Logger is safe for concurrent use.
type Logger struct {
	zap       *zap.Logger
	verbosity Verbosity

	unknown    *rate.Limiter
	suppressed atomic.Int64
}

// New wraps z. A nil z discards everything.
func New(z *zap.Logger, verbosity Verbosity) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{
		zap:       z,
		verbosity: verbosity,
		unknown:   rate.NewLimiter(rate.Every(100*time.Millisecond), 20),
	}
}

// Nop returns a logger that never renders anything.
func Nop() *Logger {
	return New(nil, Basic)
}

func (l *Logger) Verbosity() Verbosity {
	return l.verbosity
}

// Enabled reports whether events of level v are rendered.
func (l *Logger) Enabled(v Verbosity) bool {
	return l.verbosity >= v
}

// Zap returns the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Log writes a plain line regardless of verbosity.
func (l *Logger) Log(line string) {
	l.zap.Info(line)
}

// LogUnknownInterface records a capability query that could not be satisfied.
// iid is nil when the caller did not pass a usable id. Bursts are throttled;
// the number of dropped lines is reported with the next line that gets through.
func (l *Logger) LogUnknownInterface(where string, iid *plugin.UID) {
	if !l.Enabled(MostEvents) {
		return
	}
	if !l.unknown.Allow() {
		l.suppressed.Add(1)
		return
	}

	uid := "<invalid_pointer>"
	if iid != nil {
		uid = iid.String()
		if name := iid.Name(); name != "" {
			uid += " (" + name + ")"
		}
	}

	var b strings.Builder
	b.WriteString("[unknown interface] ")
	b.WriteString(where)
	b.WriteString(": ")
	b.WriteString(uid)

	fields := []zap.Field{zap.String("where", where)}
	if n := l.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	l.zap.Info(b.String(), fields...)
}

// LogUnknownInstance records a request that named an instance the serving
// side does not know. This is a protocol violation and is always logged.
func (l *Logger) LogUnknownInstance(where string, id message.InstanceID) {
	l.zap.Warn("[unknown instance] "+where,
		zap.Uint64("instance_id", uint64(id)))
}

// LogRequest renders req as seen by the side that received or sent it.
func (l *Logger) LogRequest(dir message.Direction, req message.Request) {
	if !l.Enabled(levelFor(req)) {
		return
	}
	l.zap.Info(requestPrefix(dir)+RenderRequest(req),
		zap.Stringer("kind", req.Kind()))
}

// LogResponse renders the response to req.
func (l *Logger) LogResponse(dir message.Direction, req message.Request, resp message.Response) {
	if !l.Enabled(levelFor(req)) {
		return
	}
	l.zap.Info(responsePrefix(dir)+RenderResponse(resp),
		zap.Stringer("kind", resp.Kind()))
}

func levelFor(req message.Request) Verbosity {
	switch req.(type) {
	case message.AudioProcessorProcess, message.AudioProcessorSetProcessing,
		message.AudioProcessorCanProcessSampleSize:
		return AllEvents
	default:
		return MostEvents
	}
}

func requestPrefix(dir message.Direction) string {
	if dir == message.HostToPlugin {
		return "[host -> plugin] >> "
	}
	return "[plugin -> host] >> "
}

func responsePrefix(dir message.Direction) string {
	if dir == message.HostToPlugin {
		return "[host <- plugin]    "
	}
	return "[plugin <- host]    "
}
