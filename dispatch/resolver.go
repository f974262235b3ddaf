package dispatch

import (
	"mini-bridge/logging"
	"mini-bridge/message"
	"mini-bridge/plugin"
)

// Resolver answers capability queries that cannot be satisfied. Every such
// query gets the same unsupported marker whether the id was malformed,
// unrecognized, or recognized but not implemented; the distinction only shows
// up in the log.
type Resolver struct {
	logger *logging.Logger
}

func NewResolver(l *logging.Logger) *Resolver {
	if l == nil {
		l = logging.Nop()
	}
	return &Resolver{logger: l}
}

// Unsupported records where the query came from and which id was asked for.
// iid is nil when the caller passed no usable id.
func (r *Resolver) Unsupported(where string, iid *plugin.UID) message.QueryInterfaceResult {
	r.logger.LogUnknownInterface(where, iid)
	return message.QueryInterfaceResult{Unsupported: &message.Unsupported{}}
}
