package proxy

import (
	"mini-bridge/message"
	"mini-bridge/plugin"
)

// HostApplication is the host context the peer passed to Initialize.
type HostApplication struct {
	refcount
	s  *Session
	id message.InstanceID
}

// HostApplication returns the proxy for the host context the peer registered
// under id, holding one reference for the caller. Its signature matches
// dispatch.HostContextFunc.
func (s *Session) HostApplication(id message.InstanceID) plugin.HostApplication {
	return lookup(s, id, func() *HostApplication {
		return &HostApplication{refcount: newRefcount(), s: s, id: id}
	})
}

func (h *HostApplication) InstanceID() message.InstanceID {
	return h.id
}

func (h *HostApplication) Name() (string, plugin.TResult) {
	if err := h.alive(); err != nil {
		return "", h.s.native(message.UniversalResult{}, err)
	}
	resp, err := call[message.HostNameResult](h.s, message.HostApplicationGetName{InstanceID: h.id})
	return resp.Name, h.s.native(resp.Result, err)
}

// Release drops a reference. The last one lets the peer forget the context.
func (h *HostApplication) Release() {
	if !h.release() {
		return
	}
	h.s.proxies.Forget(h.id, h)
	call[message.Ack](h.s, message.HostContextDestruct{InstanceID: h.id})
}
