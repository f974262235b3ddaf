package registry

import (
	"sync"

	"mini-bridge/message"
)

// Proxies maps remote instance identifiers to the local proxy standing in for
// them.
type Proxies struct {
	mu      sync.RWMutex
	proxies map[message.InstanceID]any
}

func NewProxies() *Proxies {
	return &Proxies{proxies: make(map[message.InstanceID]any)}
}

// Load returns the proxy for id, if one exists.
func (p *Proxies) Load(id message.InstanceID) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proxy, ok := p.proxies[id]
	return proxy, ok
}

// LoadOrCreate returns the existing proxy for id, or stores and returns the
// one built by create. loaded reports whether the proxy already existed.
// create runs at most once per id while the entry is live.
func (p *Proxies) LoadOrCreate(id message.InstanceID, create func() any) (proxy any, loaded bool) {
	if proxy, ok := p.Load(id); ok {
		return proxy, true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if proxy, ok := p.proxies[id]; ok {
		return proxy, true
	}
	proxy = create()
	p.proxies[id] = proxy
	return proxy, false
}

// Forget removes the entry for id if it still refers to proxy.
func (p *Proxies) Forget(id message.InstanceID, proxy any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.proxies[id]; ok && cur == proxy {
		delete(p.proxies, id)
	}
}

// Len returns the number of live proxies.
func (p *Proxies) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.proxies)
}
