package discovery

import (
	"errors"
	"fmt"
	"hash/crc32"
	"sort"
)

// ErrNoEndpoints is returned by Pick on an empty ring.
var ErrNoEndpoints = errors.New("discovery: no endpoints available")

// Ring maps keys, usually plugin class ids, to endpoints by consistent
// hashing. The same key keeps landing on the same endpoint as long as that
// endpoint stays in the ring; removing one endpoint only moves its own keys.
//
//	       0
//	     ╱   ╲
//	B ●         ● A
//	  │  key ◆──►│   (clockwise to the nearest node → A)
//	C ●         ● A'  (virtual node of A)
//	     ╲   ╱
type Ring struct {
	replicas int
	ring     []uint32
	nodes    map[uint32]*EndpointInstance
}

// NewRing builds a ring over instances with 100 virtual nodes each.
func NewRing(instances []EndpointInstance) *Ring {
	r := &Ring{replicas: 100, nodes: make(map[uint32]*EndpointInstance)}
	for i := range instances {
		r.Add(&instances[i])
	}
	return r
}

// Add places instance on the ring.
func (r *Ring) Add(instance *EndpointInstance) {
	for i := 0; i < r.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.Addr, i)))
		r.ring = append(r.ring, hash)
		r.nodes[hash] = instance
	}
	sort.Slice(r.ring, func(i, j int) bool { return r.ring[i] < r.ring[j] })
}

// Pick returns the endpoint responsible for key.
func (r *Ring) Pick(key string) (*EndpointInstance, error) {
	if len(r.ring) == 0 {
		return nil, ErrNoEndpoints
	}
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(r.ring), func(i int) bool { return r.ring[i] >= hash })
	if idx == len(r.ring) {
		idx = 0
	}
	return r.nodes[r.ring[idx]], nil
}
