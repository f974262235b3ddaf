// Package registry maps instance identifiers to objects on both sides of the
// bridge.
//
// The serving side keeps the only strong reference to every real object in
// Objects; the peer holds nothing but the identifier. The calling side keeps a
// Proxies table so that repeated lookups of the same remote instance return
// the same local proxy.
//
// Both tables are read far more often than they are written (every call
// resolves its target, only construction and destruction write), so they use
// a reader/writer lock and lookups from the audio thread do not queue behind
// one another.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"mini-bridge/message"
)

// ErrUnknownInstance is returned when an identifier names no live object.
var ErrUnknownInstance = errors.New("registry: unknown instance")

// Objects owns the real objects served to the peer.
type Objects struct {
	mu      sync.RWMutex
	objects map[message.InstanceID]any
	next    atomic.Uint64 // last allocated id; ids are never reused
}

func NewObjects() *Objects {
	return &Objects{objects: make(map[message.InstanceID]any)}
}

// Register stores obj and returns a fresh identifier for it.
func (r *Objects) Register(obj any) message.InstanceID {
	id := message.InstanceID(r.next.Add(1))

	r.mu.Lock()
	r.objects[id] = obj
	r.mu.Unlock()
	return id
}

// Resolve returns the object registered under id.
func (r *Objects) Resolve(id message.InstanceID) (any, error) {
	r.mu.RLock()
	obj, ok := r.objects[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownInstance, id)
	}
	return obj, nil
}

// ResolveAs returns the object registered under id as a T. An object of a
// different type is reported as ErrUnknownInstance: the peer addressed an
// instance through an interface it never obtained for it.
func ResolveAs[T any](r *Objects, id message.InstanceID) (T, error) {
	var zero T
	obj, err := r.Resolve(id)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: #%d is a %T", ErrUnknownInstance, id, obj)
	}
	return t, nil
}

// Retire drops the strong reference held for id and returns the object.
func (r *Objects) Retire(id message.InstanceID) (any, error) {
	r.mu.Lock()
	obj, ok := r.objects[id]
	delete(r.objects, id)
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownInstance, id)
	}
	return obj, nil
}

// RetireIf is Retire for an object that satisfies match. Any other object
// stays registered and is reported as ErrUnknownInstance.
func (r *Objects) RetireIf(id message.InstanceID, match func(obj any) bool) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownInstance, id)
	}
	if !match(obj) {
		return nil, fmt.Errorf("%w: #%d is a %T", ErrUnknownInstance, id, obj)
	}
	delete(r.objects, id)
	return obj, nil
}

// Len returns the number of live objects.
func (r *Objects) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Range calls fn for every live object until fn returns false.
func (r *Objects) Range(fn func(id message.InstanceID, obj any) bool) {
	r.mu.RLock()
	snapshot := make(map[message.InstanceID]any, len(r.objects))
	for id, obj := range r.objects {
		snapshot[id] = obj
	}
	r.mu.RUnlock()

	for id, obj := range snapshot {
		if !fn(id, obj) {
			return
		}
	}
}
