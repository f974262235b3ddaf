package registry

import (
	"errors"
	"sync"
	"testing"

	"mini-bridge/message"
)

type thing struct{ name string }

func TestRegisterResolveRetire(t *testing.T) {
	r := NewObjects()
	a := &thing{"a"}
	b := &thing{"b"}

	idA := r.Register(a)
	idB := r.Register(b)
	if idA == idB {
		t.Fatalf("distinct objects got the same id %d", idA)
	}
	if idA == 0 || idB == 0 {
		t.Fatal("id 0 must never be allocated")
	}

	got, err := r.Resolve(idA)
	if err != nil || got != a {
		t.Fatalf("Resolve(%d) = %v, %v", idA, got, err)
	}

	typed, err := ResolveAs[*thing](r, idB)
	if err != nil || typed != b {
		t.Fatalf("ResolveAs(%d) = %v, %v", idB, typed, err)
	}
	if _, err := ResolveAs[*int](r, idB); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expect ErrUnknownInstance for a type mismatch, got %v", err)
	}

	if obj, err := r.Retire(idA); err != nil || obj != a {
		t.Fatalf("Retire(%d) = %v, %v", idA, obj, err)
	}
	if _, err := r.Resolve(idA); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expect ErrUnknownInstance after retire, got %v", err)
	}
	if _, err := r.Retire(idA); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expect ErrUnknownInstance on double retire, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expect 1 live object, got %d", r.Len())
	}
}

func TestRetireIf(t *testing.T) {
	r := NewObjects()
	id := r.Register(&thing{"a"})
	named := func(name string) func(any) bool {
		return func(obj any) bool {
			th, ok := obj.(*thing)
			return ok && th.name == name
		}
	}

	if _, err := r.RetireIf(id, named("b")); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expect ErrUnknownInstance, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatal("a mismatched object must stay registered")
	}

	obj, err := r.RetireIf(id, named("a"))
	if err != nil || obj.(*thing).name != "a" {
		t.Fatalf("unexpected retire: %v, %v", obj, err)
	}
	if _, err := r.RetireIf(id, named("a")); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expect ErrUnknownInstance on second retire, got %v", err)
	}
}

func TestIdentifiersAreNotReused(t *testing.T) {
	r := NewObjects()
	seen := map[message.InstanceID]bool{}
	for i := 0; i < 100; i++ {
		id := r.Register(&thing{})
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
		if _, err := r.Retire(id); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveNeverRegistered(t *testing.T) {
	r := NewObjects()
	if _, err := r.Resolve(999); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expect ErrUnknownInstance, got %v", err)
	}
}

func TestConcurrentRegisterResolveRetire(t *testing.T) {
	r := NewObjects()
	var wg sync.WaitGroup
	ids := make(chan message.InstanceID, 1000)

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				id := r.Register(&thing{})
				if _, err := r.Resolve(id); err != nil {
					t.Errorf("resolve of live id %d failed: %v", id, err)
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[message.InstanceID]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d handed out twice", id)
		}
		seen[id] = true
	}

	var retire sync.WaitGroup
	for id := range seen {
		retire.Add(1)
		go func(id message.InstanceID) {
			defer retire.Done()
			if _, err := r.Retire(id); err != nil {
				t.Errorf("retire %d: %v", id, err)
			}
		}(id)
	}
	retire.Wait()
	if r.Len() != 0 {
		t.Fatalf("expect empty registry, got %d", r.Len())
	}
}

func TestProxiesIdentity(t *testing.T) {
	p := NewProxies()
	created := 0
	create := func() any {
		created++
		return &thing{"proxy"}
	}

	first, loaded := p.LoadOrCreate(5, create)
	if loaded {
		t.Fatal("first lookup must create")
	}
	second, loaded := p.LoadOrCreate(5, create)
	if !loaded || first != second {
		t.Fatal("repeated lookup must return the same proxy")
	}
	if created != 1 {
		t.Fatalf("expect 1 creation, got %d", created)
	}

	p.Forget(5, &thing{"other"})
	if _, ok := p.Load(5); !ok {
		t.Fatal("Forget with a different proxy must keep the entry")
	}
	p.Forget(5, first)
	if _, ok := p.Load(5); ok || p.Len() != 0 {
		t.Fatal("Forget must remove the entry")
	}
}

func TestRange(t *testing.T) {
	r := NewObjects()
	for i := 0; i < 3; i++ {
		r.Register(&thing{})
	}
	n := 0
	r.Range(func(message.InstanceID, any) bool {
		n++
		return true
	})
	if n != 3 {
		t.Fatalf("expect 3 objects, got %d", n)
	}
}
