// Package objstore is the shared, mutex-guarded map from vector to
// Object: the single source of truth every Connection, the Manager, and
// the PoW worker read and write.
package objstore

import (
	"sync"
	"time"

	"github.com/bmrelay/relaynode/pkg/object"
)

// Store holds every non-expired Object this node knows about, keyed by
// vector, under one mutex. All mutation happens under the lock; readers
// that need more than a point lookup take Snapshot and operate on the
// copy outside the lock, per the single-mutex discipline.
type Store struct {
	mu      sync.Mutex
	objects map[object.Vector]*object.Object
	clock   clockwork
}

type clockwork interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// New returns an empty Store using the wall clock.
func New() *Store {
	return &Store{objects: make(map[object.Vector]*object.Object), clock: realClock{}}
}

// NewWithClock is used by tests that need deterministic expiry behavior.
func NewWithClock(clock clockwork) *Store {
	return &Store{objects: make(map[object.Vector]*object.Object), clock: clock}
}

// Has reports whether vector v is currently stored.
func (s *Store) Has(v object.Vector) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[v]
	return ok
}

// Get returns the object for v, if present.
func (s *Store) Get(v object.Vector) (*object.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[v]
	return o, ok
}

// InsertIfAbsentAndValid validates o against the current time and, if
// valid and not already present, stores it. It returns the vector, and
// whether the object was newly inserted.
func (s *Store) InsertIfAbsentAndValid(o *object.Object) (object.Vector, bool, error) {
	now := s.clock.Now()
	if err := o.IsValid(now); err != nil {
		return object.Vector{}, false, err
	}
	v, err := o.Vector()
	if err != nil {
		return object.Vector{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[v]; ok {
		return v, false, nil
	}
	s.objects[v] = o
	return v, true, nil
}

// Delete removes v unconditionally.
func (s *Store) Delete(v object.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, v)
}

// Snapshot returns a shallow copy of the current object map, safe to
// range over without holding the store's lock.
func (s *Store) Snapshot() map[object.Vector]*object.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[object.Vector]*object.Object, len(s.objects))
	for k, v := range s.objects {
		out[k] = v
	}
	return out
}

// KeysFilter returns the vectors for which pred holds, evaluated under
// the lock against the live objects.
func (s *Store) KeysFilter(pred func(*object.Object) bool) []object.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []object.Vector
	for k, o := range s.objects {
		if pred(o) {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the number of currently stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// ExpireOlderThan deletes every object whose IsExpired(now) holds,
// returning how many were removed. The Manager calls this on its 90s
// tick.
func (s *Store) ExpireOlderThan(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for k, o := range s.objects {
		if o.IsExpired(now) {
			delete(s.objects, k)
			n++
		}
	}
	return n
}
