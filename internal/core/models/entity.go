package models

import (
	"errors"
	"fmt"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrStaleEntity    = errors.New("stale entity handle")
)

// EntityID is a generation-checked handle: the low 32 bits index a slot,
// the high 32 bits carry the slot generation at allocation time.
type EntityID uint64

// NoEntity is never returned by a Registry.
const NoEntity EntityID = 0

func newEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// Registry allocates entity slots and recycles them with bumped generations.
// It is not safe for concurrent mutation; mutate between ticks.
type Registry struct {
	generations []uint32
	alive       []bool
	free        []uint32
	count       int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create returns a fresh handle. Generations start at 1 so NoEntity stays invalid.
func (r *Registry) Create() EntityID {
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		r.alive[idx] = true
		r.count++
		return newEntityID(idx, r.generations[idx])
	}
	idx := uint32(len(r.generations))
	r.generations = append(r.generations, 1)
	r.alive = append(r.alive, true)
	r.count++
	return newEntityID(idx, 1)
}

func (r *Registry) Destroy(id EntityID) error {
	if err := r.check(id); err != nil {
		return err
	}
	idx := id.Index()
	r.alive[idx] = false
	r.generations[idx]++
	r.free = append(r.free, idx)
	r.count--
	return nil
}

func (r *Registry) Alive(id EntityID) bool {
	return r.check(id) == nil
}

// Entities returns live handles in slot order.
func (r *Registry) Entities() []EntityID {
	out := make([]EntityID, 0, r.count)
	for idx, ok := range r.alive {
		if ok {
			out = append(out, newEntityID(uint32(idx), r.generations[idx]))
		}
	}
	return out
}

func (r *Registry) Len() int { return r.count }

func (r *Registry) check(id EntityID) error {
	idx := id.Index()
	if int(idx) >= len(r.generations) || !r.alive[idx] {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	if r.generations[idx] != id.Generation() {
		return fmt.Errorf("%w: %s", ErrStaleEntity, id)
	}
	return nil
}
