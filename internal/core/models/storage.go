package models

// Storage is a dense, slot-indexed component column. Each slot remembers the
// generation it was written for, so a stale handle never reads a recycled
// entity's data.
//
// Distinct slots may be read and written from different goroutines as long
// as no goroutine calls Insert or Remove at the same time: that is the
// per-slot exclusive access the parallel physics pass relies on.
type Storage[T any] struct {
	data    []T
	present []bool
	gens    []uint32
	count   int
}

func NewStorage[T any]() *Storage[T] {
	return &Storage[T]{}
}

func (s *Storage[T]) Insert(id EntityID, value T) {
	idx := int(id.Index())
	if idx >= len(s.data) {
		s.grow(idx + 1)
	}
	if !s.present[idx] || s.gens[idx] != id.Generation() {
		if !s.present[idx] {
			s.count++
		}
		s.present[idx] = true
		s.gens[idx] = id.Generation()
	}
	s.data[idx] = value
}

func (s *Storage[T]) Get(id EntityID) (T, bool) {
	if !s.Has(id) {
		var zero T
		return zero, false
	}
	return s.data[id.Index()], true
}

// GetOr returns the stored value or fallback when the component is absent.
func (s *Storage[T]) GetOr(id EntityID, fallback T) T {
	if v, ok := s.Get(id); ok {
		return v
	}
	return fallback
}

// Ref returns a pointer into the slot, or nil. The pointer is valid until
// the next Insert grows the column.
func (s *Storage[T]) Ref(id EntityID) *T {
	if !s.Has(id) {
		return nil
	}
	return &s.data[id.Index()]
}

func (s *Storage[T]) Has(id EntityID) bool {
	idx := int(id.Index())
	return idx < len(s.present) && s.present[idx] && s.gens[idx] == id.Generation()
}

func (s *Storage[T]) Remove(id EntityID) bool {
	if !s.Has(id) {
		return false
	}
	idx := id.Index()
	var zero T
	s.data[idx] = zero
	s.present[idx] = false
	s.count--
	return true
}

func (s *Storage[T]) Len() int { return s.count }

func (s *Storage[T]) grow(n int) {
	if n <= cap(s.data) {
		s.data = s.data[:n]
		s.present = s.present[:n]
		s.gens = s.gens[:n]
		return
	}
	size := max(n, 2*cap(s.data), 16)
	data := make([]T, n, size)
	present := make([]bool, n, size)
	gens := make([]uint32, n, size)
	copy(data, s.data)
	copy(present, s.present)
	copy(gens, s.gens)
	s.data, s.present, s.gens = data, present, gens
}
