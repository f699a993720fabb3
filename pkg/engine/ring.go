package engine

// ring keeps the most recent values up to a fixed capacity. It is not safe
// for concurrent use; owners guard it with their own lock.
type ring[T any] struct {
	items []T
	next  int
	full  bool
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{items: make([]T, max(capacity, 1))}
}

func (r *ring[T]) push(v T) {
	r.items[r.next] = v
	r.next++
	if r.next == len(r.items) {
		r.next = 0
		r.full = true
	}
}

func (r *ring[T]) len() int {
	if r.full {
		return len(r.items)
	}
	return r.next
}

func (r *ring[T]) capacity() int {
	return len(r.items)
}

// values returns a copy, oldest first, or nil when empty.
func (r *ring[T]) values() []T {
	if r.len() == 0 {
		return nil
	}
	if !r.full {
		return append([]T(nil), r.items[:r.next]...)
	}
	out := make([]T, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}
