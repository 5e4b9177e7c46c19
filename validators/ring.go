package validators

/*
ring is a fixed capacity FIFO buffer, when full adding new item evicts the
oldest one. It is not safe for concurrent use.
*/
type ring[T any] struct {
	buf   []T
	start int // index of the oldest item
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		panic("ring capacity must be positive")
	}
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring[T]) Len() int { return r.size }

func (r *ring[T]) Cap() int { return len(r.buf) }

// Values returns copy of the items, oldest first.
func (r *ring[T]) Values() []T {
	return r.Last(r.size)
}

// Last returns copy of the "n" most recent items, oldest first.
func (r *ring[T]) Last(n int) []T {
	n = max(0, min(n, r.size))
	out := make([]T, n)
	first := r.start + r.size - n
	for i := range out {
		out[i] = r.buf[(first+i)%len(r.buf)]
	}
	return out
}
