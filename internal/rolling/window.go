package rolling

// Window is a fixed-capacity FIFO buffer. Appending beyond capacity evicts
// the oldest entry. The zero value is unusable; use NewWindow.
type Window[T any] struct {
	buf   []T
	head  int
	count int
}

// NewWindow allocates a window holding at most capacity entries.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when full.
func (w *Window[T]) Push(v T) {
	idx := (w.head + w.count) % len(w.buf)
	w.buf[idx] = v
	if w.count < len(w.buf) {
		w.count++
		return
	}
	w.head = (w.head + 1) % len(w.buf)
}

// Len returns the number of entries currently held.
func (w *Window[T]) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window[T]) Cap() int {
	return len(w.buf)
}

// At returns the i-th entry, oldest first.
func (w *Window[T]) At(i int) T {
	return w.buf[(w.head+i)%len(w.buf)]
}

// Last returns the newest entry; ok is false when empty.
func (w *Window[T]) Last() (T, bool) {
	var zero T
	if w.count == 0 {
		return zero, false
	}
	return w.At(w.count - 1), true
}

// Values copies the entries into a new slice, oldest first.
func (w *Window[T]) Values() []T {
	out := make([]T, 0, w.count)
	for i := 0; i < w.count; i++ {
		out = append(out, w.At(i))
	}
	return out
}

// Each calls fn for every entry, oldest first.
func (w *Window[T]) Each(fn func(T)) {
	for i := 0; i < w.count; i++ {
		fn(w.At(i))
	}
}
