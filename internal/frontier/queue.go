package frontier

// DepthQueue is a FIFO queue kept sorted non-decreasing by depth.
// A new item goes right after the last item whose depth is <= its own,
// so items of equal depth leave in insertion order.
type DepthQueue[T any] struct {
	items   []T
	depthOf func(T) int
}

func NewDepthQueue[T any](depthOf func(T) int) *DepthQueue[T] {
	return &DepthQueue[T]{depthOf: depthOf}
}

func (q *DepthQueue[T]) Enqueue(item T) {
	depth := q.depthOf(item)
	// scan from the tail: in a BFS crawl new items almost always belong at the end
	i := len(q.items)
	for i > 0 && q.depthOf(q.items[i-1]) > depth {
		i--
	}
	var zero T
	q.items = append(q.items, zero)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item
}

// return false on the second returned values if queue is empty
func (q *DepthQueue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	first := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return first, true
}

// Peek returns the head without removing it.
func (q *DepthQueue[T]) Peek() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

func (q *DepthQueue[T]) Size() int {
	return len(q.items)
}
