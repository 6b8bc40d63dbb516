package push

import (
	"sync"
)

// outQueue is a thread-safe outbound frame queue that doubles its capacity
// when it reaches 70% full, up to a hard ceiling. Senders never block: once
// the ceiling is hit the queue rejects frames, which callers treat as a dead
// connection.
type outQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      [][]byte
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	ceiling  int
	closed   bool
}

// newOutQueue creates a queue with the given initial capacity and ceiling.
func newOutQueue(initialCapacity, ceiling int) *outQueue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if ceiling < initialCapacity {
		ceiling = initialCapacity
	}
	q := &outQueue{
		buf:      make([][]byte, initialCapacity),
		capacity: initialCapacity,
		ceiling:  ceiling,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push adds a frame. Grows the queue if at 70% capacity. Returns false if
// the queue is closed or full at its ceiling.
func (q *outQueue) push(frame []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold && q.capacity < q.ceiling {
		q.grow()
	}
	if q.count == q.capacity {
		// Slow consumer: drop the frame, let the caller detach.
		return false
	}

	q.buf[q.tail] = frame
	q.tail = (q.tail + 1) % q.capacity
	q.count++

	q.cond.Signal()
	return true
}

// pop removes and returns the next frame, blocking until one is available
// or the queue is closed. Returns nil and false when closed and drained.
func (q *outQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 && q.closed {
		return nil, false
	}

	frame := q.buf[q.head]
	q.buf[q.head] = nil // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--

	return frame, true
}

// close closes the queue and wakes any blocked reader. Remaining frames are
// still delivered before pop reports closed.
func (q *outQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// len returns the number of queued frames.
func (q *outQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// grow doubles the queue capacity, capped at the ceiling.
// Must be called with the lock held.
func (q *outQueue) grow() {
	newCapacity := q.capacity * 2
	if newCapacity > q.ceiling {
		newCapacity = q.ceiling
	}
	if newCapacity == q.capacity {
		return
	}
	newBuf := make([][]byte, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
}
