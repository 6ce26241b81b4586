package containers

import "sync"

// RingBuffer is a fixed-capacity circular byte FIFO. Requests that do not fit
// are truncated and the actual byte count is returned. All operations take
// the same mutex.
type RingBuffer struct {
	mu          sync.Mutex
	data        []byte
	readOffset  int
	writeOffset int
	full        bool
}

func NewRingBuffer(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &RingBuffer{
		data: make([]byte, capacity),
	}, nil
}

// Reset empties the buffer. The backing memory is left as is.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.readOffset = 0
	rb.writeOffset = 0
	rb.full = false
}

// Size returns the number of bytes waiting to be read.
func (rb *RingBuffer) Size() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size()
}

func (rb *RingBuffer) SizeAvailableForWrite() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.data) - rb.size()
}

func (rb *RingBuffer) MaxSize() int {
	return len(rb.data)
}

func (rb *RingBuffer) Full() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.full
}

// Write copies as much of p as fits and returns the number of bytes copied.
func (rb *RingBuffer) Write(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(p), len(rb.data)-rb.size())
	if n == 0 {
		return 0
	}

	// Tail first, then wrap to the start.
	first := copy(rb.data[rb.writeOffset:], p[:n])
	if first < n {
		copy(rb.data, p[first:n])
	}
	rb.writeOffset = (rb.writeOffset + n) % len(rb.data)
	rb.full = rb.writeOffset == rb.readOffset
	return n
}

// Read copies up to len(p) buffered bytes into p and consumes them.
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(p), rb.size())
	if n == 0 {
		return 0
	}

	first := copy(p[:n], rb.data[rb.readOffset:])
	if first < n {
		copy(p[first:n], rb.data)
	}
	rb.consume(n)
	return n
}

// Discard drops up to n buffered bytes without copying them.
func (rb *RingBuffer) Discard(n int) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n = min(max(n, 0), rb.size())
	if n > 0 {
		rb.consume(n)
	}
	return n
}

func (rb *RingBuffer) consume(n int) {
	rb.readOffset = (rb.readOffset + n) % len(rb.data)
	rb.full = false
}

func (rb *RingBuffer) size() int {
	if rb.full {
		return len(rb.data)
	}
	return (rb.writeOffset - rb.readOffset + len(rb.data)) % len(rb.data)
}
