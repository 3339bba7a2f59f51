// Package buffer owns the byte buffers of a decode session.
//
// A session holds three independent buffers: the input bitstream copy, the
// output pixel scratch and the box (metadata) scratch. Buffers only grow.
// When a buffer is too small it is reallocated to exactly the requested
// size; otherwise it is reused as-is.
package buffer

// Allocator returns a new byte slice of exactly size bytes.
// Tests inject counting allocators to observe reallocation.
type Allocator func(size int) []byte

// DefaultAllocator allocates with make.
func DefaultAllocator(size int) []byte {
	return make([]byte, size)
}

// Buffer is a grow-only byte buffer.
// The zero value is usable and allocates with DefaultAllocator.
type Buffer struct {
	data   []byte
	alloc  Allocator
	allocs int
}

// NewBuffer creates a buffer that allocates with alloc.
func NewBuffer(alloc Allocator) *Buffer {
	return &Buffer{alloc: alloc}
}

func (b *Buffer) allocate(size int) []byte {
	b.allocs++
	if b.alloc == nil {
		return DefaultAllocator(size)
	}
	return b.alloc(size)
}

// Ensure returns a view of at least n bytes. The buffer is reallocated to
// exactly n bytes when its capacity is below n; previous contents are not
// preserved across a reallocation.
func (b *Buffer) Ensure(n int) []byte {
	if n < 0 {
		n = 0
	}
	if cap(b.data) < n {
		b.data = b.allocate(n)
	}
	return b.data[:n]
}

// Grow reallocates the buffer to n bytes when it is smaller, preserving the
// first keep bytes. It returns the full n-byte view.
func (b *Buffer) Grow(n, keep int) []byte {
	if cap(b.data) >= n {
		return b.data[:n]
	}
	next := b.allocate(n)
	if keep > len(b.data) {
		keep = len(b.data)
	}
	copy(next, b.data[:keep])
	b.data = next
	return b.data[:n]
}

// Cap returns the current capacity in bytes.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Allocations returns how many times the buffer has been (re)allocated.
func (b *Buffer) Allocations() int {
	return b.allocs
}

// Release drops the backing array. The buffer can be reused afterwards.
func (b *Buffer) Release() {
	b.data = nil
}

// Manager groups the three buffers of a session.
type Manager struct {
	input  Buffer
	output Buffer
	box    Buffer
}

// NewManager creates a manager whose buffers allocate with alloc.
// A nil alloc uses DefaultAllocator.
func NewManager(alloc Allocator) *Manager {
	return &Manager{
		input:  Buffer{alloc: alloc},
		output: Buffer{alloc: alloc},
		box:    Buffer{alloc: alloc},
	}
}

// LoadInput copies src into the input buffer and returns the owned copy.
// Later mutation of src does not affect the session.
func (m *Manager) LoadInput(src []byte) []byte {
	dst := m.input.Ensure(len(src))
	copy(dst, src)
	m.input.data = dst
	return dst
}

// Input returns the owned input copy.
func (m *Manager) Input() []byte {
	return m.input.data
}

// Output returns the output pixel scratch buffer.
func (m *Manager) Output() *Buffer {
	return &m.output
}

// Box returns the box scratch buffer.
func (m *Manager) Box() *Buffer {
	return &m.box
}

// Allocations returns the total allocation count across all buffers.
func (m *Manager) Allocations() int {
	return m.input.allocs + m.output.allocs + m.box.allocs
}

// Release drops every buffer. Safe to call more than once.
func (m *Manager) Release() {
	m.input.Release()
	m.output.Release()
	m.box.Release()
}
