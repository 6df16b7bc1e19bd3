package bridge

import (
	"fmt"
	"sync"
	"unsafe"
)

// Memory provides the raw storage behind response buffers.
type Memory interface {
	// Allocate returns a buffer of exactly size bytes. It panics when
	// memory cannot be obtained.
	Allocate(size int) []byte

	// Free returns a buffer obtained from Allocate.
	Free(buf []byte)
}

// HeapMemory allocates on the Go heap. Free is a no-op; the buffer is kept
// alive by the allocation table until released.
type HeapMemory struct{}

func (HeapMemory) Allocate(size int) []byte { return make([]byte, size) }
func (HeapMemory) Free([]byte)              {}

// Allocator hands out response buffers and records each one in a table
// keyed by its base address, so release is a lookup that verifies the size
// instead of a blind free.
type Allocator struct {
	mu   sync.Mutex
	mem  Memory
	live map[*byte]int

	allocated uint64
	released  uint64
}

// NewAllocator creates an allocator over mem. A nil mem uses HeapMemory.
func NewAllocator(mem Memory) *Allocator {
	if mem == nil {
		mem = HeapMemory{}
	}
	return &Allocator{
		mem:  mem,
		live: make(map[*byte]int),
	}
}

// Alloc returns a registered buffer of exactly size bytes.
func (a *Allocator) Alloc(size int) []byte {
	if size <= 0 {
		panic(fmt.Sprintf("bridge: invalid response buffer size %d", size))
	}
	buf := a.mem.Allocate(size)
	if len(buf) != size {
		panic(fmt.Sprintf("bridge: memory returned %d bytes, want %d", len(buf), size))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ptr := unsafe.SliceData(buf)
	if _, dup := a.live[ptr]; dup {
		panic("bridge: memory returned a buffer that is still live")
	}
	a.live[ptr] = size
	a.allocated++
	return buf
}

// Release frees buf. Releasing a buffer twice, or one with a different
// length than was allocated, is an error and leaves the table untouched.
func (a *Allocator) Release(buf []byte) error {
	if len(buf) == 0 {
		return ErrUnknownBuffer
	}
	ptr := unsafe.SliceData(buf)

	a.mu.Lock()
	size, ok := a.live[ptr]
	if !ok {
		a.mu.Unlock()
		return ErrUnknownBuffer
	}
	if size != len(buf) {
		a.mu.Unlock()
		return fmt.Errorf("%w: released %d bytes, allocated %d", ErrBufferSizeMismatch, len(buf), size)
	}
	delete(a.live, ptr)
	a.released++
	a.mu.Unlock()

	a.mem.Free(buf)
	return nil
}

// Outstanding returns the number of buffers not yet released.
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// AllocatorStats counts allocator activity.
type AllocatorStats struct {
	Allocated   uint64
	Released    uint64
	Outstanding int
	Bytes       int
}

// Stats returns a snapshot of allocator activity.
func (a *Allocator) Stats() AllocatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	bytes := 0
	for _, size := range a.live {
		bytes += size
	}
	return AllocatorStats{
		Allocated:   a.allocated,
		Released:    a.released,
		Outstanding: len(a.live),
		Bytes:       bytes,
	}
}
