package surface

import "sync"

// FirstAutoID is the first user-facing id handed out by an IDAllocator.
// User-defined ids at or above this value may collide with allocated ones.
const FirstAutoID = 10000

// IDAllocator hands out surface ids. Each geometry build owns one, so ids
// never leak between unrelated constructions or test runs.
//
// An IDAllocator is safe for concurrent use.
type IDAllocator struct {
	mu      sync.Mutex
	nextUID int
	nextID  int
}

// NewIDAllocator returns an allocator whose first uid is 0 and first
// auto-assigned id is FirstAutoID.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{nextID: FirstAutoID}
}

// NextUID returns the next internal unique id.
func (a *IDAllocator) NextUID() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	uid := a.nextUID
	a.nextUID++
	return uid
}

// NextID returns the next auto-assigned user-facing id.
func (a *IDAllocator) NextID() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	return id
}

// Reset restores the allocator to its initial state.
func (a *IDAllocator) Reset() {
	a.mu.Lock()
	a.nextUID = 0
	a.nextID = FirstAutoID
	a.mu.Unlock()
}
