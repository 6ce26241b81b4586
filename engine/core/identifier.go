package core

import (
	"fmt"
	"sync"
)

// IdentifierPool hands out small integer identifiers and recycles released
// ones. Every slot carries a generation counter that is bumped on release, so
// an (id, generation) pair that outlived its owner can be detected.
type IdentifierPool struct {
	mu          sync.Mutex
	owners      []interface{}
	generations []uint32
	free        []uint32
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	return &IdentifierPool{
		owners:      make([]interface{}, 0, capacity),
		generations: make([]uint32, 0, capacity),
	}
}

// Acquire stores owner in a free slot and returns its id and generation.
func (p *IdentifierPool) Acquire(owner interface{}) (uint32, uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Existing free spot. Take it, most recently released first.
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		p.owners[id] = owner
		return id, p.generations[id]
	}

	// No free slots, push a new one.
	p.owners = append(p.owners, owner)
	p.generations = append(p.generations, 0)
	return uint32(len(p.owners) - 1), 0
}

// Release frees id so it can be handed out again with a new generation.
func (p *IdentifierPool) Release(id uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id >= uint32(len(p.owners)) {
		return fmt.Errorf("%w: id '%d' (max=%d). Nothing was done", ErrIdentifierRange, id, len(p.owners))
	}
	if p.owners[id] == nil {
		return fmt.Errorf("%w: id '%d'. Nothing was done", ErrIdentifierFree, id)
	}

	p.owners[id] = nil
	p.generations[id]++
	p.free = append(p.free, id)
	return nil
}

// Owner returns the owner stored at id if the generation still matches.
func (p *IdentifierPool) Owner(id, generation uint32) (interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id >= uint32(len(p.owners)) || p.generations[id] != generation || p.owners[id] == nil {
		return nil, false
	}
	return p.owners[id], true
}

// Len returns the number of identifiers currently in use.
func (p *IdentifierPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.owners) - len(p.free)
}
