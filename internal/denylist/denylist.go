// Package denylist tracks which query shapes the load manager refuses to
// run: a fixed BlockedSet configured at startup and a JailSet that grows
// monotonically at runtime as the jailing decision in spec.md §4.4 fires.
//
// Grounded on the teacher repo's internal/fail2ban package (a composite-key
// banned-map guarded by an RWMutex), simplified because jailing here has no
// error-code rules and no ban duration: once jailed, a shape stays jailed
// for the life of the process (spec.md §9, "Unjailing").
package denylist

import (
	"sync"

	"github.com/mixaill76/adaptive-load-manager/internal/effort"
)

// ShapeHash identifies a query's structure, independent of literal values.
type ShapeHash = effort.ShapeHash

// BlockedSet is the fixed deny-list, built once at construction and never
// mutated afterward, so reads need no lock.
type BlockedSet struct {
	shapes map[ShapeHash]struct{}
}

// NewBlockedSet builds a BlockedSet from a fixed list of shape hashes.
func NewBlockedSet(shapes []ShapeHash) *BlockedSet {
	set := make(map[ShapeHash]struct{}, len(shapes))
	for _, s := range shapes {
		set[s] = struct{}{}
	}
	return &BlockedSet{shapes: set}
}

// Contains reports whether shape is on the fixed deny-list.
func (b *BlockedSet) Contains(shape ShapeHash) bool {
	_, ok := b.shapes[shape]
	return ok
}

// JailSet is a monotone-growing deny-list, guarded by an RWMutex. There is
// intentionally no Unjail: the load manager treats jailing as a permanent,
// process-lifetime decision (spec.md §9's open question, resolved as
// intentional).
type JailSet struct {
	mu     sync.RWMutex
	shapes map[ShapeHash]struct{}
}

// NewJailSet creates an empty JailSet.
func NewJailSet() *JailSet {
	return &JailSet{shapes: make(map[ShapeHash]struct{})}
}

// Contains reports whether shape has been jailed.
func (j *JailSet) Contains(shape ShapeHash) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, ok := j.shapes[shape]
	return ok
}

// Insert adds shape to the jail set. Idempotent.
func (j *JailSet) Insert(shape ShapeHash) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.shapes[shape] = struct{}{}
}

// Count returns the number of currently jailed shapes.
func (j *JailSet) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.shapes)
}

// Shapes returns a snapshot slice of every jailed shape. Exposed as a
// management hook per spec.md §9 ("expose a management hook as a future
// extension") even though nothing in this process unjails automatically.
func (j *JailSet) Shapes() []ShapeHash {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]ShapeHash, 0, len(j.shapes))
	for s := range j.shapes {
		out = append(out, s)
	}
	return out
}
