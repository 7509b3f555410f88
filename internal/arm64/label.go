package arm64

import "sync/atomic"

// LabelAllocator hands out the monotonically increasing, never-reused local
// label ids spec.md §8 requires ("Label uniqueness"). It is the one
// process-wide mutable piece of state this package keeps (spec.md §5,
// §9 "Global mutable state"), scoped to a single compilation unit by
// constructing a fresh allocator per EmissionContext; every Emit/EmitStream
// call on that context shares it.
type LabelAllocator struct {
	counter atomic.Uint64
}

// NewLabelAllocator returns a fresh, zeroed allocator.
func NewLabelAllocator() *LabelAllocator { return &LabelAllocator{} }

// Next returns the next unused label id.
func (a *LabelAllocator) Next() uint64 { return a.counter.Add(1) }
