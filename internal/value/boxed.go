package value

import (
	"fmt"
	"sync"
	"sync/atomic"

	"oxitortoise/internal/reflect"
)

// Boxed is the heap-held variant of an Any: a reflection-tagged
// allocation whose descriptor is stored inline at the start. Go does
// not let us pack a real pointer into 48 bits without defeating the
// garbage collector, so Boxed values are kept alive in a handle table
// and the Any payload carries the handle (still a 48-bit integer,
// preserving the bit-layout contract) instead of a raw address. The
// descriptor-first invariant is preserved by Boxed.Type being the very
// first field read on any access.
type Boxed struct {
	Type *reflect.TypeInfo
	Data interface{}

	// id is the handle-table key, minted once on the first packing and
	// shared by every Any that wraps this object. 0 means "no handle":
	// either never packed, or already dropped.
	id uint64
}

var (
	handlesMu   sync.RWMutex
	handles     = make(map[uint64]*Boxed)
	nextHandle  uint64 // last minted handle; 0 is reserved as "none"
	liveObjects int64  // exported via hostabi/engine diagnostics
)

// NewBoxed allocates a new heap-held value with its reflection tag
// inline, mirroring BoxedAny::new.
func NewBoxed(ty *reflect.TypeInfo, data interface{}) *Boxed {
	b := &Boxed{Type: ty, Data: data}
	atomic.AddInt64(&liveObjects, 1)
	return b
}

// handle returns the object's handle, minting one on first use. Two
// Anys packed from the same Boxed carry the same payload bits, so
// equality of packed boxed values is identity, matching descriptor
// identity semantics.
func (b *Boxed) handle() uint64 {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	if b.id != 0 {
		return b.id
	}
	nextHandle++
	if nextHandle&^payloadMask != 0 {
		panic("value: boxed handle space exhausted (exceeds 48 bits)")
	}
	b.id = nextHandle
	handles[b.id] = b
	return b.id
}

func boxedFromHandle(h uint64) (*Boxed, error) {
	handlesMu.RLock()
	defer handlesMu.RUnlock()
	b, ok := handles[h]
	if !ok {
		return nil, fmt.Errorf("value: no boxed value for handle %#x", h)
	}
	return b, nil
}

// drop removes the object from the handle table, then runs the type's
// drop function (if any). Deleting the entry first means every Any
// still carrying this handle fails to Unpack from here on — a second
// Drop through a stale Any is a no-op rather than a double-invocation
// of Type.Drop, and nothing can resurrect the value.
func (b *Boxed) drop() {
	handlesMu.Lock()
	if b.id == 0 {
		handlesMu.Unlock()
		return
	}
	delete(handles, b.id)
	b.id = 0
	handlesMu.Unlock()

	if b.Type != nil && b.Type.Drop != nil {
		b.Type.Drop(b.Data)
	}
	atomic.AddInt64(&liveObjects, -1)
}

// LiveBoxedCount reports the number of Boxed values that have been
// created but not yet dropped; used by tests asserting that clear-all /
// drop reaches every turtle-held list or string.
func LiveBoxedCount() int64 { return atomic.LoadInt64(&liveObjects) }
