package sync

import "sync/atomic"

// RingCapacity is the fixed number of slots in a Ring. Keeping the capacity a
// power of two allows positions to be mapped to slots with a mask instead of
// a modulo.
const RingCapacity = 128

type ringSlot struct {
	sequence uint64
	value    uint64
}

// Ring is a bounded lock-free FIFO queue of uint64 values. Each slot carries
// a sequence counter so producers and consumers can detect full and empty
// slots without locks. Pushes never block and never allocate which makes them
// safe to issue from interrupt handlers; when the ring is full TryPush
// reports failure and the caller decides whether dropping the value is
// acceptable.
//
// A Ring must be initialized via Init before first use.
type Ring struct {
	enqueuePos uint64
	dequeuePos uint64
	slots      [RingCapacity]ringSlot
}

// Init seeds the slot sequence counters. It must be called once before the
// ring is shared with interrupt handlers.
func (r *Ring) Init() {
	for i := 0; i < RingCapacity; i++ {
		r.slots[i].sequence = uint64(i)
		r.slots[i].value = 0
	}
	r.enqueuePos = 0
	r.dequeuePos = 0
}

// TryPush appends v to the ring and returns false if the ring is full. It is
// safe to call from multiple producers including interrupt context: a full
// ring is reported immediately instead of spinning until space is available.
func (r *Ring) TryPush(v uint64) bool {
	pos := atomic.LoadUint64(&r.enqueuePos)
	for {
		slot := &r.slots[pos&(RingCapacity-1)]
		seq := atomic.LoadUint64(&slot.sequence)
		diff := int64(seq) - int64(pos)

		if diff == 0 && atomic.CompareAndSwapUint64(&r.enqueuePos, pos, pos+1) {
			slot.value = v
			atomic.StoreUint64(&slot.sequence, pos+1)
			return true
		}

		// the slot still holds a value pushed one lap ago
		if diff < 0 {
			return false
		}

		pos = atomic.LoadUint64(&r.enqueuePos)
	}
}

// TryPop removes and returns the oldest value in the ring. It returns false
// if the ring is empty.
func (r *Ring) TryPop() (uint64, bool) {
	pos := atomic.LoadUint64(&r.dequeuePos)
	for {
		slot := &r.slots[pos&(RingCapacity-1)]
		seq := atomic.LoadUint64(&slot.sequence)
		diff := int64(seq) - int64(pos+1)

		if diff == 0 && atomic.CompareAndSwapUint64(&r.dequeuePos, pos, pos+1) {
			v := slot.value
			atomic.StoreUint64(&slot.sequence, pos+RingCapacity)
			return v, true
		}

		if diff < 0 {
			return 0, false
		}

		pos = atomic.LoadUint64(&r.dequeuePos)
	}
}

// Empty returns true if the ring contains no values. With interrupts disabled
// on a single core the answer is exact; otherwise it is a point-in-time
// snapshot.
func (r *Ring) Empty() bool {
	return atomic.LoadUint64(&r.dequeuePos) == atomic.LoadUint64(&r.enqueuePos)
}
