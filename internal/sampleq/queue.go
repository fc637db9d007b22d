package sampleq

import (
	"sync"
	"sync/atomic"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampletime"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/wire"
)

const nsPerSec = 1_000_000_000.0

// DropReason identifies why InsertSample could not place a sample into
// any window. The zero value, DropNone, means the sample was inserted.
type DropReason int

const (
	DropNone DropReason = iota
	// DropTooOld means the sample's timestamp is older than every
	// still-live window, so the window it belonged to has already been
	// dispatched.
	DropTooOld
	// DropOutOfWindow means the sample landed in the live window closest
	// to its timestamp, but its smp_cnt fell outside that window's
	// sample range.
	DropOutOfWindow
)

func (d DropReason) String() string {
	switch d {
	case DropNone:
		return "none"
	case DropTooOld:
		return "too old"
	case DropOutOfWindow:
		return "out of window"
	default:
		return "unknown"
	}
}

// Queue is a FIFO of in-flight Buffers ordered by StartTime ascending,
// shared between exactly two goroutines: the capture goroutine, which
// calls InsertSample, and the dispatch scheduler, which calls Wait and
// Pop. All mutable state is held behind mu; no Buffer or Channel slice
// is ever referenced outside the lock once it has been handed across
// goroutines.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buffers []*Buffer
	done    atomic.Bool
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// InsertSample runs the queue's insertion algorithm for one ASDU
// received at (recvS, recvNS) under the given sample rate and window
// length, and reports whether (and why) the sample could not be placed
// into any window.
//
// Step 1 corrects for the capture timestamp landing after a counter
// rollover within a frame batch: if the sample's offset into its second
// would be at or past the reported nanosecond timestamp, the sample is
// attributed to the *previous* second.
func (q *Queue) InsertSample(recvS uint64, recvNS uint32, rate uint32, length uint32, asdu wire.Asdu) DropReason {
	nsPerSample := nsPerSec / float64(rate)
	nsOffset := float64(asdu.SmpCnt) * nsPerSample

	if nsOffset >= float64(recvNS) {
		recvS--
	}

	ts := sampletime.FromSecondsAndSamples(recvS, uint32(asdu.SmpCnt), rate)

	q.mu.Lock()
	defer q.mu.Unlock()

	var back *Buffer
	if n := len(q.buffers); n > 0 {
		back = q.buffers[n-1]
	}

	if back == nil || back.IsAfter(ts) {
		alignedStart := uint32(asdu.SmpCnt) / length * length
		newBuf := NewBuffer(rate, sampletime.FromSecondsAndSamples(recvS, alignedStart, rate), length)
		if !newBuf.InsertSample(uint32(asdu.SmpCnt), asdu.Sample) {
			return DropOutOfWindow
		}
		q.buffers = append(q.buffers, newBuf)
		q.cond.Signal()
		return DropNone
	}

	for i := len(q.buffers) - 1; i >= 0; i-- {
		if q.buffers[i].IsWithin(ts) {
			if !q.buffers[i].InsertSample(uint32(asdu.SmpCnt), asdu.Sample) {
				return DropOutOfWindow
			}
			return DropNone
		}
	}
	// Older than every still-live window.
	return DropTooOld
}

// Wait blocks until the queue is non-empty or SetDone has been called.
// On shutdown it returns (0, false). Otherwise it returns the number of
// seconds (possibly negative) until the head buffer's SendTime.
func (q *Queue) Wait(nowSeconds func() float64) (float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buffers) == 0 && !q.done.Load() {
		q.cond.Wait()
	}
	if q.done.Load() {
		return 0, false
	}
	return q.buffers[0].SendTime() - nowSeconds(), true
}

// Pop removes and returns the head buffer. The caller must have already
// observed (via Wait) that the queue is non-empty; Pop panics otherwise,
// matching the upstream "queue cannot be empty here" invariant.
func (q *Queue) Pop() *Buffer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffers) == 0 {
		panic("sampleq: Pop called on an empty queue")
	}
	head := q.buffers[0]
	q.buffers = q.buffers[1:]
	return head
}

// SetDone marks the queue as shut down and wakes any goroutine blocked
// in Wait.
func (q *Queue) SetDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done.Store(true)
	q.cond.Signal()
}

// Len reports the current number of in-flight buffers. Intended for
// observability (e.g. a queue-depth metric), not for control flow.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffers)
}
