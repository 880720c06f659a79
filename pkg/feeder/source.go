package feeder

import (
	"sync"
	"sync/atomic"
)

// Source supplies encoded frames to the feeder. Poll must not block; it
// returns false when no frame is available yet.
type Source interface {
	Poll() (Frame, bool)
}

// RateAdapter is implemented by sources that can reduce their output rate.
// Level 0 is full quality; higher levels request progressively lower
// bitrates.
type RateAdapter interface {
	AdjustRate(level int)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (Frame, bool)

// Poll implements Source.
func (f SourceFunc) Poll() (Frame, bool) {
	return f()
}

// DefaultQueueSize is the default capacity of a Queue.
const DefaultQueueSize = 16

// Queue is a bounded frame queue fed by an encoder. Push never blocks: when
// the queue is full the oldest frame is discarded.
type Queue struct {
	frames  chan Frame
	pushMu  sync.Mutex
	evicted atomic.Uint64
	level   atomic.Int32
}

// NewQueue creates a queue holding up to size frames.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{frames: make(chan Frame, size)}
}

// Push enqueues a frame, evicting the oldest one if the queue is full.
// Returns false if a frame was evicted.
func (q *Queue) Push(f Frame) bool {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()

	select {
	case q.frames <- f:
		return true
	default:
	}

	select {
	case <-q.frames:
		q.evicted.Add(1)
	default:
	}
	select {
	case q.frames <- f:
	default:
	}
	return false
}

// Poll implements Source.
func (q *Queue) Poll() (Frame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	default:
		return Frame{}, false
	}
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Evicted returns the number of frames discarded by Push.
func (q *Queue) Evicted() uint64 {
	return q.evicted.Load()
}

// AdjustRate implements RateAdapter by recording the requested level for
// the producer to read with Level.
func (q *Queue) AdjustRate(level int) {
	q.level.Store(int32(level))
}

// Level returns the quality reduction level last requested by the feeder.
func (q *Queue) Level() int {
	return int(q.level.Load())
}

// Sequence is a finite, restartable producer over a fixed set of frames.
// With Loop set it wraps around instead of running dry.
type Sequence struct {
	frames []Frame
	loop   bool
	next   atomic.Uint64
}

// NewSequence creates a sequence over frames.
func NewSequence(frames []Frame, loop bool) *Sequence {
	return &Sequence{frames: frames, loop: loop}
}

// Poll implements Source.
func (s *Sequence) Poll() (Frame, bool) {
	n := uint64(len(s.frames))
	if n == 0 {
		return Frame{}, false
	}
	i := s.next.Add(1) - 1
	if i >= n {
		if !s.loop {
			s.next.Store(n)
			return Frame{}, false
		}
		i %= n
	}
	return s.frames[i], true
}

// Restart rewinds the sequence to its first frame.
func (s *Sequence) Restart() {
	s.next.Store(0)
}

// Remaining returns the number of frames left before the sequence runs dry.
// Looping sequences always report their full length.
func (s *Sequence) Remaining() int {
	n := uint64(len(s.frames))
	if s.loop {
		return int(n)
	}
	i := s.next.Load()
	if i >= n {
		return 0
	}
	return int(n - i)
}
