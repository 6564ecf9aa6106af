package turtle_nav

import "sync/atomic"

// Mailbox is a single-slot, last-value-wins channel.
//
// Producers replace the slot atomically; there is no queue and no
// back-pressure. A consumer may observe the same reading twice or miss a
// reading that was overwritten before it looked.
type Mailbox[T any] struct {
	slot       atomic.Pointer[Reading[T]]
	seq        atomic.Uint64
	loadedSeq  atomic.Uint64
	published  atomic.Uint64
	overwrites atomic.Uint64
}

// Publish stores a present record.
func (m *Mailbox[T]) Publish(v T) {
	m.store(v, true)
}

// Clear stores an explicit "nothing detected" reading.
func (m *Mailbox[T]) Clear() {
	var zero T
	m.store(zero, false)
}

func (m *Mailbox[T]) store(v T, present bool) {
	r := &Reading[T]{Value: v, Present: present, Seq: m.seq.Add(1)}
	prev := m.slot.Swap(r)
	m.published.Add(1)
	if prev != nil && prev.Seq > m.loadedSeq.Load() {
		m.overwrites.Add(1)
	}
}

// seed installs an initial reading without counting it as a publish.
func (m *Mailbox[T]) seed(v T) {
	m.slot.Store(&Reading[T]{Value: v, Present: true})
}

// Load returns the latest reading. A mailbox nobody has written yields an
// absent reading with Seq 0.
func (m *Mailbox[T]) Load() Reading[T] {
	r := m.slot.Load()
	if r == nil {
		return Reading[T]{}
	}
	m.loadedSeq.Store(r.Seq)
	return *r
}

// MailboxStats counts publishes and readings replaced before anyone loaded them.
type MailboxStats struct {
	Published  uint64
	Overwrites uint64
}

// Stats returns the mailbox counters.
func (m *Mailbox[T]) Stats() MailboxStats {
	return MailboxStats{Published: m.published.Load(), Overwrites: m.overwrites.Load()}
}

// Feed holds the latest reading of every perception channel.
type Feed struct {
	Line     Mailbox[LineDetection]
	Sign     Mailbox[SignDetection]
	Marker   Mailbox[MarkerDetection]
	Obstacle Mailbox[ObstacleVelocity]

	decodeErrors atomic.Uint64
}

// NewFeed constructs a feed whose obstacle channel starts at obstacle, so
// obstacle avoidance has a command before its producer reports.
func NewFeed(obstacle ObstacleVelocity) *Feed {
	f := &Feed{}
	f.Obstacle.seed(obstacle)
	return f
}

// Snapshot reads every channel once.
func (f *Feed) Snapshot() PerceptionSnapshot {
	return PerceptionSnapshot{
		Line:     f.Line.Load(),
		Sign:     f.Sign.Load(),
		Marker:   f.Marker.Load(),
		Obstacle: f.Obstacle.Load(),
	}
}

// FeedStats aggregates per-channel counters.
type FeedStats struct {
	Line         MailboxStats
	Sign         MailboxStats
	Marker       MailboxStats
	Obstacle     MailboxStats
	DecodeErrors uint64
}

// Stats returns counters for every channel.
func (f *Feed) Stats() FeedStats {
	return FeedStats{
		Line:         f.Line.Stats(),
		Sign:         f.Sign.Stats(),
		Marker:       f.Marker.Stats(),
		Obstacle:     f.Obstacle.Stats(),
		DecodeErrors: f.decodeErrors.Load(),
	}
}
