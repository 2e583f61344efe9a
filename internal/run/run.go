// Package run models a speedrun: an ordered list of segments together
// with comparisons, attempt history, and metadata. The timing engine in
// internal/core owns a Run exclusively and drives all mutation through
// the hooks defined here.
package run

import (
	"time"

	"github.com/veeshi/gosplit/internal/chrono"
)

// Run is an ordered, non-empty list of segments plus everything recorded
// about past attempts at them.
type Run struct {
	gameName     string
	categoryName string
	offset       time.Duration
	runID        string

	attemptCount   int32
	attemptHistory []Attempt
	segments       []Segment

	metadata          Metadata
	customComparisons []string
	comparisons       []string

	hasChanged bool
}

// New creates an empty run. Segments are added with PushSegment.
func New() *Run {
	r := &Run{}
	r.RegenerateComparisons()
	return r
}

func (r *Run) GameName() string            { return r.gameName }
func (r *Run) SetGameName(name string)     { r.gameName = name }
func (r *Run) CategoryName() string        { return r.categoryName }
func (r *Run) SetCategoryName(name string) { r.categoryName = name }

// Offset is the (possibly negative) duration preceding t=0 of an
// attempt; the real-time display begins at it.
func (r *Run) Offset() time.Duration          { return r.offset }
func (r *Run) SetOffset(offset time.Duration) { r.offset = offset }

func (r *Run) RunID() string      { return r.runID }
func (r *Run) SetRunID(id string) { r.runID = id }

// ClearRunID drops the association with an uploaded run, used when the
// run's times change.
func (r *Run) ClearRunID() { r.runID = "" }

// PushSegment appends a segment to the run.
func (r *Run) PushSegment(s Segment) { r.segments = append(r.segments, s) }

// Len returns the number of segments.
func (r *Run) Len() int { return len(r.segments) }

// IsEmpty reports whether the run has no segments. An empty run cannot
// be timed.
func (r *Run) IsEmpty() bool { return len(r.segments) == 0 }

// Segments exposes the segment list. Elements may be mutated in place
// through their pointer methods; the list itself must not be resized by
// callers.
func (r *Run) Segments() []Segment { return r.segments }

// Segment returns the segment at index i.
func (r *Run) Segment(i int) *Segment { return &r.segments[i] }

// LastSegment returns the final segment, which holds the run's final
// time once an attempt ends.
func (r *Run) LastSegment() *Segment { return &r.segments[len(r.segments)-1] }

func (r *Run) Metadata() *Metadata { return &r.metadata }

// AttemptCount is the total number of attempts started on this run.
func (r *Run) AttemptCount() int32 { return r.attemptCount }

// AttemptHistory lists the recorded attempts in chronological order.
func (r *Run) AttemptHistory() []Attempt { return r.attemptHistory }

// MarkAsModified flags that the run carries unsaved changes.
func (r *Run) MarkAsModified() { r.hasChanged = true }

// MarkAsUnmodified flags that all changes have been saved.
func (r *Run) MarkAsUnmodified() { r.hasChanged = false }

// HasBeenModified reports whether there are unsaved changes.
func (r *Run) HasBeenModified() bool { return r.hasChanged }

// StartNextRun is called by the timer when a new attempt begins.
func (r *Run) StartNextRun() {
	r.attemptCount++
	r.hasChanged = true
}

// maxAttemptID returns the largest attempt ID in the history, or 0.
func (r *Run) maxAttemptID() int32 {
	var maxID int32
	for i := range r.attemptHistory {
		if r.attemptHistory[i].ID > maxID {
			maxID = r.attemptHistory[i].ID
		}
	}
	return maxID
}

// minHistoryID returns the smallest attempt ID known to any segment's
// history or the attempt history, or 0 if none of them is negative.
func (r *Run) minHistoryID() int32 {
	var minID int32
	for i := range r.attemptHistory {
		if r.attemptHistory[i].ID < minID {
			minID = r.attemptHistory[i].ID
		}
	}
	for i := range r.segments {
		for id := range r.segments[i].history {
			if id < minID {
				minID = id
			}
		}
	}
	return minID
}

// AddAttempt appends an attempt with the given final time, wall-clock
// bracket, and total pause time to the attempt history.
func (r *Run) AddAttempt(t chrono.Time, started, ended *chrono.AtomicDateTime, pauseTime *time.Duration) {
	id := r.maxAttemptID() + 1
	r.attemptHistory = append(r.attemptHistory, Attempt{
		ID:        id,
		Time:      t,
		Started:   started,
		Ended:     ended,
		PauseTime: pauseTime,
	})
	r.hasChanged = true
}

// UpdateSegmentHistory stores the current attempt's per-segment times
// into each segment's history, up to (not including) currentSplitIndex.
// Segment times are the deltas between consecutive split times, tracked
// independently per timing method; a skipped segment records an absent
// time.
func (r *Run) UpdateSegmentHistory(currentSplitIndex int) {
	if len(r.attemptHistory) == 0 {
		return
	}
	id := r.attemptHistory[len(r.attemptHistory)-1].ID

	prevReal := chrono.Span(0)
	prevGame := chrono.Span(0)
	for i := range r.segments {
		if i >= currentSplitIndex {
			break
		}
		seg := &r.segments[i]
		var segTime chrono.Time
		if st := seg.splitTime.RealTime; st != nil {
			if prevReal != nil {
				segTime.RealTime = chrono.Span(*st - *prevReal)
			}
			prevReal = st
		} else {
			prevReal = nil
		}
		if st := seg.splitTime.GameTime; st != nil {
			if prevGame != nil {
				segTime.GameTime = chrono.Span(*st - *prevGame)
			}
			prevGame = st
		} else {
			prevGame = nil
		}
		seg.AddToHistory(id, segTime)
	}
	r.hasChanged = true
}

// ImportPBIntoSegmentHistory copies the stored personal best's segment
// times into each segment's history under a fresh negative ID, so the
// old PB survives being overwritten by a new one.
func (r *Run) ImportPBIntoSegmentHistory() {
	id := r.minHistoryID() - 1

	prevReal := chrono.Span(0)
	prevGame := chrono.Span(0)
	any := false
	for i := range r.segments {
		seg := &r.segments[i]
		var segTime chrono.Time
		if pb := seg.personalBestSplitTime.RealTime; pb != nil {
			if prevReal != nil {
				segTime.RealTime = chrono.Span(*pb - *prevReal)
				any = true
			}
			prevReal = pb
		} else {
			prevReal = nil
		}
		if pb := seg.personalBestSplitTime.GameTime; pb != nil {
			if prevGame != nil {
				segTime.GameTime = chrono.Span(*pb - *prevGame)
				any = true
			}
			prevGame = pb
		} else {
			prevGame = nil
		}
		if segTime.RealTime != nil || segTime.GameTime != nil {
			seg.AddToHistory(id, segTime)
		}
	}
	if any {
		r.hasChanged = true
	}
}

// FixSplits repairs inconsistencies in the stored times: personal best
// split times must be non-decreasing along the run per timing method
// (violating entries are cleared), and segment history entries whose
// non-negative attempt ID is not in the attempt history are dropped.
// Entries with negative (imported) IDs are kept.
func (r *Run) FixSplits() {
	r.fixComparison(true)
	r.fixComparison(false)
	r.removeDanglingHistory()
}

func (r *Run) fixComparison(realTime bool) {
	var prev *time.Duration
	for i := range r.segments {
		seg := &r.segments[i]
		cur := seg.personalBestSplitTime.Get(realTime)
		if cur == nil {
			continue
		}
		if prev != nil && *cur < *prev {
			if realTime {
				seg.personalBestSplitTime.RealTime = nil
			} else {
				seg.personalBestSplitTime.GameTime = nil
			}
			continue
		}
		prev = cur
	}
}

func (r *Run) removeDanglingHistory() {
	known := make(map[int32]bool, len(r.attemptHistory))
	for i := range r.attemptHistory {
		known[r.attemptHistory[i].ID] = true
	}
	for i := range r.segments {
		for id := range r.segments[i].history {
			// Negative IDs are imported entries without an attempt.
			if id >= 0 && !known[id] {
				delete(r.segments[i].history, id)
			}
		}
	}
}
