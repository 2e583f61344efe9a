package run

import (
	"github.com/veeshi/gosplit/internal/chrono"
)

// Segment is one ordered unit of a run. It carries the split time of the
// attempt in progress, the best time ever achieved for this segment, the
// split time of the personal best run, and a per-attempt history of
// segment times.
type Segment struct {
	name                  string
	splitTime             chrono.Time
	bestSegmentTime       chrono.Time
	personalBestSplitTime chrono.Time
	history               map[int32]chrono.Time
	variables             map[string]string
}

// NewSegment creates a segment with the given name.
func NewSegment(name string) Segment {
	return Segment{name: name}
}

func (s *Segment) Name() string        { return s.name }
func (s *Segment) SetName(name string) { s.name = name }

// SplitTime is the time recorded for this segment during the attempt in
// progress, absent until the segment has been split.
func (s *Segment) SplitTime() chrono.Time           { return s.splitTime }
func (s *Segment) SetSplitTime(t chrono.Time)       { s.splitTime = t }
func (s *Segment) BestSegmentTime() chrono.Time     { return s.bestSegmentTime }
func (s *Segment) SetBestSegmentTime(t chrono.Time) { s.bestSegmentTime = t }

func (s *Segment) PersonalBestSplitTime() chrono.Time     { return s.personalBestSplitTime }
func (s *Segment) SetPersonalBestSplitTime(t chrono.Time) { s.personalBestSplitTime = t }

// ClearSplitInfo drops the attempt-local state of the segment: its split
// time and the variables snapshot taken at split.
func (s *Segment) ClearSplitInfo() {
	s.splitTime = chrono.Time{}
	s.variables = nil
}

// Variables is the snapshot of the run's custom variables taken when the
// segment was split.
func (s *Segment) Variables() map[string]string     { return s.variables }
func (s *Segment) SetVariables(v map[string]string) { s.variables = v }

// History maps attempt IDs to the segment time achieved in that attempt.
// Negative IDs denote imported entries that belong to no stored attempt.
func (s *Segment) History() map[int32]chrono.Time { return s.history }

// AddToHistory records the segment time for the given attempt.
func (s *Segment) AddToHistory(attemptID int32, t chrono.Time) {
	if s.history == nil {
		s.history = make(map[int32]chrono.Time)
	}
	s.history[attemptID] = t
}

// RemoveFromHistory drops the history entry for the given attempt.
func (s *Segment) RemoveFromHistory(attemptID int32) {
	delete(s.history, attemptID)
}
