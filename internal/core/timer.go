// Package core implements the speedrun timing engine: a four-phase state
// machine driving one attempt across the segments of a run, with
// independent Real Time and Game Time clocks, pause accounting, and a
// serializable state snapshot for external observers.
package core

import (
	"errors"
	"time"

	"fortio.org/log"

	"github.com/veeshi/gosplit/internal/chrono"
	"github.com/veeshi/gosplit/internal/run"
)

var (
	// ErrEmptyRun is returned when a run without segments is supplied;
	// such a run has no place to store a final time.
	ErrEmptyRun = errors.New("run has no segments")
	// ErrUnknownComparison is returned when a comparison name is not in
	// the run's comparison list.
	ErrUnknownComparison = errors.New("comparison not in the run's comparison list")
)

// noSplit is the currentSplitIndex value while no attempt is in
// progress.
const noSplit = -1

// Timer drives a single run attempt. It exclusively owns its Run; all
// mutation of the run during an attempt goes through the timer. The
// timer itself is not safe for concurrent use, see SharedTimer.
type Timer struct {
	clock chrono.Clock

	run                 *run.Run
	phase               Phase
	currentSplitIndex   int
	currentTimingMethod TimingMethod
	currentComparison   string

	attemptStarted *chrono.AtomicDateTime
	attemptEnded   *chrono.AtomicDateTime

	startTime           time.Time
	startTimeWithOffset time.Time
	// adjustedStartTime moves forward by the pause duration on every
	// resume, so Running real time is simply now minus it.
	adjustedStartTime time.Time
	timePausedAt      time.Duration

	isGameTimePaused  bool
	gameTimePauseTime *time.Duration
	loadingTimes      *time.Duration

	startTimeUTC           chrono.AtomicDateTime
	startTimeWithOffsetUTC chrono.AtomicDateTime
	adjustedStartTimeUTC   chrono.AtomicDateTime
	useUTC                 bool

	onTimerChange func(*TimerState)
}

// New creates a timer from a run. The run needs at least one segment so
// the timer can store the final time; otherwise ErrEmptyRun is returned.
func New(r *run.Run) (*Timer, error) {
	if r.IsEmpty() {
		return nil, ErrEmptyRun
	}
	r.FixSplits()
	r.RegenerateComparisons()

	clock := chrono.SystemClock()
	now := clock.Now()
	nowUTC := clock.NowUTC()

	return &Timer{
		clock:                  clock,
		run:                    r,
		phase:                  NotRunning,
		currentSplitIndex:      noSplit,
		currentTimingMethod:    RealTime,
		currentComparison:      run.PersonalBestComparisonName,
		startTime:              now,
		startTimeWithOffset:    now,
		adjustedStartTime:      now,
		startTimeUTC:           nowUTC,
		startTimeWithOffsetUTC: nowUTC,
		adjustedStartTimeUTC:   nowUTC,
		useUTC:                 true,
	}, nil
}

// UseUTC selects whether the wall-clock anchors are authoritative for
// time computation. The monotonic path is immune to wall-clock jumps;
// the UTC path survives serialization round trips.
func (t *Timer) UseUTC(useUTC bool) { t.useUTC = useUTC }

// IntoRun resets the current attempt and hands back the run. With
// updateSplits the attempt is stored in the run's history first,
// otherwise it is discarded.
func (t *Timer) IntoRun(updateSplits bool) *run.Run {
	t.Reset(updateSplits)
	return t.run
}

// ReplaceRun swaps the timer's run for the one provided and returns the
// old run. The current attempt is reset beforehand, storing it according
// to updateSplits. A run without segments is rejected with ErrEmptyRun
// and nothing changes.
func (t *Timer) ReplaceRun(r *run.Run, updateSplits bool) (*run.Run, error) {
	if r.IsEmpty() {
		return nil, ErrEmptyRun
	}
	t.Reset(updateSplits)
	if !r.HasComparison(t.currentComparison) {
		t.currentComparison = run.PersonalBestComparisonName
	}
	r.FixSplits()
	r.RegenerateComparisons()
	old := t.run
	t.run = r
	return old, nil
}

// SetRun replaces the timer's run, dropping the old one.
func (t *Timer) SetRun(r *run.Run) error {
	_, err := t.ReplaceRun(r, false)
	return err
}

// Run accesses the run in use by the timer.
func (t *Timer) Run() *run.Run { return t.run }

// MarkAsUnmodified marks the run as having all changes saved.
func (t *Timer) MarkAsUnmodified() { t.run.MarkAsUnmodified() }

// CurrentPhase returns the current phase.
func (t *Timer) CurrentPhase() Phase { return t.phase }

// currentTime derives the timer's time from the phase and anchors. The
// clock is sampled exactly once, at entry.
func (t *Timer) currentTime() chrono.Time {
	t0 := t.clock.Now()
	t0UTC := t.clock.NowUTC()

	var realTime, realTimeUTC *time.Duration
	switch t.phase {
	case NotRunning:
		realTime = chrono.Span(t.run.Offset())
		realTimeUTC = chrono.Span(t.run.Offset())
	case Running:
		realTime = chrono.Span(t0.Sub(t.adjustedStartTime))
		realTimeUTC = chrono.Span(t0UTC.Sub(t.adjustedStartTimeUTC))
	case Paused:
		realTime = chrono.Span(t.timePausedAt)
		realTimeUTC = chrono.Span(t.timePausedAt)
	case Ended:
		realTime = t.run.LastSegment().SplitTime().RealTime
		realTimeUTC = realTime
	}

	var gameTime *time.Duration
	switch t.phase {
	case NotRunning:
		gameTime = chrono.Span(t.run.Offset())
	case Ended:
		gameTime = t.run.LastSegment().SplitTime().GameTime
	default:
		switch {
		case t.isGameTimePaused:
			gameTime = t.gameTimePauseTime
		case t.IsGameTimeInitialized():
			// Game time always derives from the monotonic clock, even
			// when the UTC anchors are authoritative for display.
			if realTime != nil {
				gameTime = chrono.Span(*realTime - t.LoadingTimes())
			}
		}
	}

	rt := realTime
	if t.useUTC {
		rt = realTimeUTC
	}
	return chrono.Time{RealTime: rt, GameTime: gameTime}
}

// Snapshot freezes the result of the time computation at the point of
// this call, so consumers can work with a consistent view of the timer
// without the current time changing underneath.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{TimerReader: t, time: t.currentTime()}
}

// CurrentTimingMethod returns the currently selected timing method.
func (t *Timer) CurrentTimingMethod() TimingMethod { return t.currentTimingMethod }

// SetCurrentTimingMethod selects the timing method.
func (t *Timer) SetCurrentTimingMethod(m TimingMethod) { t.currentTimingMethod = m }

// ToggleTimingMethod flips between Real Time and Game Time.
func (t *Timer) ToggleTimingMethod() {
	if t.currentTimingMethod == RealTime {
		t.currentTimingMethod = GameTime
	} else {
		t.currentTimingMethod = RealTime
	}
}

// CurrentComparison returns the name of the comparison being compared
// against.
func (t *Timer) CurrentComparison() string { return t.currentComparison }

// SetCurrentComparison switches to the named comparison. If the run does
// not know it, ErrUnknownComparison is returned.
func (t *Timer) SetCurrentComparison(name string) error {
	if !t.run.HasComparison(name) {
		return ErrUnknownComparison
	}
	t.currentComparison = name
	return nil
}

// CurrentSplit returns the segment the attempt is currently on, or nil
// if no attempt is in progress or the run finished.
func (t *Timer) CurrentSplit() *run.Segment {
	if t.currentSplitIndex < 0 || t.currentSplitIndex >= t.run.Len() {
		return nil
	}
	return t.run.Segment(t.currentSplitIndex)
}

// CurrentSplitIndex returns the index of the split the attempt is on.
// The index equals the segment count once the attempt has ended, so be
// careful when using it for indexing. ok is false while no attempt is in
// progress.
func (t *Timer) CurrentSplitIndex() (index int, ok bool) {
	if t.currentSplitIndex == noSplit {
		return 0, false
	}
	return t.currentSplitIndex, true
}

// Start begins a new attempt if none is in progress.
func (t *Timer) Start() {
	t0 := t.clock.Now()
	t0UTC := t.clock.NowUTC()
	if t.phase != NotRunning {
		return
	}
	t.phase = Running
	t.currentSplitIndex = 0
	started := t.clock.NowUTC()
	t.attemptStarted = &started
	t.startTime = t0
	t.startTimeUTC = t0UTC
	t.startTimeWithOffset = t.startTime.Add(-t.run.Offset())
	t.adjustedStartTime = t.startTimeWithOffset
	t.timePausedAt = t.run.Offset()
	t.DeinitializeGameTime()
	t.run.StartNextRun()

	t.startTimeWithOffsetUTC = t.startTimeUTC.Add(-t.run.Offset())
	t.adjustedStartTimeUTC = t.startTimeWithOffsetUTC

	log.LogVf("timer: started attempt %d", t.run.AttemptCount())
	t.SaveState(ActionStart)
}

// Split stores the current time as the current segment's split time and
// advances. The attempt ends when the last split time is stored. Splits
// before the offset countdown reaches zero are ignored.
func (t *Timer) Split() {
	currentTime := t.currentTime()
	if t.phase != Running || currentTime.RealTime == nil || *currentTime.RealTime < 0 {
		return
	}

	variables := make(map[string]string, len(t.run.Metadata().CustomVariables()))
	for name, v := range t.run.Metadata().CustomVariables() {
		variables[name] = v.Value
	}
	segment := t.CurrentSplit()
	segment.SetSplitTime(currentTime)
	segment.SetVariables(variables)

	t.currentSplitIndex++
	if t.currentSplitIndex == t.run.Len() {
		t.phase = Ended
		ended := t.clock.NowUTC()
		t.attemptEnded = &ended
	}
	t.run.MarkAsModified()
	log.LogVf("timer: split %d/%d", t.currentSplitIndex, t.run.Len())
	t.SaveState(ActionSplit)
}

// SplitOrStart starts a new attempt, or splits if one is already in
// progress.
func (t *Timer) SplitOrStart() {
	if t.phase == NotRunning {
		t.Start()
	} else {
		t.Split()
	}
}

// SkipSplit skips the current split if an attempt is in progress and the
// current split is not the last one.
func (t *Timer) SkipSplit() {
	if (t.phase != Running && t.phase != Paused) || t.currentSplitIndex >= t.run.Len()-1 {
		return
	}
	t.CurrentSplit().ClearSplitInfo()
	t.currentSplitIndex++
	t.run.MarkAsModified()
	t.SaveState(ActionSkip)
}

// UndoSplit removes the most recent split time if there is a previous
// split, moving the attempt back onto that segment. An ended attempt
// switches back to Running.
func (t *Timer) UndoSplit() {
	if t.phase == NotRunning || t.currentSplitIndex <= 0 {
		return
	}
	if t.phase == Ended {
		t.phase = Running
	}
	t.currentSplitIndex--
	t.CurrentSplit().ClearSplitInfo()
	t.run.MarkAsModified()
	t.SaveState(ActionUndo)
}

// Reset ends the attempt in progress. With updateSplits all the
// information of the attempt is stored in the run's history, otherwise
// it is discarded.
func (t *Timer) Reset(updateSplits bool) {
	if t.phase == NotRunning {
		return
	}
	t.resetState(updateSplits)
	t.resetSplits()
	log.LogVf("timer: reset (update=%t)", updateSplits)
	t.SaveState(ActionReset)
}

// ResetAndSetAttemptAsPB ends the attempt in progress, stores it, and
// makes its split times the new Personal Best regardless of whether they
// beat the stored one.
func (t *Timer) ResetAndSetAttemptAsPB() {
	if t.phase == NotRunning {
		return
	}
	t.resetState(true)
	t.setRunAsPB()
	t.resetSplits()
	t.SaveState(ActionReset)
}

func (t *Timer) resetState(updateTimes bool) {
	if t.phase != Ended {
		ended := t.clock.NowUTC()
		t.attemptEnded = &ended
	}
	t.ResumeGameTime()
	t.SetLoadingTimes(0)

	if updateTimes {
		t.updateAttemptHistory()
		t.updateBestSegments()
		t.updatePBSplits()
		t.updateSegmentHistory()
	}
}

func (t *Timer) resetSplits() {
	t.phase = NotRunning
	t.currentSplitIndex = noSplit

	for i := range t.run.Segments() {
		t.run.Segment(i).ClearSplitInfo()
	}

	t.run.FixSplits()
	t.run.RegenerateComparisons()
}

// Pause pauses an active attempt that is not paused.
func (t *Timer) Pause() {
	if t.phase != Running {
		return
	}
	if rt := t.currentTime().RealTime; rt != nil {
		t.timePausedAt = *rt
	}
	t.phase = Paused
	t.SaveState(ActionPause)
}

// Resume resumes an attempt that is paused, shifting the adjusted start
// so the pause interval does not count.
func (t *Timer) Resume() {
	if t.phase != Paused {
		return
	}
	t.adjustedStartTime = t.clock.Now().Add(-t.timePausedAt)
	t.adjustedStartTimeUTC = t.clock.NowUTC().Add(-t.timePausedAt)
	t.phase = Running
	t.SaveState(ActionResume)
}

// TogglePause toggles an active attempt between Paused and Running.
func (t *Timer) TogglePause() {
	switch t.phase {
	case Running:
		t.Pause()
	case Paused:
		t.Resume()
	}
}

// TogglePauseOrStart toggles an active attempt between Paused and
// Running, or starts an attempt if none is in progress.
func (t *Timer) TogglePauseOrStart() {
	switch t.phase {
	case Running:
		t.Pause()
	case Paused:
		t.Resume()
	case NotRunning:
		t.Start()
	}
}

// UndoAllPauses removes all pause times from the current time. A paused
// attempt is resumed; an ended attempt gets the pause time added back to
// its final split time. Only the final split time is modified, so the
// intermediate splits keep their pause-adjusted values.
func (t *Timer) UndoAllPauses() {
	switch t.phase {
	case Paused:
		t.Resume()
	case Ended:
		var pause time.Duration
		if p := t.PauseTime(); p != nil {
			pause = *p
		}
		last := t.run.LastSegment()
		add := chrono.Time{RealTime: chrono.Span(pause), GameTime: chrono.Span(pause)}
		last.SetSplitTime(last.SplitTime().Add(add))
	}

	t.adjustedStartTime = t.startTimeWithOffset
	t.adjustedStartTimeUTC = t.startTimeWithOffsetUTC
}

// SwitchToNextComparison rotates the current comparison forward in the
// run's comparison list.
func (t *Timer) SwitchToNextComparison() {
	t.rotateComparison(1)
}

// SwitchToPreviousComparison rotates the current comparison backward in
// the run's comparison list.
func (t *Timer) SwitchToPreviousComparison() {
	t.rotateComparison(-1)
}

func (t *Timer) rotateComparison(step int) {
	comparisons := t.run.Comparisons()
	n := len(comparisons)
	for i, c := range comparisons {
		if c == t.currentComparison {
			t.currentComparison = comparisons[((i+step)%n+n)%n]
			return
		}
	}
	// The comparison invariant guarantees membership; recover anyway.
	t.currentComparison = run.PersonalBestComparisonName
}

// CurrentAttemptDuration returns the total wall duration of the current
// attempt, unaffected by the run's offset and by pauses.
func (t *Timer) CurrentAttemptDuration() time.Duration {
	t0 := t.clock.Now()
	t0UTC := t.clock.NowUTC()

	var d, dUTC time.Duration
	switch t.phase {
	case NotRunning:
	case Running, Paused:
		d = t0.Sub(t.startTime)
		dUTC = t0UTC.Sub(t.startTimeUTC)
	case Ended:
		d = t.attemptEnded.Sub(*t.attemptStarted)
		dUTC = d
	}
	if t.useUTC {
		return dUTC
	}
	return d
}

// PauseTime returns the total time the current attempt has been paused
// for, or nil if there have not been any pauses.
func (t *Timer) PauseTime() *time.Duration {
	t0 := t.clock.Now()
	t0UTC := t.clock.NowUTC()

	var pt, ptUTC *time.Duration
	switch {
	case t.phase == Paused:
		pt = chrono.Span(t0.Sub(t.startTimeWithOffset) - t.timePausedAt)
		ptUTC = chrono.Span(t0UTC.Sub(t.startTimeWithOffsetUTC) - t.timePausedAt)
	case t.phase == Running || t.phase == Ended:
		if !t.startTimeWithOffset.Equal(t.adjustedStartTime) {
			pt = chrono.Span(t.adjustedStartTime.Sub(t.startTimeWithOffset))
		}
		if !t.startTimeWithOffsetUTC.Equal(t.adjustedStartTimeUTC) {
			ptUTC = chrono.Span(t.adjustedStartTimeUTC.Sub(t.startTimeWithOffsetUTC))
		}
	}
	if t.useUTC {
		return ptUTC
	}
	return pt
}

// IsGameTimeInitialized reports whether Game Time is tracked for the
// current attempt. Game Time automatically gets uninitialized for each
// new attempt.
func (t *Timer) IsGameTimeInitialized() bool { return t.loadingTimes != nil }

// InitializeGameTime starts tracking Game Time for the current attempt.
func (t *Timer) InitializeGameTime() {
	t.loadingTimes = chrono.Span(t.LoadingTimes())
}

// DeinitializeGameTime stops tracking Game Time for the current attempt.
func (t *Timer) DeinitializeGameTime() { t.loadingTimes = nil }

// IsGameTimePaused reports whether the game timer is paused. While not
// paused the game timer increments alongside Real Time.
func (t *Timer) IsGameTimePaused() bool { return t.isGameTimePaused }

// PauseGameTime freezes the game timer at its current value.
func (t *Timer) PauseGameTime() {
	if t.isGameTimePaused {
		return
	}
	currentTime := t.currentTime()
	if currentTime.GameTime != nil {
		t.gameTimePauseTime = currentTime.GameTime
	} else {
		t.gameTimePauseTime = currentTime.RealTime
	}
	t.isGameTimePaused = true
}

// ResumeGameTime lets the game timer increment again, continuing from
// the value it was paused at by absorbing the gap into the loading
// times.
func (t *Timer) ResumeGameTime() {
	if !t.isGameTimePaused {
		return
	}
	currentTime := t.currentTime()
	var diff time.Duration
	if currentTime.RealTime != nil && currentTime.GameTime != nil {
		diff = *currentTime.RealTime - *currentTime.GameTime
	}
	t.SetLoadingTimes(diff)
	t.isGameTimePaused = false
}

// SetGameTime sets the Game Time to the value specified. This also works
// while the game timer is paused, which can be used to feed the game
// timer periodically without it moving on its own.
func (t *Timer) SetGameTime(gameTime time.Duration) {
	if t.isGameTimePaused {
		t.gameTimePauseTime = chrono.Span(gameTime)
	}
	if rt := t.currentTime().RealTime; rt != nil {
		t.loadingTimes = chrono.Span(*rt - gameTime)
	}
}

// LoadingTimes returns the accumulated loading times. Game Time is Real
// Time minus the loading times.
func (t *Timer) LoadingTimes() time.Duration {
	if t.loadingTimes == nil {
		return 0
	}
	return *t.loadingTimes
}

// SetLoadingTimes specifies the amount of time the game has been loading
// for; Game Time then derives as Real Time minus this value.
func (t *Timer) SetLoadingTimes(d time.Duration) {
	t.loadingTimes = chrono.Span(d)
	if t.isGameTimePaused {
		if rt := t.currentTime().RealTime; rt != nil {
			t.gameTimePauseTime = chrono.Span(*rt - d)
		}
	}
}

// SetCustomVariable sets the value of the named custom variable. If the
// variable does not exist, a temporary one is created that will not be
// stored with the splits.
func (t *Timer) SetCustomVariable(name, value string) {
	if t.run.Metadata().SetCustomVariable(name, value) {
		t.run.MarkAsModified()
	}
}

func (t *Timer) updateAttemptHistory() {
	var attemptTime chrono.Time
	if t.phase == Ended {
		attemptTime = t.currentTime()
	}
	t.run.AddAttempt(attemptTime, t.attemptStarted, t.attemptEnded, t.PauseTime())
}

// updateBestSegments walks the segments in order, carrying the previous
// cumulative split time per timing method, and lowers each best segment
// time that this attempt beat. The two methods update independently.
func (t *Timer) updateBestSegments() {
	prevRealTime := chrono.Span(0)
	prevGameTime := chrono.Span(0)

	for i := range t.run.Segments() {
		segment := t.run.Segment(i)
		newBest := segment.BestSegmentTime()
		if st := segment.SplitTime().RealTime; st != nil {
			var current *time.Duration
			if prevRealTime != nil {
				current = chrono.Span(*st - *prevRealTime)
			}
			prevRealTime = st
			if best := newBest.RealTime; best == nil || (current != nil && *current < *best) {
				newBest.RealTime = current
			}
		}
		if st := segment.SplitTime().GameTime; st != nil {
			var current *time.Duration
			if prevGameTime != nil {
				current = chrono.Span(*st - *prevGameTime)
			}
			prevGameTime = st
			if best := newBest.GameTime; best == nil || (current != nil && *current < *best) {
				newBest.GameTime = current
			}
		}
		segment.SetBestSegmentTime(newBest)
	}
}

// updatePBSplits promotes the attempt to Personal Best when the final
// split time under the current timing method beats the stored PB.
func (t *Timer) updatePBSplits() {
	realTime := t.currentTimingMethod == RealTime
	last := t.run.LastSegment()
	splitTime := last.SplitTime().Get(realTime)
	pbSplitTime := last.PersonalBestSplitTime().Get(realTime)
	if splitTime != nil && (pbSplitTime == nil || *splitTime < *pbSplitTime) {
		t.setRunAsPB()
	}
}

func (t *Timer) updateSegmentHistory() {
	if t.currentSplitIndex != noSplit {
		t.run.UpdateSegmentHistory(t.currentSplitIndex)
	}
}

func (t *Timer) setRunAsPB() {
	t.run.ImportPBIntoSegmentHistory()
	t.run.FixSplits()
	for i := range t.run.Segments() {
		segment := t.run.Segment(i)
		segment.SetPersonalBestSplitTime(segment.SplitTime())
	}
	t.run.ClearRunID()
}
