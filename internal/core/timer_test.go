package core

import (
	"testing"
	"time"

	"github.com/veeshi/gosplit/internal/chrono"
	"github.com/veeshi/gosplit/internal/run"
)

/*********** fakes for deterministic testing ***********/

// fakeClock drives both timestamp families in lockstep so tests control
// every duration exactly.
type fakeClock struct {
	now time.Time
	utc time.Time
}

func newFakeClock() *fakeClock {
	base := time.Unix(1000, 0)
	return &fakeClock{now: base, utc: base.UTC()}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) NowUTC() chrono.AtomicDateTime {
	return chrono.AtomicDateTime{Time: f.utc, Synced: true}
}

func (f *fakeClock) advance(d time.Duration) {
	f.now = f.now.Add(d)
	f.utc = f.utc.Add(d)
}

func testRun(segments ...string) *run.Run {
	r := run.New()
	r.SetGameName("Test Game")
	r.SetCategoryName("Any%")
	for _, s := range segments {
		r.PushSegment(run.NewSegment(s))
	}
	return r
}

func newTestTimer(t *testing.T, segments ...string) (*Timer, *fakeClock) {
	t.Helper()
	timer, err := New(testRun(segments...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fc := newFakeClock()
	timer.clock = fc
	return timer, fc
}

func realTimeOf(t *testing.T, timer *Timer) time.Duration {
	t.Helper()
	rt := timer.Snapshot().CurrentTime().RealTime
	if rt == nil {
		t.Fatal("real time unexpectedly absent")
	}
	return *rt
}

func gameTimeOf(t *testing.T, timer *Timer) time.Duration {
	t.Helper()
	gt := timer.Snapshot().CurrentTime().GameTime
	if gt == nil {
		t.Fatal("game time unexpectedly absent")
	}
	return *gt
}

/*********** construction ***********/

func TestNew_EmptyRunRejected(t *testing.T) {
	if _, err := New(run.New()); err != ErrEmptyRun {
		t.Fatalf("expected ErrEmptyRun, got %v", err)
	}
}

func TestNew_InitialState(t *testing.T) {
	timer, _ := newTestTimer(t, "A")
	if timer.CurrentPhase() != NotRunning {
		t.Fatalf("expected NotRunning, got %v", timer.CurrentPhase())
	}
	if _, ok := timer.CurrentSplitIndex(); ok {
		t.Fatal("expected no current split index before start")
	}
	if timer.CurrentComparison() != run.PersonalBestComparisonName {
		t.Fatalf("expected PB comparison, got %q", timer.CurrentComparison())
	}
}

/*********** S1: happy path ***********/

func TestHappyPath(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B")

	timer.Start()
	if timer.CurrentPhase() != Running {
		t.Fatalf("expected Running, got %v", timer.CurrentPhase())
	}
	if idx, ok := timer.CurrentSplitIndex(); !ok || idx != 0 {
		t.Fatalf("expected index 0, got %d (%v)", idx, ok)
	}

	fc.advance(10 * time.Second)
	timer.Split()
	segA := timer.Run().Segment(0)
	if st := segA.SplitTime().RealTime; st == nil || *st != 10*time.Second {
		t.Fatalf("segment A split time: %v", segA.SplitTime().RealTime)
	}
	if idx, _ := timer.CurrentSplitIndex(); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}

	fc.advance(5 * time.Second)
	timer.Split()
	if timer.CurrentPhase() != Ended {
		t.Fatalf("expected Ended, got %v", timer.CurrentPhase())
	}
	segB := timer.Run().Segment(1)
	if st := segB.SplitTime().RealTime; st == nil || *st != 15*time.Second {
		t.Fatalf("segment B split time: %v", segB.SplitTime().RealTime)
	}
	if idx, _ := timer.CurrentSplitIndex(); idx != timer.Run().Len() {
		t.Fatalf("ended index should equal segment count, got %d", idx)
	}
}

/*********** S2: negative offset ***********/

func TestNegativeOffset(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Run().SetOffset(-3 * time.Second)

	timer.Start()
	fc.advance(1 * time.Second)
	if got := realTimeOf(t, timer); got != -2*time.Second {
		t.Fatalf("expected -2s, got %v", got)
	}

	// Splits are rejected while the countdown is still negative.
	timer.Split()
	if idx, _ := timer.CurrentSplitIndex(); idx != 0 {
		t.Fatalf("split before zero must be ignored, index %d", idx)
	}

	fc.advance(3 * time.Second)
	timer.Split()
	if timer.CurrentPhase() != Ended {
		t.Fatalf("expected Ended, got %v", timer.CurrentPhase())
	}
	if st := timer.Run().Segment(0).SplitTime().RealTime; st == nil || *st != 1*time.Second {
		t.Fatalf("expected 1s split, got %v", st)
	}
}

/*********** S3: pause and resume ***********/

func TestPauseResume(t *testing.T) {
	timer, fc := newTestTimer(t, "A")

	timer.Start()
	fc.advance(5 * time.Second)
	timer.Pause()
	if timer.CurrentPhase() != Paused {
		t.Fatalf("expected Paused, got %v", timer.CurrentPhase())
	}
	if got := realTimeOf(t, timer); got != 5*time.Second {
		t.Fatalf("paused time should freeze at 5s, got %v", got)
	}

	fc.advance(10 * time.Second)
	if got := realTimeOf(t, timer); got != 5*time.Second {
		t.Fatalf("time advanced while paused: %v", got)
	}

	timer.Resume()
	fc.advance(1 * time.Second)
	if got := realTimeOf(t, timer); got != 6*time.Second {
		t.Fatalf("expected 6s after resume, got %v", got)
	}

	pause := timer.PauseTime()
	if pause == nil || *pause != 10*time.Second {
		t.Fatalf("expected 10s pause time, got %v", pause)
	}
}

func TestPauseTime_WhilePaused(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(5 * time.Second)
	timer.Pause()
	fc.advance(7 * time.Second)
	pause := timer.PauseTime()
	if pause == nil || *pause != 7*time.Second {
		t.Fatalf("expected 7s pause time while paused, got %v", pause)
	}
}

func TestPauseTime_NoPauses(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(5 * time.Second)
	if p := timer.PauseTime(); p != nil {
		t.Fatalf("expected no pause time, got %v", *p)
	}
}

/*********** S4: skip then undo ***********/

func TestSkipThenUndo(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B", "C")

	timer.Start()
	fc.advance(2 * time.Second)
	timer.Split()

	fc.advance(1 * time.Second)
	timer.SkipSplit()
	if idx, _ := timer.CurrentSplitIndex(); idx != 2 {
		t.Fatalf("expected index 2 after skip, got %d", idx)
	}
	if st := timer.Run().Segment(1).SplitTime(); st.RealTime != nil {
		t.Fatal("skipped segment must have no split time")
	}

	timer.UndoSplit()
	if idx, _ := timer.CurrentSplitIndex(); idx != 1 {
		t.Fatalf("expected index 1 after undo, got %d", idx)
	}
	if st := timer.Run().Segment(1).SplitTime(); st.RealTime != nil {
		t.Fatal("undone segment must have no split time")
	}
	if timer.CurrentPhase() != Running {
		t.Fatalf("phase should still be Running, got %v", timer.CurrentPhase())
	}
	// The first split is untouched.
	if st := timer.Run().Segment(0).SplitTime().RealTime; st == nil || *st != 2*time.Second {
		t.Fatalf("segment A split time clobbered: %v", st)
	}
}

func TestSkip_IgnoredOnLastSplit(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B")
	timer.Start()
	fc.advance(1 * time.Second)
	timer.Split()
	timer.SkipSplit()
	if idx, _ := timer.CurrentSplitIndex(); idx != 1 {
		t.Fatalf("skip on last split must be ignored, index %d", idx)
	}
}

func TestUndo_IgnoredAtFirstSplit(t *testing.T) {
	timer, _ := newTestTimer(t, "A", "B")
	timer.Start()
	timer.UndoSplit()
	if idx, _ := timer.CurrentSplitIndex(); idx != 0 {
		t.Fatalf("undo at index 0 must be ignored, index %d", idx)
	}
}

func TestUndo_ReopensEndedRun(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(1 * time.Second)
	timer.Split()
	if timer.CurrentPhase() != Ended {
		t.Fatalf("expected Ended, got %v", timer.CurrentPhase())
	}
	timer.UndoSplit()
	if timer.CurrentPhase() != Running {
		t.Fatalf("expected Running after undo, got %v", timer.CurrentPhase())
	}
	if idx, _ := timer.CurrentSplitIndex(); idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
}

/*********** S5: reset with update ***********/

func TestResetWithUpdate(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B")
	r := timer.Run()
	// Stored PB: 5s / 10s.
	r.Segment(0).SetPersonalBestSplitTime(chrono.Time{RealTime: chrono.Span(5 * time.Second)})
	r.Segment(1).SetPersonalBestSplitTime(chrono.Time{RealTime: chrono.Span(10 * time.Second)})

	timer.Start()
	fc.advance(4 * time.Second)
	timer.Split()
	fc.advance(5 * time.Second)
	timer.Split()

	timer.Reset(true)

	if timer.CurrentPhase() != NotRunning {
		t.Fatalf("expected NotRunning, got %v", timer.CurrentPhase())
	}
	if _, ok := timer.CurrentSplitIndex(); ok {
		t.Fatal("expected no split index after reset")
	}
	if len(r.AttemptHistory()) != 1 {
		t.Fatalf("expected 1 attempt in history, got %d", len(r.AttemptHistory()))
	}
	attempt := r.AttemptHistory()[0]
	if attempt.Time.RealTime == nil || *attempt.Time.RealTime != 9*time.Second {
		t.Fatalf("attempt final time: %v", attempt.Time.RealTime)
	}

	// Best segments: 4s and 5s.
	if b := r.Segment(0).BestSegmentTime().RealTime; b == nil || *b != 4*time.Second {
		t.Fatalf("segment A best: %v", b)
	}
	if b := r.Segment(1).BestSegmentTime().RealTime; b == nil || *b != 5*time.Second {
		t.Fatalf("segment B best: %v", b)
	}

	// PB promoted: the run beat 10s with 9s.
	if pb := r.Segment(1).PersonalBestSplitTime().RealTime; pb == nil || *pb != 9*time.Second {
		t.Fatalf("PB not promoted: %v", pb)
	}
	if pb := r.Segment(0).PersonalBestSplitTime().RealTime; pb == nil || *pb != 4*time.Second {
		t.Fatalf("PB segment A: %v", pb)
	}

	// Segment history recorded for the new attempt.
	id := attempt.ID
	if _, ok := r.Segment(0).History()[id]; !ok {
		t.Fatal("segment history missing the attempt")
	}

	// All split info cleared.
	for i := range r.Segments() {
		if r.Segment(i).SplitTime().RealTime != nil {
			t.Fatalf("segment %d split info not cleared", i)
		}
	}
}

func TestReset_SlowerRunDoesNotPromotePB(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Run().Segment(0).SetPersonalBestSplitTime(chrono.Time{RealTime: chrono.Span(5 * time.Second)})

	timer.Start()
	fc.advance(8 * time.Second)
	timer.Split()
	timer.Reset(true)

	if pb := timer.Run().Segment(0).PersonalBestSplitTime().RealTime; pb == nil || *pb != 5*time.Second {
		t.Fatalf("PB should stay at 5s, got %v", pb)
	}
}

func TestReset_Idempotent(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(1 * time.Second)
	timer.Split()
	timer.Reset(true)
	timer.Reset(true)
	if n := len(timer.Run().AttemptHistory()); n != 1 {
		t.Fatalf("second reset must be a no-op, history has %d attempts", n)
	}
}

func TestResetAndSetAttemptAsPB(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Run().Segment(0).SetPersonalBestSplitTime(chrono.Time{RealTime: chrono.Span(5 * time.Second)})

	timer.Start()
	fc.advance(8 * time.Second)
	timer.Split()
	timer.ResetAndSetAttemptAsPB()

	// Promotion is unconditional, even though 8s is slower than 5s.
	if pb := timer.Run().Segment(0).PersonalBestSplitTime().RealTime; pb == nil || *pb != 8*time.Second {
		t.Fatalf("expected PB forced to 8s, got %v", pb)
	}
	if timer.CurrentPhase() != NotRunning {
		t.Fatalf("expected NotRunning, got %v", timer.CurrentPhase())
	}
}

/*********** S6: game time ***********/

func TestGameTimeIndependentPause(t *testing.T) {
	timer, fc := newTestTimer(t, "A")

	timer.Start()
	timer.InitializeGameTime()
	timer.SetLoadingTimes(2 * time.Second)
	if !timer.IsGameTimeInitialized() {
		t.Fatal("game time should be initialized")
	}

	fc.advance(10 * time.Second)
	if rt := realTimeOf(t, timer); rt != 10*time.Second {
		t.Fatalf("real time: %v", rt)
	}
	if gt := gameTimeOf(t, timer); gt != 8*time.Second {
		t.Fatalf("game time: %v", gt)
	}

	timer.PauseGameTime()
	fc.advance(5 * time.Second)
	if rt := realTimeOf(t, timer); rt != 15*time.Second {
		t.Fatalf("real time while game paused: %v", rt)
	}
	if gt := gameTimeOf(t, timer); gt != 8*time.Second {
		t.Fatalf("game time must stay frozen: %v", gt)
	}

	timer.ResumeGameTime()
	if lt := timer.LoadingTimes(); lt != 7*time.Second {
		t.Fatalf("loading times after resume: %v", lt)
	}
	fc.advance(1 * time.Second)
	if gt := gameTimeOf(t, timer); gt != 9*time.Second {
		t.Fatalf("game time should continue from 8s: %v", gt)
	}
}

func TestGameTime_UninitializedIsAbsent(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(3 * time.Second)
	if gt := timer.Snapshot().CurrentTime().GameTime; gt != nil {
		t.Fatalf("game time should be absent before initialization, got %v", *gt)
	}
}

func TestGameTime_DeinitializedOnStart(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	timer.InitializeGameTime()
	fc.advance(1 * time.Second)
	timer.Split()
	timer.Reset(false)
	timer.Start()
	if timer.IsGameTimeInitialized() {
		t.Fatal("game time must be uninitialized for a new attempt")
	}
}

func TestSetGameTime(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	timer.InitializeGameTime()
	fc.advance(10 * time.Second)
	timer.SetGameTime(4 * time.Second)
	if lt := timer.LoadingTimes(); lt != 6*time.Second {
		t.Fatalf("loading times: %v", lt)
	}
	if gt := gameTimeOf(t, timer); gt != 4*time.Second {
		t.Fatalf("game time: %v", gt)
	}
}

func TestLoadingTimesEquivalentToInitialized(t *testing.T) {
	timer, _ := newTestTimer(t, "A")
	if timer.IsGameTimeInitialized() {
		t.Fatal("fresh timer must not have game time initialized")
	}
	timer.InitializeGameTime()
	if !timer.IsGameTimeInitialized() {
		t.Fatal("initialized flag must track loading times presence")
	}
	timer.DeinitializeGameTime()
	if timer.IsGameTimeInitialized() {
		t.Fatal("deinitialize must clear the flag")
	}
}

/*********** undo all pauses ***********/

func TestUndoAllPauses_Running(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(5 * time.Second)
	timer.Pause()
	fc.advance(10 * time.Second)
	timer.Resume()

	timer.UndoAllPauses()
	if got := realTimeOf(t, timer); got != 15*time.Second {
		t.Fatalf("expected 15s after undoing pauses, got %v", got)
	}
	if p := timer.PauseTime(); p != nil {
		t.Fatalf("pause time should be gone, got %v", *p)
	}
}

func TestUndoAllPauses_Ended(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(5 * time.Second)
	timer.Pause()
	fc.advance(10 * time.Second)
	timer.Resume()
	fc.advance(1 * time.Second)
	timer.Split() // final time 6s, 10s of pauses

	timer.UndoAllPauses()
	if st := timer.Run().Segment(0).SplitTime().RealTime; st == nil || *st != 16*time.Second {
		t.Fatalf("final split should absorb the pause, got %v", st)
	}
}

/*********** phase machine noops ***********/

func TestSilentNoops(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B")

	// Nothing may happen before start.
	timer.Split()
	timer.Pause()
	timer.Resume()
	timer.SkipSplit()
	timer.UndoSplit()
	timer.Reset(true)
	if timer.CurrentPhase() != NotRunning {
		t.Fatalf("phase drifted: %v", timer.CurrentPhase())
	}
	if n := len(timer.Run().AttemptHistory()); n != 0 {
		t.Fatalf("no attempt should be recorded, got %d", n)
	}

	timer.Start()
	timer.Start() // second start ignored
	fc.advance(1 * time.Second)
	timer.Resume() // not paused
	if timer.CurrentPhase() != Running {
		t.Fatalf("expected Running, got %v", timer.CurrentPhase())
	}

	fc.advance(1 * time.Second)
	timer.Split()
	fc.advance(1 * time.Second)
	timer.Split() // ended
	timer.Split() // ignored
	timer.Pause() // ignored
	if timer.CurrentPhase() != Ended {
		t.Fatalf("expected Ended, got %v", timer.CurrentPhase())
	}
}

func TestToggles(t *testing.T) {
	timer, fc := newTestTimer(t, "A")

	timer.TogglePauseOrStart()
	if timer.CurrentPhase() != Running {
		t.Fatalf("toggle should start, got %v", timer.CurrentPhase())
	}
	fc.advance(1 * time.Second)
	timer.TogglePause()
	if timer.CurrentPhase() != Paused {
		t.Fatalf("toggle should pause, got %v", timer.CurrentPhase())
	}
	timer.TogglePauseOrStart()
	if timer.CurrentPhase() != Running {
		t.Fatalf("toggle should resume, got %v", timer.CurrentPhase())
	}

	timer.SplitOrStart()
	if timer.CurrentPhase() != Ended {
		t.Fatalf("split-or-start should split, got %v", timer.CurrentPhase())
	}
}

/*********** timing methods and comparisons ***********/

func TestTimingMethodToggle(t *testing.T) {
	timer, _ := newTestTimer(t, "A")
	if timer.CurrentTimingMethod() != RealTime {
		t.Fatalf("default method: %v", timer.CurrentTimingMethod())
	}
	timer.ToggleTimingMethod()
	if timer.CurrentTimingMethod() != GameTime {
		t.Fatalf("expected GameTime, got %v", timer.CurrentTimingMethod())
	}
	timer.SetCurrentTimingMethod(RealTime)
	if timer.CurrentTimingMethod() != RealTime {
		t.Fatalf("expected RealTime, got %v", timer.CurrentTimingMethod())
	}
}

func TestComparisonRotation(t *testing.T) {
	timer, _ := newTestTimer(t, "A")
	timer.Run().AddCustomComparison("Gold Pace")

	original := timer.CurrentComparison()
	n := len(timer.Run().Comparisons())
	for i := 0; i < n; i++ {
		timer.SwitchToNextComparison()
	}
	if timer.CurrentComparison() != original {
		t.Fatalf("full rotation must return to %q, got %q", original, timer.CurrentComparison())
	}

	timer.SwitchToNextComparison()
	next := timer.CurrentComparison()
	timer.SwitchToPreviousComparison()
	if timer.CurrentComparison() != original {
		t.Fatalf("previous after next must undo, got %q", timer.CurrentComparison())
	}
	if next == original {
		t.Fatal("next comparison should differ from original")
	}
}

func TestSetCurrentComparison(t *testing.T) {
	timer, _ := newTestTimer(t, "A")
	if err := timer.SetCurrentComparison(run.BestSegmentsComparisonName); err != nil {
		t.Fatalf("known comparison rejected: %v", err)
	}
	if err := timer.SetCurrentComparison("No Such Comparison"); err != ErrUnknownComparison {
		t.Fatalf("expected ErrUnknownComparison, got %v", err)
	}
	if timer.CurrentComparison() != run.BestSegmentsComparisonName {
		t.Fatalf("failed set must not change comparison, got %q", timer.CurrentComparison())
	}
}

/*********** attempt duration ***********/

func TestCurrentAttemptDuration(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Run().SetOffset(-10 * time.Second)

	if d := timer.CurrentAttemptDuration(); d != 0 {
		t.Fatalf("expected 0 before start, got %v", d)
	}

	timer.Start()
	fc.advance(2 * time.Second)
	// The offset does not affect the attempt duration.
	if d := timer.CurrentAttemptDuration(); d != 2*time.Second {
		t.Fatalf("expected 2s, got %v", d)
	}

	timer.Pause()
	fc.advance(5 * time.Second)
	// Neither does pausing: the wall keeps counting.
	if d := timer.CurrentAttemptDuration(); d != 7*time.Second {
		t.Fatalf("expected 7s, got %v", d)
	}
}

/*********** invariants ***********/

func TestAdjustedStartNeverBeforeStartWithOffset(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	for i := 0; i < 3; i++ {
		fc.advance(time.Second)
		timer.Pause()
		fc.advance(time.Second)
		timer.Resume()
		if timer.adjustedStartTime.Before(timer.startTimeWithOffset) {
			t.Fatal("adjusted start moved before start with offset")
		}
	}
}

func TestSnapshotFreezesTime(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(3 * time.Second)

	snap := timer.Snapshot()
	before := snap.CurrentTime()
	fc.advance(42 * time.Second)
	after := snap.CurrentTime()
	if *before.RealTime != *after.RealTime {
		t.Fatalf("snapshot time moved: %v -> %v", *before.RealTime, *after.RealTime)
	}
	// Non-frozen reads pass through to the timer.
	if got := realTimeOf(t, timer); got != 45*time.Second {
		t.Fatalf("timer itself should have advanced, got %v", got)
	}
}

func TestMonotonicPath(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.UseUTC(false)
	timer.Start()
	fc.advance(5 * time.Second)
	if got := realTimeOf(t, timer); got != 5*time.Second {
		t.Fatalf("monotonic path: %v", got)
	}
	timer.Pause()
	fc.advance(3 * time.Second)
	timer.Resume()
	fc.advance(1 * time.Second)
	if got := realTimeOf(t, timer); got != 6*time.Second {
		t.Fatalf("monotonic path after pause: %v", got)
	}
	p := timer.PauseTime()
	if p == nil || *p != 3*time.Second {
		t.Fatalf("monotonic pause time: %v", p)
	}
}

/*********** change callback ***********/

func TestCallbackSequence(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B")

	var actions []Action
	timer.SetOnTimerChange(func(st *TimerState) {
		actions = append(actions, st.Action)
	})

	timer.Start()
	fc.advance(1 * time.Second)
	timer.Split()
	timer.Pause()
	timer.Resume()
	timer.SkipSplit() // on last split: ignored, no callback
	timer.UndoSplit()
	fc.advance(1 * time.Second)
	timer.Split()
	fc.advance(1 * time.Second)
	timer.Split()
	timer.Reset(true)

	want := []Action{
		ActionStart, ActionSplit, ActionPause, ActionResume,
		ActionUndo, ActionSplit, ActionSplit, ActionReset,
	}
	if len(actions) != len(want) {
		t.Fatalf("callback count: got %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("callback %d: got %v, want %v", i, actions[i], want[i])
		}
	}
}

func TestCallbackStateIsLabeled(t *testing.T) {
	timer, _ := newTestTimer(t, "First")

	var last *TimerState
	timer.SetOnTimerChange(func(st *TimerState) { last = st })
	timer.Start()

	if last == nil {
		t.Fatal("callback not invoked on start")
	}
	if last.Action != ActionStart {
		t.Fatalf("action: %v", last.Action)
	}
	if last.Phase != "Running" {
		t.Fatalf("phase: %q", last.Phase)
	}
	if last.SplitName != "First" {
		t.Fatalf("split name: %q", last.SplitName)
	}
}

/*********** custom variables ***********/

func TestCustomVariablesSnapshotOnSplit(t *testing.T) {
	timer, fc := newTestTimer(t, "A", "B")
	timer.Run().Metadata().DeclarePermanentVariable("route", "glitchless")

	timer.Start()
	timer.SetCustomVariable("deaths", "2")
	fc.advance(1 * time.Second)
	timer.Split()

	vars := timer.Run().Segment(0).Variables()
	if vars["route"] != "glitchless" || vars["deaths"] != "2" {
		t.Fatalf("variables snapshot: %v", vars)
	}

	// Changing a variable later must not affect the recorded snapshot.
	timer.SetCustomVariable("deaths", "3")
	if vars := timer.Run().Segment(0).Variables(); vars["deaths"] != "2" {
		t.Fatalf("snapshot mutated: %v", vars)
	}
}

func TestSetCustomVariable_PermanentMarksModified(t *testing.T) {
	timer, _ := newTestTimer(t, "A")
	timer.Run().Metadata().DeclarePermanentVariable("route", "")
	timer.MarkAsUnmodified()

	timer.SetCustomVariable("temp", "x")
	if timer.Run().HasBeenModified() {
		t.Fatal("temporary variable must not mark the run modified")
	}
	timer.SetCustomVariable("route", "glitchless")
	if !timer.Run().HasBeenModified() {
		t.Fatal("permanent variable must mark the run modified")
	}
}

/*********** run ownership ***********/

func TestIntoRunResetsFirst(t *testing.T) {
	timer, fc := newTestTimer(t, "A")
	timer.Start()
	fc.advance(1 * time.Second)
	timer.Split()
	r := timer.IntoRun(true)
	if len(r.AttemptHistory()) != 1 {
		t.Fatalf("attempt should be stored, history %d", len(r.AttemptHistory()))
	}
}

func TestReplaceRun(t *testing.T) {
	timer, _ := newTestTimer(t, "A")

	if _, err := timer.ReplaceRun(run.New(), false); err != ErrEmptyRun {
		t.Fatalf("empty replacement must be rejected, got %v", err)
	}

	replacement := testRun("X", "Y")
	old, err := timer.ReplaceRun(replacement, false)
	if err != nil {
		t.Fatalf("ReplaceRun: %v", err)
	}
	if old.Segment(0).Name() != "A" {
		t.Fatalf("old run not returned, got %q", old.Segment(0).Name())
	}
	if timer.Run() != replacement {
		t.Fatal("run not swapped")
	}
	if timer.CurrentComparison() != run.PersonalBestComparisonName {
		t.Fatalf("comparison should stay valid, got %q", timer.CurrentComparison())
	}
}
