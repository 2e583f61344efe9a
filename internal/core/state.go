package core

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fortio.org/log"

	"github.com/veeshi/gosplit/internal/chrono"
)

// TimeState is a split time on the wire, with both components in
// floating-point seconds. Absent keys mean the component is not present.
type TimeState struct {
	RealTime *float64 `json:"real_time,omitempty"`
	GameTime *float64 `json:"game_time,omitempty"`
}

func timeToState(t chrono.Time) TimeState {
	var ts TimeState
	if t.RealTime != nil {
		s := chrono.Seconds(*t.RealTime)
		ts.RealTime = &s
	}
	if t.GameTime != nil {
		s := chrono.Seconds(*t.GameTime)
		ts.GameTime = &s
	}
	return ts
}

func (ts TimeState) toTime() chrono.Time {
	var t chrono.Time
	if ts.RealTime != nil {
		t.RealTime = chrono.Span(chrono.FromSeconds(*ts.RealTime))
	}
	if ts.GameTime != nil {
		t.GameTime = chrono.Span(chrono.FromSeconds(*ts.GameTime))
	}
	return t
}

// DateTimeState is an AtomicDateTime on the wire: an ISO-8601 instant
// plus the synced flag.
type DateTimeState struct {
	Time   string `json:"time"`
	Synced bool   `json:"synced"`
}

func adtToState(a chrono.AtomicDateTime) DateTimeState {
	return DateTimeState{Time: a.FormatISO(), Synced: a.Synced}
}

func (d DateTimeState) toADT() (chrono.AtomicDateTime, error) {
	return chrono.ParseISO(d.Time, d.Synced)
}

// TimerState is the serializable projection of the timer that external
// observers (UI, network, persistence) consume. The attempt operations
// listed at SetOnTimerChange emit one, tagged with the action that
// produced it.
type TimerState struct {
	Splits                 []TimeState    `json:"splits"`
	Phase                  string         `json:"phase"`
	CurrentSplitIndex      *int           `json:"current_split_index,omitempty"`
	CurrentTimingMethod    string         `json:"current_timing_method"`
	CurrentComparison      string         `json:"current_comparison"`
	AttemptStarted         *DateTimeState `json:"attempt_started,omitempty"`
	AttemptEnded           *DateTimeState `json:"attempt_ended,omitempty"`
	TimePausedAt           float64        `json:"time_paused_at"`
	IsGameTimePaused       bool           `json:"is_game_time_paused"`
	GameTimePauseTime      *float64       `json:"game_time_pause_time,omitempty"`
	LoadingTimes           *float64       `json:"loading_times,omitempty"`
	StartTimeUTC           DateTimeState  `json:"start_time_utc"`
	StartTimeWithOffsetUTC DateTimeState  `json:"start_time_with_offset_utc"`
	AdjustedStartTimeUTC   DateTimeState  `json:"adjusted_start_time_utc"`
	SplitName              string         `json:"split_name"`
	Action                 Action         `json:"action"`
}

// TimerState builds the serializable projection of the timer, tagged
// with the given action.
func (t *Timer) TimerState(action Action) *TimerState {
	segments := t.run.Segments()
	splits := make([]TimeState, len(segments))
	for i := range segments {
		splits[i] = timeToState(segments[i].SplitTime())
	}
	splitName := "empty"
	if seg := t.CurrentSplit(); seg != nil {
		splitName = seg.Name()
	}

	state := &TimerState{
		Splits:                 splits,
		Phase:                  t.phase.String(),
		CurrentTimingMethod:    t.currentTimingMethod.String(),
		CurrentComparison:      t.currentComparison,
		TimePausedAt:           chrono.Seconds(t.timePausedAt),
		IsGameTimePaused:       t.isGameTimePaused,
		StartTimeUTC:           adtToState(t.startTimeUTC),
		StartTimeWithOffsetUTC: adtToState(t.startTimeWithOffsetUTC),
		AdjustedStartTimeUTC:   adtToState(t.adjustedStartTimeUTC),
		SplitName:              splitName,
		Action:                 action,
	}
	if t.currentSplitIndex != noSplit {
		idx := t.currentSplitIndex
		state.CurrentSplitIndex = &idx
	}
	if t.attemptStarted != nil {
		s := adtToState(*t.attemptStarted)
		state.AttemptStarted = &s
	}
	if t.attemptEnded != nil {
		s := adtToState(*t.attemptEnded)
		state.AttemptEnded = &s
	}
	if t.gameTimePauseTime != nil {
		s := chrono.Seconds(*t.gameTimePauseTime)
		state.GameTimePauseTime = &s
	}
	if t.loadingTimes != nil {
		s := chrono.Seconds(*t.loadingTimes)
		state.LoadingTimes = &s
	}
	return state
}

// SetOnTimerChange registers the callback invoked with a labeled state
// after Start, Split, SkipSplit, UndoSplit, Reset,
// ResetAndSetAttemptAsPB, Pause and Resume take effect. The other
// mutating operations (UndoAllPauses, the Game Time and loading-time
// setters, timing-method and comparison changes, custom variables, run
// replacement) do not invoke it. The callback runs synchronously on the
// mutating caller's thread and must not call back into the timer.
func (t *Timer) SetOnTimerChange(fn func(*TimerState)) { t.onTimerChange = fn }

// SaveState builds the timer's state tagged with the given action and
// hands it to the registered change callback, if any.
func (t *Timer) SaveState(action Action) {
	if t.onTimerChange == nil {
		return
	}
	t.onTimerChange(t.TimerState(action))
}

// ReplaceState loads a previously saved state into the timer. The state
// must belong to a run with the same number of segments; a mismatch is a
// programming error and panics. The monotonic anchors restart at the
// current instant; the UTC anchors are restored verbatim, so with UTC
// authoritative a loaded running attempt continues where it left off.
func (t *Timer) ReplaceState(state *TimerState) {
	if len(state.Splits) != t.run.Len() {
		log.Errf("inconsistent state: run has %d segments, state has %d splits",
			t.run.Len(), len(state.Splits))
		panic(fmt.Sprintf("inconsistent state: run has %d segments, state has %d splits",
			t.run.Len(), len(state.Splits)))
	}
	for i, split := range state.Splits {
		t.run.Segment(i).SetSplitTime(split.toTime())
	}
	phase, err := parsePhase(state.Phase)
	if err != nil {
		panic(err.Error())
	}
	method, err := parseTimingMethod(state.CurrentTimingMethod)
	if err != nil {
		panic(err.Error())
	}
	t.phase = phase
	t.currentTimingMethod = method
	t.currentComparison = state.CurrentComparison
	if state.CurrentSplitIndex != nil {
		t.currentSplitIndex = *state.CurrentSplitIndex
	} else {
		t.currentSplitIndex = noSplit
	}
	t.attemptStarted = loadADT(state.AttemptStarted)
	t.attemptEnded = loadADT(state.AttemptEnded)
	now := t.clock.Now()
	t.startTime = now
	t.startTimeWithOffset = now
	t.adjustedStartTime = now
	t.timePausedAt = chrono.FromSeconds(state.TimePausedAt)
	t.isGameTimePaused = state.IsGameTimePaused
	t.gameTimePauseTime = loadSeconds(state.GameTimePauseTime)
	t.loadingTimes = loadSeconds(state.LoadingTimes)
	t.startTimeUTC = mustADT(state.StartTimeUTC)
	t.startTimeWithOffsetUTC = mustADT(state.StartTimeWithOffsetUTC)
	t.adjustedStartTimeUTC = mustADT(state.AdjustedStartTimeUTC)
	log.LogVf("timer: state replaced, phase %v", t.phase)
}

func loadADT(d *DateTimeState) *chrono.AtomicDateTime {
	if d == nil {
		return nil
	}
	a := mustADT(*d)
	return &a
}

func mustADT(d DateTimeState) chrono.AtomicDateTime {
	a, err := d.toADT()
	if err != nil {
		panic(fmt.Sprintf("unparsable instant %q: %v", d.Time, err))
	}
	return a
}

func loadSeconds(s *float64) *time.Duration {
	if s == nil {
		return nil
	}
	return chrono.Span(chrono.FromSeconds(*s))
}

// JSON renders the state as its wire form.
func (s *TimerState) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// StateFromFile reads and parses a persisted TimerState. The error
// reports an unreadable file as well as unparsable content.
func StateFromFile(path string) (*TimerState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading timer state: %w", err)
	}
	var state TimerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing timer state: %w", err)
	}
	return &state, nil
}

// WriteFile persists the state as JSON at the given path.
func (s *TimerState) WriteFile(path string) error {
	data, err := s.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
