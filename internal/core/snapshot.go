package core

import (
	"time"

	"github.com/veeshi/gosplit/internal/chrono"
	"github.com/veeshi/gosplit/internal/run"
)

// TimerReader is the non-mutating surface of the timer. *Timer satisfies
// it; snapshots expose the timer only through it, so readers holding a
// shared lock cannot reach any state-changing operation.
type TimerReader interface {
	Run() *run.Run
	CurrentPhase() Phase
	CurrentSplit() *run.Segment
	CurrentSplitIndex() (index int, ok bool)
	CurrentTimingMethod() TimingMethod
	CurrentComparison() string
	CurrentAttemptDuration() time.Duration
	PauseTime() *time.Duration
	IsGameTimeInitialized() bool
	IsGameTimePaused() bool
	LoadingTimes() time.Duration
}

var _ TimerReader = (*Timer)(nil)

// Snapshot is the timer as observed at one specific point in time. Only
// the current time is frozen: CurrentTime returns the value computed
// when the snapshot was taken. Every other read passes through to the
// underlying timer, read-only; PauseTime and CurrentAttemptDuration
// sample the clock at the moment of the read and are not frozen.
type Snapshot struct {
	TimerReader
	time chrono.Time
}

// CurrentTime returns the time the timer was at when the snapshot was
// taken. Before an attempt starts the Game Time component is the run's
// offset; during a running or paused attempt it is absent while Game
// Time is neither initialized nor paused.
func (s Snapshot) CurrentTime() chrono.Time { return s.time }
