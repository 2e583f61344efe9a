package run

import (
	"time"

	"github.com/veeshi/gosplit/internal/chrono"
)

// Attempt is one finished (or abandoned) try at the run, as stored in the
// attempt history.
type Attempt struct {
	ID      int32
	Time    chrono.Time
	Started *chrono.AtomicDateTime
	Ended   *chrono.AtomicDateTime
	// PauseTime is the total time the attempt spent paused, absent when
	// the attempt was never paused.
	PauseTime *time.Duration
}
