package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"fortio.org/log"

	"github.com/veeshi/gosplit/internal/core"
	"github.com/veeshi/gosplit/internal/notify"
	"github.com/veeshi/gosplit/internal/run"
	"github.com/veeshi/gosplit/internal/ui"
)

func main() {
	game := flag.String("game", "Untitled Game", "game name")
	category := flag.String("category", "Any%", "category name")
	segments := flag.String("segments", "Start,Mid,End", "comma-separated segment names")
	offset := flag.Duration("offset", 0*time.Second, "start offset, may be negative (e.g. -3s for a countdown)")
	statePath := flag.String("state", "", "timer state JSON file to restore the attempt from")
	loglevel := flag.String("loglevel", "info", "log level (debug, verbose, info, warning, error)")
	flag.Parse()

	switch strings.ToLower(*loglevel) {
	case "debug":
		log.SetLogLevel(log.Debug)
	case "verbose":
		log.SetLogLevel(log.Verbose)
	case "info":
		log.SetLogLevel(log.Info)
	case "warning":
		log.SetLogLevel(log.Warning)
	case "error":
		log.SetLogLevel(log.Error)
	default:
		log.Fatalf("unknown log level %q", *loglevel)
	}

	r := run.New()
	r.SetGameName(*game)
	r.SetCategoryName(*category)
	r.SetOffset(*offset)
	for _, name := range strings.Split(*segments, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			r.PushSegment(run.NewSegment(name))
		}
	}

	timer, err := core.New(r)
	if err != nil {
		log.Fatalf("creating timer: %v", err)
	}

	if *statePath != "" {
		state, err := core.StateFromFile(*statePath)
		if err != nil {
			log.Fatalf("restoring state from %s: %v", *statePath, err)
		}
		timer.ReplaceState(state)
		log.Infof("restored attempt from %s", *statePath)
	}

	shared := timer.IntoShared()
	notifier := notify.New()

	m, err := ui.NewModel(shared, notifier)
	if err != nil {
		log.Fatalf("building UI: %v", err)
	}
	if err := ui.Run(m); err != nil {
		fmt.Println("error:", err)
	}
}
