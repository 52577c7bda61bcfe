package monitoring

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/banshee-data/livepanels/internal/panel"
	"github.com/banshee-data/livepanels/internal/recorder"
	"github.com/banshee-data/livepanels/internal/replay"
	"github.com/banshee-data/livepanels/internal/session"
	"github.com/banshee-data/livepanels/internal/surface"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// Level selects how many streams are enabled.
type Level int

const (
	LevelOff Level = iota
	LevelOps
	LevelDiag
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelOps:
		return "ops"
	case LevelDiag:
		return "diag"
	case LevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses off, ops, diag or trace.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LevelOff, nil
	case "ops", "":
		return LevelOps, nil
	case "diag":
		return LevelDiag, nil
	case "trace":
		return LevelTrace, nil
	default:
		return LevelOff, fmt.Errorf("unknown log level %q (want off, ops, diag or trace)", s)
	}
}

// WritersForLevel sends every stream enabled at level to w.
func WritersForLevel(level Level, w io.Writer) LogWriters {
	var lw LogWriters
	if level >= LevelOps {
		lw.Ops = w
	}
	if level >= LevelDiag {
		lw.Diag = w
	}
	if level >= LevelTrace {
		lw.Trace = w
	}
	return lw
}

// ConfigureStreams points every package's streams at w. Nil writers
// disable the corresponding stream.
func ConfigureStreams(w LogWriters) {
	surface.SetLogWriters(w.Ops, w.Diag, w.Trace)
	panel.SetLogWriters(w.Ops, w.Diag, w.Trace)
	session.SetLogWriters(w.Ops, w.Diag, w.Trace)
	recorder.SetLogWriters(w.Ops, w.Diag, w.Trace)
	replay.SetLogWriters(w.Ops, w.Diag, w.Trace)
	if w.Ops == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w.Ops, "", log.LstdFlags|log.Lmicroseconds).Printf)
}
