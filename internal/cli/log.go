package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes status lines for the commands. Timestamps only appear at
// debug level, where they show which repository is slow.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{TimeFormat: "15:04:05.00"})
	applyLevel(l, level)
	return l
}

func applyLevel(l *log.Logger, level log.Level) {
	l.SetLevel(level)
	l.SetReportTimestamp(level <= log.DebugLevel)
}

// stopwatch logs the outcome of a repository query with its elapsed time.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) stopwatch {
	return stopwatch{logger: l, start: time.Now()}
}

// done logs msg at info level, e.g.
//
//	INFO found releases package=requests count=12 elapsed=1.234s
func (s stopwatch) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, keyvals...)
}
