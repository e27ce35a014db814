package cli

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

var timestamp = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{2}`)

func TestNewLoggerTimestampsAtDebug(t *testing.T) {
	tests := []struct {
		level     log.Level
		wantStamp bool
	}{
		{log.InfoLevel, false},
		{log.DebugLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			newLogger(&buf, tt.level).Info("querying", "repository", "pypi.org")

			out := buf.String()
			if !strings.Contains(out, "repository=pypi.org") {
				t.Errorf("missing key/value in %q", out)
			}
			if got := timestamp.MatchString(out); got != tt.wantStamp {
				t.Errorf("timestamp present = %v, want %v in %q", got, tt.wantStamp, out)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line at info level: %q", buf.String())
	}

	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if out := buf.String(); !strings.Contains(out, "shown") || !timestamp.MatchString(out) {
		t.Errorf("verbose output = %q, want a timestamped debug line", out)
	}
}

func TestStopwatch(t *testing.T) {
	var buf bytes.Buffer
	sw := startStopwatch(newLogger(&buf, log.InfoLevel))
	sw.done("found releases", "package", "pkg", "count", 3)

	out := buf.String()
	for _, want := range []string{"found releases", "package=pkg", "count=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
