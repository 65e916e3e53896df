package cli

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("seeded plan", "parts", 4) }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("recom split", "attempts", 3) }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("recom split", "attempts", 3) }, true},
		{"warn at info level", log.InfoLevel, func(l *log.Logger) { l.Warn("cache write failed") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("seeded plan", "parts", 4)

	line := buf.String()
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(line) {
		t.Errorf("log line %q should start with an HH:MM:SS.ms timestamp", line)
	}
	for _, want := range []string{"seeded plan", "parts=4"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q should contain %q", line, want)
		}
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)
	prog.done("Completed 3 chain(s)")

	out := strings.TrimSpace(buf.String())
	if !regexp.MustCompile(`Completed 3 chain\(s\) \(\d+(\.\d+)?m?s\)$`).MatchString(out) {
		t.Errorf("progress output %q should end with the message and elapsed time", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	custom := newLogger(io.Discard, log.InfoLevel)
	tests := []struct {
		name string
		ctx  context.Context
		want *log.Logger
	}{
		{"attached", withLogger(context.Background(), custom), custom},
		{"missing", context.Background(), log.Default()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loggerFromContext(tt.ctx); got != tt.want {
				t.Errorf("loggerFromContext() = %p, want %p", got, tt.want)
			}
		})
	}
}

func TestVerboseFlagRaisesLevel(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	for _, tt := range []struct {
		args []string
		want log.Level
	}{
		{[]string{"cache", "path"}, log.InfoLevel},
		{[]string{"--verbose", "cache", "path"}, log.DebugLevel},
	} {
		c := New(io.Discard, LogInfo)
		root := c.RootCommand()
		root.SetArgs(tt.args)
		root.SetOut(io.Discard)
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v", tt.args, err)
		}
		if got := c.Logger.GetLevel(); got != tt.want {
			t.Errorf("%v: level = %v, want %v", tt.args, got, tt.want)
		}
	}
}
