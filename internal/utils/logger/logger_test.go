package logger

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	origGlobal := global
	origPath := logFilePath
	t.Cleanup(func() {
		global = origGlobal
		logFilePath = origPath
	})
	global = nil
	logFilePath = ""
}

func TestLoggerBeforeInitIsUsable(t *testing.T) {
	resetGlobals(t)
	log := Logger()
	if log == nil {
		t.Fatal("expected non-nil logger before Init")
	}
	log.Infof("no sink configured yet")
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	resetGlobals(t)
	if err := Init("loud", ""); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestInitFileSinkLineFormat(t *testing.T) {
	resetGlobals(t)
	path := filepath.Join(t.TempDir(), "run.log")
	if err := Init("info", path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if FilePath() != path {
		t.Fatalf("expected FilePath %q, got %q", path, FilePath())
	}

	Logger().Infof("pipeline started")
	Logger().Warnf("index refresh failed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), data)
	}

	prefix := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[(INFO|WARN)\] `)
	for _, line := range lines {
		if !prefix.MatchString(line) {
			t.Errorf("log line not in [timestamp] [LEVEL] message form: %q", line)
		}
	}
	if !strings.Contains(lines[0], "[INFO] pipeline started") {
		t.Errorf("unexpected info line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] index refresh failed") {
		t.Errorf("unexpected warn line: %q", lines[1])
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("file sink must not contain color escapes")
	}
}

func TestInitUnopenableFileDegradesToConsole(t *testing.T) {
	resetGlobals(t)
	path := filepath.Join(t.TempDir(), "missing-dir", "run.log")
	if err := Init("info", path); err != nil {
		t.Fatalf("expected console-only degradation, got: %v", err)
	}
	if FilePath() != "" {
		t.Errorf("expected empty FilePath after failed open, got %q", FilePath())
	}
	Logger().Infof("console only")
}
