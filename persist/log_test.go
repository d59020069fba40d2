package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLoggerFramesStartupAndShutdown(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	fl, err := NewFileLogger("walletd", logPath)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	fl.Println("hello")
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(content)
	for _, want := range []string{"STARTUP", "hello", "SHUTDOWN"} {
		if !strings.Contains(text, want) {
			t.Fatalf("log file missing %q:\n%s", want, text)
		}
	}
}
