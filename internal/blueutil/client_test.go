package blueutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sadesguy/eblu/internal/bluetooth"
)

// writeFakeTool writes an executable shell script standing in for the
// control tool and returns its path.
func writeFakeTool(t *testing.T, script string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-blueutil")
	content := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to write fake tool: %v", err)
	}
	return path
}

func TestCheck(t *testing.T) {
	tool := writeFakeTool(t, "exit 0")

	if err := New(tool, time.Second).Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

func TestCheck_ToolUnavailable(t *testing.T) {
	c := New("definitely-not-a-real-binary-xyz", time.Second)

	err := c.Check()
	if !errors.Is(err, bluetooth.ErrToolUnavailable) {
		t.Fatalf("Check() error = %v, want ErrToolUnavailable", err)
	}
}

func TestPairedSnapshot(t *testing.T) {
	tool := writeFakeTool(t, `echo '{"device_connected": [], "device_not_connected": []}'`)
	c := New(tool, 5*time.Second)

	out, err := c.PairedSnapshot(context.Background())
	if err != nil {
		t.Fatalf("PairedSnapshot() error = %v", err)
	}
	if !strings.Contains(string(out), "device_connected") {
		t.Errorf("output = %q, want snapshot JSON", out)
	}
}

func TestPairedSnapshot_CommandFails(t *testing.T) {
	tool := writeFakeTool(t, `echo "bluetooth power is off" >&2; exit 1`)
	c := New(tool, 5*time.Second)

	_, err := c.PairedSnapshot(context.Background())
	if err == nil {
		t.Fatal("PairedSnapshot() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "bluetooth power is off") {
		t.Errorf("error = %v, want stderr included", err)
	}
}

func TestPairedSnapshot_Timeout(t *testing.T) {
	tool := writeFakeTool(t, "sleep 5")
	c := New(tool, 50*time.Millisecond)

	_, err := c.PairedSnapshot(context.Background())
	if err == nil {
		t.Fatal("PairedSnapshot() error = nil, want timeout")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want timeout description", err)
	}
}

func TestInquiry(t *testing.T) {
	// The fake records its arguments so the scan duration can be checked.
	tool := writeFakeTool(t, `echo "$@" > "$(dirname "$0")/args"; echo '[]'`)
	c := New(tool, 5*time.Second)

	out, err := c.Inquiry(context.Background(), 3*time.Second)
	if err != nil {
		t.Fatalf("Inquiry() error = %v", err)
	}
	if strings.TrimSpace(string(out)) != "[]" {
		t.Errorf("output = %q, want []", out)
	}

	args, err := os.ReadFile(filepath.Join(filepath.Dir(tool), "args"))
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}
	if got := strings.TrimSpace(string(args)); got != "--inquiry 3 --format json" {
		t.Errorf("args = %q, want --inquiry 3 --format json", got)
	}
}

func TestControlVerbs(t *testing.T) {
	tool := writeFakeTool(t, `echo "$@" >> "$(dirname "$0")/args"`)
	c := New(tool, 5*time.Second)
	ctx := context.Background()

	if err := c.Connect(ctx, "AA:BB"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := c.Disconnect(ctx, "AA:BB"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if err := c.Pair(ctx, "CC:DD"); err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if err := c.Unpair(ctx, "CC:DD"); err != nil {
		t.Fatalf("Unpair() error = %v", err)
	}

	args, err := os.ReadFile(filepath.Join(filepath.Dir(tool), "args"))
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}
	want := []string{
		"--connect AA:BB",
		"--disconnect AA:BB",
		"--pair CC:DD",
		"--unpair CC:DD",
	}
	lines := strings.Split(strings.TrimSpace(string(args)), "\n")
	if len(lines) != len(want) {
		t.Fatalf("recorded %d commands, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestControlVerb_ExitStatusFailure(t *testing.T) {
	tool := writeFakeTool(t, "exit 1")
	c := New(tool, 5*time.Second)

	if err := c.Connect(context.Background(), "AA:BB"); err == nil {
		t.Fatal("Connect() error = nil, want failure on non-zero exit")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	tool := writeFakeTool(t, "sleep 5")
	c := New(tool, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Connect(ctx, "AA:BB")
	if err == nil {
		t.Fatal("Connect() error = nil, want cancellation")
	}
	if !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("error = %v, want cancellation description", err)
	}
}
