package blueutil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/sadesguy/eblu/internal/bluetooth"
)

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client invokes the blueutil-style control tool. It implements
// bluetooth.SnapshotSource, bluetooth.ScanSource and bluetooth.Commander.
//
// Every invocation is bounded by the configured command timeout on top of
// the caller's context. Success of control verbs is inferred from exit
// status; only the data commands produce output.
type Client struct {
	binary  string
	timeout time.Duration
	logger  Logger
}

// New creates a client for the given tool binary.
// timeout bounds each command invocation.
func New(binary string, timeout time.Duration) *Client {
	return &Client{
		binary:  binary,
		timeout: timeout,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Check verifies the tool binary is resolvable on the host.
// Returns an error wrapping bluetooth.ErrToolUnavailable when it is not.
// Call this at startup before any fetch is attempted.
func (c *Client) Check() error {
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("%w: %s: %v", bluetooth.ErrToolUnavailable, c.binary, err)
	}
	return nil
}

// PairedSnapshot returns the raw JSON snapshot of paired devices.
func (c *Client) PairedSnapshot(ctx context.Context) ([]byte, error) {
	return c.output(ctx, "--paired", "--format", "json")
}

// Inquiry scans for nearby unpaired devices for the given duration.
// The scan gets its own deadline of the duration plus the command timeout,
// since the tool only returns once the scan window has elapsed.
func (c *Client) Inquiry(ctx context.Context, duration time.Duration) ([]byte, error) {
	seconds := int(duration.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	scanCtx, cancel := context.WithTimeout(ctx, duration+c.timeout)
	defer cancel()

	cmd := exec.CommandContext(scanCtx, c.binary, "--inquiry", strconv.Itoa(seconds), "--format", "json") //nolint:gosec // Binary path is validated in config validation at startup
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running discovery scan", "seconds", seconds)
	if err := cmd.Run(); err != nil {
		return nil, c.commandError(scanCtx, ctx, "--inquiry", stderr.Bytes(), err)
	}
	return stdout.Bytes(), nil
}

// Connect issues a connect command for the address.
func (c *Client) Connect(ctx context.Context, address string) error {
	return c.run(ctx, "--connect", address)
}

// Disconnect issues a disconnect command for the address.
func (c *Client) Disconnect(ctx context.Context, address string) error {
	return c.run(ctx, "--disconnect", address)
}

// Pair issues a pair command for the address.
func (c *Client) Pair(ctx context.Context, address string) error {
	return c.run(ctx, "--pair", address)
}

// Unpair issues an unpair command for the address.
func (c *Client) Unpair(ctx context.Context, address string) error {
	return c.run(ctx, "--unpair", address)
}

// output runs a data command and returns its stdout.
func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.binary, args...) //nolint:gosec // Binary path is validated in config validation at startup
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, c.commandError(cmdCtx, ctx, args[0], stderr.Bytes(), err)
	}
	return stdout.Bytes(), nil
}

// run executes a control verb where only the exit status matters.
func (c *Client) run(ctx context.Context, verb, address string) error {
	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.binary, verb, address) //nolint:gosec // Binary path is validated in config validation at startup
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("running control command", "verb", verb, "address", address)
	if err := cmd.Run(); err != nil {
		return c.commandError(cmdCtx, ctx, verb, stderr.Bytes(), err)
	}
	return nil
}

// commandError maps a failed invocation to a descriptive error,
// distinguishing timeouts and shutdown from tool failures.
func (c *Client) commandError(cmdCtx, parent context.Context, verb string, stderr []byte, err error) error {
	if cmdCtx.Err() == context.DeadlineExceeded && parent.Err() == nil {
		return fmt.Errorf("%s %s timed out after %v", c.binary, verb, c.timeout)
	}
	if parent.Err() != nil {
		return fmt.Errorf("%s %s cancelled: %w", c.binary, verb, parent.Err())
	}
	if msg := bytes.TrimSpace(stderr); len(msg) > 0 {
		return fmt.Errorf("%s %s: %w: %s", c.binary, verb, err, msg)
	}
	return fmt.Errorf("%s %s: %w", c.binary, verb, err)
}
