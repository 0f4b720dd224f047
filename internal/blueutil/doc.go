// Package blueutil wraps the external Bluetooth control tool.
//
// The tool is treated as an opaque command line utility: data commands
// (--paired, --inquiry) produce JSON on stdout, control verbs (--connect,
// --disconnect, --pair, --unpair) report success purely through their
// exit status. The Client bounds every invocation with a timeout and
// distinguishes timeouts from tool failures.
//
// Check() must be called at startup: if the binary cannot be resolved the
// whole session is unusable and no device fetch should be attempted.
package blueutil
