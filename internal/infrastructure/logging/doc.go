// Package logging wraps log/slog with eblu's conventions: structured
// records, a service/version attribute on every entry, and format and
// level driven by the logging section of config.yaml.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// JSON output suits journald and log shippers; text is easier to read
// while developing. Use Default only before configuration is loaded.
package logging
