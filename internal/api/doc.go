// Package api implements the HTTP REST API and WebSocket server for eblu.
//
// This package provides:
//   - REST endpoints for the reconciled device list, fuzzy search, discovery
//     scans, and lifecycle actions (connect, disconnect, pair, forget)
//   - WebSocket hub for real-time device event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for non-loopback deployments
//
// # Architecture
//
// The API server sits between presentation layers (menu bar UI, CLI, web)
// and the bluetooth reconciler + controller. Reads come straight from the
// reconciler's cached snapshot; lifecycle actions go through the controller,
// whose confirmed effects arrive asynchronously via the event stream.
//
// Clients subscribe to event channels over WebSocket (devices.refreshed,
// device.connected, scan.completed, ...) and receive each event as it is
// published by the reconciler or controller.
//
// # Graceful Degradation
//
// The server operates without a history repository or event broadcaster.
// Without history the /history endpoint returns 404; without events the
// WebSocket stream carries no broadcasts but connections still work.
package api
