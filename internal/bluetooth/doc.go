// Package bluetooth provides the device reconciliation and search engine
// for eblu.
//
// It merges two independently-sourced data feeds (the host's paired-device
// snapshot and a live discovery scan) into one coherent, continuously
// reconciled device list, and drives device lifecycle transitions through
// an external control utility.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                         bluetooth package                            │
//	│                                                                      │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────────┐     │
//	│  │   Normalizer   │   │   Reconciler   │   │    Controller    │     │
//	│  │ (normalize.go) │──▶│ (reconciler.go)│◀──│  (lifecycle.go)  │     │
//	│  │                │   │                │   │                  │     │
//	│  │ • Snapshot     │   │ • Known set    │   │ • connect/       │     │
//	│  │   decoding     │   │ • Discovered   │   │   disconnect     │     │
//	│  │ • Record       │   │   set          │   │ • pair/forget    │     │
//	│  │   validation   │   │ • Dedup + sort │   │ • Delayed resync │     │
//	│  └────────────────┘   └────────────────┘   └──────────────────┘     │
//	│           │                    │                     │               │
//	└───────────│────────────────────│─────────────────────│───────────────┘
//	            │                    │                     │
//	            ▼                    ▼                     ▼
//	┌──────────────────┐   ┌──────────────────┐   ┌──────────────────┐
//	│  Snapshot/Scan   │   │  REST API + WS   │   │   Control tool   │
//	│  sources (CLI)   │   │  subscribers     │   │   (blueutil)     │
//	└──────────────────┘   └──────────────────┘   └──────────────────┘
//
// # Key Types
//
//   - Device: A paired device from the host snapshot, recreated each refresh
//   - DiscoveredDevice: A transient scan result, never auto-promoted
//   - Reconciler: Sole owner of the known and discovered sets
//   - Controller: Lifecycle transitions with post-command resync
//   - Broadcaster: Fan-out of change events to subscribers
//   - HistoryRepository: Durable record of lifecycle events (SQLite)
//
// # Ownership
//
// The Reconciler exclusively owns the canonical known-device set and the
// transient discovered set; a refresh atomically replaces the known set
// and never merges partial data. The Controller never writes to either
// set. It issues external commands and triggers refreshes, because the
// external tool's effect on the OS is the only source of truth for
// connection state.
//
// # Search
//
// Device.Matches implements per-term subsequence matching over name and
// type. FilterDevices applies the display rules: empty queries truncate
// to a configured maximum, non-empty queries return all matches.
//
// # Thread Safety
//
// Reconciler and Controller are safe for concurrent use. Devices handed
// out are deep copies; callers can modify them freely.
package bluetooth
