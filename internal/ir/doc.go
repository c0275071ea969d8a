// Package ir provides the shared domain types for StateMQ.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - StateID values are stable for the lifetime of an engine (never reused)
//   - IDs 0 and 1 are reserved for OFFLINE and CONNECTED
//   - Table capacities are compile-time constants
//   - State names are compared in normalized form (see NormalizeStateName)
package ir
