// Package engine implements the StateMQ state engine.
//
// The engine turns inbound (topic, payload) messages and a connectivity flag
// into one authoritative device state, and records periodic task
// declarations for an external scheduler to execute.
//
// ARCHITECTURE:
//
// Single Lock:
// One mutex serializes every read and write of the state registry, the rule
// table, the task registry and the machine fields. Critical sections never
// block on I/O and never run user code. This gives:
// - One fully serialized sequence of transitions under concurrent callers
// - Safe registration while messages are being delivered
// - Re-entrant listeners (they run after the lock is released)
//
// Transition Flow:
// 1. A transport calls ApplyMessage or SetConnected
// 2. The target id is resolved (rule match or reconnection replay)
// 3. The target is validated against the registry and applied
// 4. The lock is released
// 5. Observers and the state-change listener run with a copy of the name
//
// INVARIANTS:
//
//   - The current id is always 0, 1, or an assigned user id
//   - While disconnected the current id is OFFLINE
//   - The last user state is only updated by message-originated transitions
//   - Tables never shrink or reorder; assigned ids are permanent
//   - Rules match first-hit-wins in declaration order
//
// FAILURE MODEL:
//
// Every method is total. Exhausted capacity and invalid arguments yield a
// documented sentinel (ir.ConnectedID, ir.NoTask, false). The Try* variants
// expose the same paths with typed errors for callers that need to tell a
// fallback apart from a legitimate CONNECTED result.
package engine
