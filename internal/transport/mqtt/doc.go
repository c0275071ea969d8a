// Package mqtt binds an engine to an MQTT broker through the Eclipse Paho
// client.
//
// The binding is the transport collaborator the engine expects:
//
//   - broker connect and connection loss drive SetConnected
//   - messages on rule topics drive ApplyMessage
//   - state changes are published to an optional state topic
//
// Raw subscriptions outside the rule table land in a last-message cache read
// with Message. Auto reconnect is always on; each reconnect re-subscribes and
// replays the last user state through the engine.
package mqtt
