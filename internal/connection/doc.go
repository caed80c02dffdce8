// Package connection implements the push-channel connection.
//
// One Conn owns one logical duplex WebSocket connection:
//   - connects on Open, reconnects automatically with a fixed delay
//   - exchanges heartbeats in both directions and treats a missed
//     heartbeat window as a closed connection
//   - surfaces transport failures as state events, never as errors
//     thrown across the component boundary
//
// Callers observe States() and Messages(); Close terminates retrying.
package connection
