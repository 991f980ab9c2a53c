// Package transport delivers encoded commands to the listener's Unix datagram
// socket.
//
// Delivery is fire-and-forget: each command is one sendmsg on an unbound
// SOCK_DGRAM socket addressed to a fixed path, with no buffering, retry, or
// reconnect. Consecutive OS send failures are counted so repeated errors stop
// flooding the log after a threshold; a successful send resets the count.
// Truncated sends and sends on a transport that never opened are logged every
// time and do not touch the count.
package transport
