// Package bridge turns host playback callbacks into listener commands.
//
// A Bridge owns one datagram transport, one playlist archive, and one
// media-position guard. Every callback is synchronous, safe for concurrent
// use, and never returns an error to the caller: failures are logged and the
// notification is dropped.
//
// Playlist callbacks are archived first, then validated; only valid events
// with more than one entry and a "playing" or "start" action are forwarded.
// Media callbacks are forwarded only while the transport is open, and
// position ticks are collapsed to one command per half-second bucket.
// If Open fails the bridge stays usable in a disabled mode where every send
// is skipped at entry but playlist archiving continues.
package bridge
