// Package deck drives the MiniDisc recorder over its serial remote protocol.
//
// The Controller owns the transport and the frame decoder, and exposes
// intention-level operations: put the deck in remote mode, query status and
// disc data, arm a named track, start and stop a recording. Every operation
// is one or more request/response exchanges with a bounded timeout, a
// per-operation retry budget, and explicit error classification: no answer
// is ErrTimeout, a non-acknowledging answer is ErrRejected, and broken
// framing resynchronizes the link before any retry.
//
// The controller tracks the deck's recording state (Idle, Armed, Recording,
// Error) and mutates it only on confirmed exchanges. It is not safe for
// concurrent use: the session issues one command at a time, which also
// serializes access to the transport.
package deck
