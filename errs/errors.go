// Package errs defines the sentinel errors returned by the EXI stream core.
//
// Every failure surfaced by the stream, stringtable, grammar and header
// packages wraps exactly one of these values, so callers can classify a
// failure with errors.Is regardless of how much context was added on the way up.
package errs

import "errors"

// Stream header errors.
var (
	// ErrInvalidHeader is returned when the distinguishing bits or the EXI cookie do not match.
	ErrInvalidHeader = errors.New("invalid EXI header")
	// ErrHeaderOptionsMismatch is returned when the header carries no options and none were supplied out-of-band.
	ErrHeaderOptionsMismatch = errors.New("no EXI options in header and no out-of-band options supplied")
	// ErrInvalidConfig is returned when an options record fails its consistency checks.
	ErrInvalidConfig = errors.New("invalid EXI options")
	// ErrCorruptOptions is returned when the embedded options document contains an event outside its vocabulary.
	ErrCorruptOptions = errors.New("corrupt EXI options document")
)

// Buffer and transport errors.
var (
	// ErrBufferTooSmall is returned when the configured window cannot hold the minimum working set.
	ErrBufferTooSmall = errors.New("stream buffer too small")
	// ErrEndOfStream is returned when the transport yields less data than required.
	ErrEndOfStream = errors.New("unexpected end of EXI stream")
	// ErrInconsistentState is returned when an internal invariant is violated,
	// e.g. the transport accepted fewer bytes than requested.
	ErrInconsistentState = errors.New("inconsistent stream state")
	// ErrOutOfMemory is returned when a growable memory region cannot be enlarged.
	ErrOutOfMemory = errors.New("growable memory limit exceeded")
	// ErrNoTransport is returned when a buffer has to move bytes but has no transport bound.
	ErrNoTransport = errors.New("no stream transport bound")
)

// String table errors.
var (
	// ErrTooManyPrefixes is returned when the bounded prefix cache is exhausted.
	ErrTooManyPrefixes = errors.New("too many namespace prefixes")
	// ErrInvalidStringID is returned when a decoded compact identifier does not address a table entry.
	ErrInvalidStringID = errors.New("invalid string table identifier")
)

// Grammar walk errors.
var (
	ErrInvalidEventCode = errors.New("invalid event code")
	ErrUnexpectedEvent  = errors.New("event not allowed by grammar")
	ErrInvalidValue     = errors.New("invalid encoded value")
	ErrSessionClosed    = errors.New("session already closed")
)

// ErrOutOfBandOptionsIgnored is never returned as a failure. It is reported in
// the decoded header's warnings when embedded options replaced the options
// supplied out-of-band.
var ErrOutOfBandOptionsIgnored = errors.New("out-of-band EXI options ignored, header options take precedence")
