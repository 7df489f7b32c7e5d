package indexer

import "errors"

// Sentinel errors for the sync engine's error taxonomy. EncodingFailure is
// intentionally absent: a non-UTF-8 file is locally recovered (silently
// omitted from the tree) and never surfaced as an error.
var (
	// ErrIoFailure covers any failure to read a file, create a directory,
	// or write the tree or a cache file. Fatal to the current sync call.
	ErrIoFailure = errors.New("io failure")

	// ErrCorruptSerialization covers a tree JSONL or rev_tags JSON file
	// that cannot be parsed. Callers substitute defaults and continue;
	// this error is not surfaced past the component that recovers it.
	ErrCorruptSerialization = errors.New("corrupt serialization")

	// ErrInvariantViolation marks a condition the spec says "should never
	// happen" (e.g. a removed blob's hash absent from the global cache).
	// Logged and ignored, never returned to the caller.
	ErrInvariantViolation = errors.New("invariant violation")
)
