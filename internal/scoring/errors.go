package scoring

import "errors"

// ErrNotFound is returned when a deal id has no matching row.
var ErrNotFound = errors.New("deal not found")

// ErrConfigParse is returned by ParseConfig on a malformed document.
// Callers are expected to fall back to DefaultConfig rather than
// propagate it to the engine.
var ErrConfigParse = errors.New("scoring config malformed")
