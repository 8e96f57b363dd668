package scanner

import "errors"

var (
	// ErrStoreRequired is returned by New when no scan store is provided.
	ErrStoreRequired = errors.New("scanner: scan store is required")

	// ErrProberRequired is returned by New when no prober is provided.
	ErrProberRequired = errors.New("scanner: prober is required")
)
