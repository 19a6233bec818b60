package history

import "errors"

var (
	// ErrMissingData means the source is absent, unreadable or empty.
	ErrMissingData = errors.New("history data missing")
	// ErrMalformedRecord marks a single record that cannot be used.
	ErrMalformedRecord = errors.New("malformed draw record")
)
