package domain

import "errors"

var (
	// ErrNotFound signals an unknown person id.
	ErrNotFound = errors.New("person not found")
	// ErrInvalidData signals malformed or inconsistent catalog data. Fatal at startup.
	ErrInvalidData = errors.New("invalid catalog data")
	// ErrInvalidVector signals a zero-norm or wrong-dimensionality query vector.
	ErrInvalidVector = errors.New("invalid query vector")
	// ErrEncodingFailed signals that the embedding provider was unavailable or failed.
	ErrEncodingFailed = errors.New("query encoding failed")
)
