package reports

import "errors"

var (
	// ErrInvalidParameter is returned for malformed report parameters
	// (unknown metric, bad month, inverted date range).
	ErrInvalidParameter = errors.New("invalid report parameter")

	// ErrEmptyKeyword is returned by VendorQuery when no vendor text is given.
	ErrEmptyKeyword = errors.New("vendor keyword is required")
)
