package search

import "errors"

var (
	// ErrInvalidCriteria indicates a caller error. It is returned before any
	// cache or provider access and is never retried.
	ErrInvalidCriteria = errors.New("search: invalid criteria")

	// ErrSearchFailed indicates the provider manager could not answer within
	// the retry budget. The underlying error stays reachable through errors.Is.
	ErrSearchFailed = errors.New("search: search failed")
)
