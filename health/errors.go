package health

import "errors"

// ErrCheckTimeout is the Result.Error of a check still running when the
// aggregator's deadline passed.
var ErrCheckTimeout = errors.New("health: check exceeded deadline")

// ErrCheckerNotFound is returned by Aggregator.Check for an unregistered name.
var ErrCheckerNotFound = errors.New("health: no checker registered under that name")
