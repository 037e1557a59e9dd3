package dag

import "errors"

var (
	// ErrUnsetParameter is returned by Compute when evaluation reaches a
	// parameter that has never been set or has been invalidated.
	ErrUnsetParameter = errors.New("unset parameter")

	// ErrNotParameter is returned by Set on any node that is not a parameter.
	ErrNotParameter = errors.New("not a parameter")
)
