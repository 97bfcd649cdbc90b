package engine

import "errors"

// ErrInvariant signals an internal consistency breach. Drivers treat
// it as fatal and stop feeding bars.
var ErrInvariant = errors.New("engine invariant breach")
