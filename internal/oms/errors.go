package oms

import "errors"

// ErrInvariant signals an internal consistency breach in the order
// set or portfolio accounting. Drivers treat it as fatal.
var ErrInvariant = errors.New("oms invariant breach")
