package platform

import "errors"

// ErrClosed is returned when injecting events into a backend that has shut
// down.
var ErrClosed = errors.New("platform: backend closed")
