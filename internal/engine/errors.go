package engine

import "errors"

// ErrClosed is returned by Start and Toggle after Shutdown
var ErrClosed = errors.New("engine is shut down")
