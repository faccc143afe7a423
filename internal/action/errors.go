package action

import "errors"

// ErrInvalidDescriptor is returned when a run request cannot be started
var ErrInvalidDescriptor = errors.New("invalid action descriptor")
