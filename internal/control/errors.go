package control

import "errors"

// ErrSetupNotFound is returned when a setup name does not exist in the config
var ErrSetupNotFound = errors.New("setup not found")
