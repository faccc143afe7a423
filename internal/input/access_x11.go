//go:build !windows && !darwin && cgo

package input

import (
	"errors"
	"os"
)

// robotgo drives XTest, which needs a reachable X display.
func platformInputAccess() error {
	if os.Getenv("DISPLAY") == "" {
		return errors.New("no X display (DISPLAY is unset)")
	}
	return nil
}
