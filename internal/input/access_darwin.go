//go:build darwin && cgo

package input

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
*/
import "C"

import "errors"

// Without Accessibility trust macOS silently drops synthetic events.
func platformInputAccess() error {
	if C.AXIsProcessTrusted() == 0 {
		return errors.New("accessibility permission not granted")
	}
	return nil
}
