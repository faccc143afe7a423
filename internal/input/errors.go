package input

import "errors"

var (
	// ErrUnsupportedPlatform is returned when no injector exists for this build
	ErrUnsupportedPlatform = errors.New("input injection not supported on this platform")

	// ErrInjectionFailed is returned when the OS refused a single synthetic event.
	// The schedule keeps running.
	ErrInjectionFailed = errors.New("input injection failed")

	// ErrInjectionUnrecoverable is returned when injection can no longer work at all
	// (input desktop unavailable, session locked, permission revoked).
	ErrInjectionUnrecoverable = errors.New("input injection unavailable")
)

// IsUnrecoverable reports whether err should force the running action to stop.
func IsUnrecoverable(err error) bool {
	return errors.Is(err, ErrInjectionUnrecoverable) || errors.Is(err, ErrUnsupportedPlatform)
}
