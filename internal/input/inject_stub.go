//go:build !windows && !cgo

package input

// Stub implementation for builds without cgo (robotgo needs it)

// Injector represents a stub input injector
type Injector struct{}

// NewInjector creates a new stub injector
func NewInjector() *Injector {
	return &Injector{}
}

func (i *Injector) Click(button Button, style ClickStyle) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) PressAndHold(target Target) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) Release(target Target) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) MoveCursorAbsolute(x, y int) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) MoveCursorRelative(dx, dy int) error {
	return ErrUnsupportedPlatform
}

func (i *Injector) TapKey(key Key) error {
	return ErrUnsupportedPlatform
}
