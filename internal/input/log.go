package input

import "log"

// LogInjector logs every operation instead of touching the OS input stream.
// Used for --dry-run.
type LogInjector struct{}

// NewLogInjector creates a dry-run injector
func NewLogInjector() *LogInjector {
	return &LogInjector{}
}

func (l *LogInjector) Click(button Button, style ClickStyle) error {
	log.Printf("DryRun: %s click %s", style, button)
	return nil
}

func (l *LogInjector) PressAndHold(target Target) error {
	log.Printf("DryRun: press %s", target)
	return nil
}

func (l *LogInjector) Release(target Target) error {
	log.Printf("DryRun: release %s", target)
	return nil
}

func (l *LogInjector) MoveCursorAbsolute(x, y int) error {
	log.Printf("DryRun: move cursor to (%d, %d)", x, y)
	return nil
}

func (l *LogInjector) MoveCursorRelative(dx, dy int) error {
	log.Printf("DryRun: move cursor by (%d, %d)", dx, dy)
	return nil
}

func (l *LogInjector) TapKey(key Key) error {
	log.Printf("DryRun: tap key %s", key)
	return nil
}
