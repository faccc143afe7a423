package osutils

import (
	"runtime"
	"testing"
)

func TestInjectionNotice(t *testing.T) {
	notice := InjectionNotice()
	if runtime.GOOS == "darwin" && notice == "" {
		t.Error("Expected an Accessibility notice on macOS")
	}
	if runtime.GOOS == "windows" && IsAdmin() && notice != "" {
		t.Errorf("Expected no notice when elevated, got %q", notice)
	}
}
