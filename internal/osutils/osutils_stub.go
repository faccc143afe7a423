//go:build !windows

package osutils

import (
	"os"
	"runtime"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// InjectionNotice describes what input injection needs from the user on this OS.
func InjectionNotice() string {
	switch runtime.GOOS {
	case "darwin":
		return "input injection and global hotkeys need Accessibility permission (System Settings > Privacy & Security)"
	case "linux":
		if os.Getenv("WAYLAND_DISPLAY") != "" && os.Getenv("DISPLAY") == "" {
			return "Wayland session without XWayland; input injection needs an X11 display"
		}
	}
	return ""
}
