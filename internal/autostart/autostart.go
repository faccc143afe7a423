// Package autostart registers the service to start at login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const label = "com.autoinput.service"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Command}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=AutoInput
Comment=Mouse and keyboard automation
Exec={{.Exec}}
X-GNOME-Autostart-enabled=true
`

var (
	userHomeDir = os.UserHomeDir
	executable  = os.Executable
)

// Enable starts "<this executable> args..." at login
func Enable(args ...string) error {
	execPath, err := executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	command := append([]string{execPath}, args...)

	switch runtime.GOOS {
	case "windows":
		return enableWindows(command)
	case "darwin", "linux":
		return writeEntry(command)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable removes the login entry. Removing a missing entry is not an error.
func Disable() error {
	switch runtime.GOOS {
	case "windows":
		return disableWindows()
	case "darwin", "linux":
		path, err := entryPath()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	switch runtime.GOOS {
	case "windows":
		return isEnabledWindows()
	case "darwin", "linux":
		path, err := entryPath()
		if err != nil {
			return false
		}
		_, err = os.Stat(path)
		return err == nil
	default:
		return false
	}
}

// entryPath is the LaunchAgent plist on macOS and the XDG autostart entry elsewhere
func entryPath() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", "autoinput.desktop"), nil
}

func writeEntry(command []string) error {
	path, err := entryPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	src := xdgDesktopEntry
	if runtime.GOOS == "darwin" {
		src = macLaunchAgentPlist
	}
	tmpl, err := template.New("entry").Parse(src)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, struct {
		Label   string
		Command []string
		Exec    string
	}{label, command, quoteCommand(command)})
}

// quoteCommand joins a command line, quoting arguments that contain spaces
func quoteCommand(command []string) string {
	parts := make([]string, len(command))
	for i, arg := range command {
		if strings.ContainsAny(arg, " \t\"") {
			arg = `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}
