//go:build !windows && !cgo

package hotkey

import "log"

const platformFiltersInjected = false

func (m *Manager) startPlatform() error {
	log.Println("Hotkey Engine: Global hooks need cgo on this platform; hotkeys disabled.")
	return nil
}

func (m *Manager) stopPlatform() {}
