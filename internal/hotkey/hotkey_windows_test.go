//go:build windows

package hotkey

import "testing"

func TestVKCodeToName(t *testing.T) {
	tests := map[uint32]string{
		0x41: "A",
		0x39: "9",
		0x70: "F1",
		0x7B: "F12",
		0xA3: "CTRL",
		0x1B: "ESC",
		0x5B: "CMD",
		0xFF: "",
	}
	for vk, want := range tests {
		if got := vkCodeToName(vk); got != want {
			t.Errorf("vkCodeToName(0x%X) = %q, want %q", vk, got, want)
		}
	}
}

func TestMouseEventPart(t *testing.T) {
	tests := []struct {
		msg       uintptr
		mouseData uint32
		part      string
		down      bool
	}{
		{WM_LBUTTONDOWN, 0, "MOUSE1", true},
		{WM_RBUTTONUP, 0, "MOUSE3", false},
		{WM_MBUTTONDOWN, 0, "MOUSE2", true},
		{WM_XBUTTONDOWN, 1 << 16, "MOUSE4", true},
		{WM_XBUTTONUP, 2 << 16, "MOUSE5", false},
		{0x0200, 0, "", false}, // WM_MOUSEMOVE
	}
	for _, tt := range tests {
		part, down := mouseEventPart(tt.msg, tt.mouseData)
		if part != tt.part || down != tt.down {
			t.Errorf("mouseEventPart(0x%X, %d) = %q %v, want %q %v", tt.msg, tt.mouseData, part, down, tt.part, tt.down)
		}
	}
}
