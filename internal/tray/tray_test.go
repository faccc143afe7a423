package tray

import (
	"encoding/binary"
	"testing"
)

func TestIconHeader(t *testing.T) {
	icon := getIcon()
	if len(icon) != 22+40+16*16*4+16*4 {
		t.Fatalf("Unexpected icon size %d", len(icon))
	}
	if binary.LittleEndian.Uint16(icon[2:]) != 1 || binary.LittleEndian.Uint16(icon[4:]) != 1 {
		t.Error("Expected ICONDIR with one icon image")
	}
	if got := binary.LittleEndian.Uint32(icon[14:]); int(got) != len(icon)-22 {
		t.Errorf("Expected image size %d, got %d", len(icon)-22, got)
	}
	if got := binary.LittleEndian.Uint32(icon[18:]); got != 22 {
		t.Errorf("Expected image offset 22, got %d", got)
	}

	// center pixel opaque, corner transparent
	pixels := icon[62:]
	center := (8*16 + 8) * 4
	if pixels[center+3] != 0xFF {
		t.Error("Expected opaque center pixel")
	}
	if pixels[3] != 0 {
		t.Error("Expected transparent corner pixel")
	}
}

func TestCheckedStateBeforeRun(t *testing.T) {
	tr := New("AutoInput")
	a := tr.AddMenuItem("Default", nil)
	tr.AddSeparator()
	quit := tr.AddMenuItem("Quit", nil)

	tr.SetItemChecked(a, true)
	if !tr.IsItemChecked(a) {
		t.Error("Expected item to be checked")
	}
	if tr.IsItemChecked(quit) {
		t.Error("Expected Quit to be unchecked")
	}

	// separators and out-of-range ids are ignored
	tr.SetItemChecked(1, true)
	tr.SetItemChecked(99, true)
	if tr.IsItemChecked(1) || tr.IsItemChecked(99) {
		t.Error("Expected separator and unknown id to stay unchecked")
	}

	tr.SetItemChecked(a, false)
	if tr.IsItemChecked(a) {
		t.Error("Expected item to be unchecked")
	}
}
