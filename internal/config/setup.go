package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"autoinput/internal/action"
	"autoinput/internal/input"
)

// Setup is one named automation, stored in the config file
type Setup struct {
	// Name identifies the setup; it is also the toggle identity
	Name string `json:"name" yaml:"name"`

	// Hotkey toggles this setup regardless of the active setup (optional)
	Hotkey string `json:"hotkey,omitempty" yaml:"hotkey,omitempty"`

	Hours        uint64 `json:"hours" yaml:"hours"`
	Minutes      uint64 `json:"minutes" yaml:"minutes"`
	Seconds      uint64 `json:"seconds" yaml:"seconds"`
	Milliseconds uint64 `json:"milliseconds" yaml:"milliseconds"`

	// MouseButton is "left", "right" or "middle"
	MouseButton string `json:"mouse_button" yaml:"mouse_button"`

	// ClickType is "single" or "double"
	ClickType string `json:"click_type" yaml:"click_type"`

	// RepeatMode is "infinite" or "count"
	RepeatMode  string `json:"repeat_mode" yaml:"repeat_mode"`
	RepeatCount uint64 `json:"repeat_count" yaml:"repeat_count"`

	// LocationMode is "current" or "fixed"
	LocationMode string `json:"location_mode" yaml:"location_mode"`
	FixedX       int    `json:"fixed_x" yaml:"fixed_x"`
	FixedY       int    `json:"fixed_y" yaml:"fixed_y"`

	// ActionType is "click" (mouse) or "hold-key" (keyboard)
	ActionType string `json:"action_type" yaml:"action_type"`

	// MouseMode is "click" or "hold"
	MouseMode      string  `json:"mouse_mode" yaml:"mouse_mode"`
	DragSpeed      int     `json:"drag_speed" yaml:"drag_speed"`
	DragDirectionX float64 `json:"drag_direction_x" yaml:"drag_direction_x"`
	DragDirectionY float64 `json:"drag_direction_y" yaml:"drag_direction_y"`

	HoldKey string `json:"hold_key" yaml:"hold_key"`

	// KeyMode is "hold" or "repeat"
	KeyMode string `json:"key_mode" yaml:"key_mode"`
}

// DefaultSetup returns a setup with the stock settings: left single click
// every 20ms at the current position, forever.
func DefaultSetup(name string) Setup {
	return Setup{
		Name:           name,
		Milliseconds:   20,
		MouseButton:    "left",
		ClickType:      "single",
		RepeatMode:     "infinite",
		RepeatCount:    10,
		LocationMode:   "current",
		ActionType:     "click",
		MouseMode:      "click",
		DragSpeed:      5,
		DragDirectionX: 0,
		DragDirectionY: -1,
		HoldKey:        "e",
		KeyMode:        "hold",
	}
}

// UnmarshalJSON fills fields missing from the file with the stock settings
func (s *Setup) UnmarshalJSON(data []byte) error {
	type plain Setup
	p := plain(DefaultSetup(""))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Setup(p)
	return nil
}

// UnmarshalYAML fills fields missing from the file with the stock settings
func (s *Setup) UnmarshalYAML(value *yaml.Node) error {
	type plain Setup
	p := plain(DefaultSetup(""))
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Setup(p)
	return nil
}

// Mode resolves the action mode from the action/mouse/key mode fields
func (s Setup) Mode() (action.Mode, error) {
	switch strings.ToLower(s.ActionType) {
	case "click", "":
		switch strings.ToLower(s.MouseMode) {
		case "click", "":
			return action.MouseClick, nil
		case "hold":
			return action.MouseHold, nil
		}
		return 0, fmt.Errorf("unknown mouse mode %q", s.MouseMode)
	case "hold-key", "key":
		switch strings.ToLower(s.KeyMode) {
		case "hold", "":
			return action.KeyHold, nil
		case "repeat":
			return action.KeyRepeat, nil
		}
		return 0, fmt.Errorf("unknown key mode %q", s.KeyMode)
	}
	return 0, fmt.Errorf("unknown action type %q", s.ActionType)
}

// Descriptor converts the setup into a run request. Errors wrap
// action.ErrInvalidDescriptor so callers can tell bad input from engine failures.
func (s Setup) Descriptor() (action.Descriptor, error) {
	invalid := func(err error) (action.Descriptor, error) {
		return action.Descriptor{}, fmt.Errorf("setup %q: %w: %v", s.Name, action.ErrInvalidDescriptor, err)
	}

	mode, err := s.Mode()
	if err != nil {
		return invalid(err)
	}

	d := action.Descriptor{
		SetupID: s.Name,
		Mode:    mode,
		Interval: action.Interval{
			Hours:        s.Hours,
			Minutes:      s.Minutes,
			Seconds:      s.Seconds,
			Milliseconds: s.Milliseconds,
		},
	}

	switch strings.ToLower(s.RepeatMode) {
	case "infinite", "":
		d.Repeat = action.Infinite
	case "count":
		d.Repeat = action.Count(s.RepeatCount)
	default:
		return invalid(fmt.Errorf("unknown repeat mode %q", s.RepeatMode))
	}

	switch strings.ToLower(s.LocationMode) {
	case "current", "":
		d.Cursor = action.CurrentPosition
	case "fixed":
		d.Cursor = action.FixedPosition(s.FixedX, s.FixedY)
	default:
		return invalid(fmt.Errorf("unknown location mode %q", s.LocationMode))
	}

	switch mode {
	case action.MouseClick, action.MouseHold:
		if d.Button, err = input.ParseButton(s.MouseButton); err != nil {
			return invalid(err)
		}
		if d.ClickStyle, err = input.ParseClickStyle(s.ClickType); err != nil {
			return invalid(err)
		}
		d.Drag = action.NewDragVector(s.DragDirectionX, s.DragDirectionY, s.DragSpeed)
	case action.KeyHold, action.KeyRepeat:
		if d.Key, err = input.ParseKey(s.HoldKey); err != nil {
			return invalid(err)
		}
	}

	if err := d.Validate(); err != nil {
		return action.Descriptor{}, fmt.Errorf("setup %q: %w", s.Name, err)
	}
	return d, nil
}
