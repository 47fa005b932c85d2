package droidbot

import (
	"encoding/json"
	"os"
)

// Event is one entry from droidbot's events/ directory.
type Event struct {
	Tag   string    `json:"tag,omitempty"`
	Event EventBody `json:"event"`

	// File is the basename of the JSON file the event came from.
	// Not part of the droidbot format; filled in by the loader.
	File string `json:"-"`
}

// EventBody carries the input event droidbot injected.
type EventBody struct {
	EventType string `json:"event_type"`
	View      *View  `json:"view,omitempty"`
}

// View is the UI element an event targeted, as droidbot records it.
type View struct {
	ResourceID string `json:"resource_id,omitempty"`
	Signature  string `json:"signature,omitempty"`
	Class      string `json:"class,omitempty"`
	Text       string `json:"text,omitempty"`
	Visible    *bool  `json:"visible,omitempty"`
}

// ID returns the stable identifier for the view: resource_id when set,
// otherwise the signature.
func (v *View) ID() string {
	if v.ResourceID != "" {
		return v.ResourceID
	}
	return v.Signature
}

// IsVisible treats an absent visibility flag as visible.
func (v *View) IsVisible() bool {
	return v.Visible == nil || *v.Visible
}

// LoadEvent reads and decodes one event file.
func LoadEvent(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// TriggerSet is a set of event types that arm a perturbation.
type TriggerSet map[string]bool

func (s TriggerSet) Contains(eventType string) bool { return s[eventType] }

// Trigger sets per perturbation, matching the event types droidbot emits.
var (
	RotateTriggers = TriggerSet{
		"key": true, "manual": true, "exit": true, "touch": true,
		"long_touch": true, "set_text": true, "select": true,
		"unselect": true, "intent": true, "spawn": true,
	}

	PowerCycleTriggers = TriggerSet{
		"manual": true, "exit": true, "long_touch": true,
		"set_text": true, "spawn": true, "key": true,
	}

	HomeButtonTriggers = TriggerSet{
		"touch": true, "long_touch": true, "set_text": true,
		"spawn": true, "scroll": true, "swipe": true,
	}
)
