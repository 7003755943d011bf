package events

import "time"

// Event types.
const (
	SectionChanged = "section:changed"
	ViewLoading    = "view:loading"
	ViewRendered   = "view:rendered"
	ViewError      = "view:error"
	ViewStale      = "view:stale"
	ConfigReloaded = "config:reloaded"
)

// SectionChangedEvent is the payload for section:changed events.
type SectionChangedEvent struct {
	Previous string `json:"previous"`
	Active   string `json:"active"`
}

// ViewLoadingEvent is the payload for view:loading events.
type ViewLoadingEvent struct {
	View    string `json:"view"`
	LoadID  string `json:"loadId"`
	Message string `json:"message"` // Placeholder text shown while loading
	Trigger string `json:"trigger"` // "page", "button", "api", "scheduler", "startup"
}

// ViewRenderedEvent is the payload for view:rendered events.
type ViewRenderedEvent struct {
	View     string        `json:"view"`
	LoadID   string        `json:"loadId"`
	Source   string        `json:"source"` // "backend", "cache" or "snapshot"
	Charts   []string      `json:"charts"`
	Note     string        `json:"note,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ViewErrorEvent is the payload for view:error events.
type ViewErrorEvent struct {
	View    string `json:"view"`
	LoadID  string `json:"loadId"`
	Message string `json:"message"` // User-facing message
	Error   string `json:"error"`   // Underlying error
	Code    string `json:"code,omitempty"`
}

// ViewStaleEvent is the payload for view:stale events.
// Sent when a superseded load finishes and its result is discarded.
type ViewStaleEvent struct {
	View          string `json:"view"`
	LoadID        string `json:"loadId"`
	CurrentLoadID string `json:"currentLoadId"`
	Failed        bool   `json:"failed"`
}

// ConfigReloadedEvent is the payload for config:reloaded events.
type ConfigReloadedEvent struct {
	Path  string `json:"path"`
	Theme string `json:"theme"`
}
