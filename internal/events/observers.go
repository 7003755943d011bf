package events

import (
	"log"
	"strings"
	"sync"
)

// LoggingObserver logs all events for debugging purposes.
type LoggingObserver struct {
	name    string
	verbose bool
}

// NewLoggingObserver creates a new observer that logs events.
func NewLoggingObserver(verbose bool) *LoggingObserver {
	return &LoggingObserver{
		name:    "LoggingObserver",
		verbose: verbose,
	}
}

// OnEvent logs the event details.
func (o *LoggingObserver) OnEvent(event Event) error {
	if o.verbose {
		log.Printf("[%s] Event: %s, Data: %+v", o.name, event.Type, event.Data)
	} else {
		log.Printf("[%s] Event: %s", o.name, event.Type)
	}
	return nil
}

// GetName returns the observer's name.
func (o *LoggingObserver) GetName() string {
	return o.name
}

// ShouldHandle returns true for all events (logs everything).
func (o *LoggingObserver) ShouldHandle(eventType string) bool {
	return true
}

// RecordingObserver keeps every event it receives whose type matches one of
// its prefixes. An empty prefix list matches everything.
type RecordingObserver struct {
	name     string
	prefixes []string

	mu     sync.Mutex
	events []Event
}

// NewRecordingObserver creates a recording observer.
func NewRecordingObserver(name string, prefixes ...string) *RecordingObserver {
	return &RecordingObserver{name: name, prefixes: prefixes}
}

// OnEvent records the event.
func (o *RecordingObserver) OnEvent(event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

// GetName returns the observer's name.
func (o *RecordingObserver) GetName() string {
	return o.name
}

// ShouldHandle matches eventType against the configured prefixes.
func (o *RecordingObserver) ShouldHandle(eventType string) bool {
	if len(o.prefixes) == 0 {
		return true
	}
	for _, p := range o.prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}

// Events returns a copy of the recorded events.
func (o *RecordingObserver) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

// Types returns the recorded event types in order.
func (o *RecordingObserver) Types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}
