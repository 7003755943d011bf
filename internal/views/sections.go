package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ramonehamilton/churn-dashboard/internal/events"
)

// ErrUnknownSection is returned when showing a section that does not exist.
var ErrUnknownSection = errors.New("unknown section")

// Section ids.
const (
	SectionOverview   = "overview"
	SectionModels     = "models"
	SectionClustering = "clustering"
	SectionPCA        = "pca"
)

// Section is a navigable dashboard panel.
type Section struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultSections lists the dashboard sections in navigation order.
var DefaultSections = []Section{
	{ID: SectionOverview, Label: "Overview"},
	{ID: SectionModels, Label: "ML Models"},
	{ID: SectionClustering, Label: "Clustering"},
	{ID: SectionPCA, Label: "PCA Analysis"},
}

// SectionState is a section with its visibility.
type SectionState struct {
	Section
	Active bool `json:"active"`
}

// Router tracks which section is visible. Exactly one section is active.
type Router struct {
	mu       sync.RWMutex
	sections []Section
	active   string
	events   events.Publisher
}

// NewRouter creates a router over sections with the first one active.
func NewRouter(sections []Section, publisher events.Publisher) *Router {
	r := &Router{
		sections: append([]Section(nil), sections...),
		events:   publisher,
	}
	if len(sections) > 0 {
		r.active = sections[0].ID
	}
	return r
}

// Show makes id the active section. Unknown ids leave the state unchanged.
func (r *Router) Show(ctx context.Context, id string) error {
	r.mu.Lock()
	if !r.hasLocked(id) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSection, id)
	}
	previous := r.active
	r.active = id
	r.mu.Unlock()

	if r.events != nil {
		r.events.Dispatch(events.NewTypedEvent(ctx, events.SectionChanged, events.SectionChangedEvent{
			Previous: previous,
			Active:   id,
		}))
	}
	return nil
}

// Has reports whether id names a section.
func (r *Router) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasLocked(id)
}

func (r *Router) hasLocked(id string) bool {
	for _, s := range r.sections {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Active returns the id of the visible section.
func (r *Router) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Sections returns every section with its visibility.
func (r *Router) Sections() []SectionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SectionState, len(r.sections))
	for i, s := range r.sections {
		out[i] = SectionState{Section: s, Active: s.ID == r.active}
	}
	return out
}
