package charts

import (
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/go-echarts/go-echarts/v2/render"
)

// ErrDestroyed is returned when rendering a widget that has been destroyed.
var ErrDestroyed = errors.New("widget destroyed")

// Widget is a live chart instance: the chart configuration plus its rendered snippet.
type Widget struct {
	Name    string
	Chart   Chart
	Snippet render.ChartSnippet

	mu        sync.Mutex
	destroyed bool
}

// NewWidget renders chart into an embeddable snippet.
func NewWidget(name string, chart Chart) *Widget {
	return &Widget{
		Name:    name,
		Chart:   chart,
		Snippet: chart.RenderSnippet(),
	}
}

// Destroy releases the widget. Safe to call more than once.
func (w *Widget) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	w.Chart = nil
	w.Snippet = render.ChartSnippet{}
}

// Destroyed reports whether Destroy was called.
func (w *Widget) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Element returns the HTML container of the chart.
func (w *Widget) Element() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Snippet.Element
}

// Script returns the script that initializes the chart.
func (w *Widget) Script() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Snippet.Script
}

// Option returns the chart option JSON.
func (w *Widget) Option() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Snippet.Option
}

// Render writes the chart as a standalone HTML page.
func (w *Widget) Render(out io.Writer) error {
	w.mu.Lock()
	chart := w.Chart
	destroyed := w.destroyed
	w.mu.Unlock()

	if destroyed || chart == nil {
		return ErrDestroyed
	}
	return Render(chart, out)
}

// OwnerStats counts widget lifecycle operations.
type OwnerStats struct {
	Live      int `json:"live"`
	Created   int `json:"created"`
	Destroyed int `json:"destroyed"`
}

// Owner holds the live widgets of one view, at most one per chart name.
type Owner struct {
	mu        sync.Mutex
	widgets   map[string]*Widget
	created   int
	destroyed int
}

// NewOwner creates an empty widget owner.
func NewOwner() *Owner {
	return &Owner{widgets: make(map[string]*Widget)}
}

// Replace installs w under its name, destroying any widget already there first.
func (o *Owner) Replace(w *Widget) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.replaceLocked(w)
}

func (o *Owner) replaceLocked(w *Widget) {
	if old, ok := o.widgets[w.Name]; ok {
		if old == w {
			return
		}
		old.Destroy()
		delete(o.widgets, w.Name)
		o.destroyed++
	}
	o.widgets[w.Name] = w
	o.created++
}

// Swap destroys every live widget and installs widgets in their place.
func (o *Owner) Swap(widgets ...*Widget) {
	o.mu.Lock()
	defer o.mu.Unlock()

	keep := make(map[*Widget]bool, len(widgets))
	for _, w := range widgets {
		keep[w] = true
	}
	for name, old := range o.widgets {
		if keep[old] {
			continue
		}
		old.Destroy()
		delete(o.widgets, name)
		o.destroyed++
	}
	for _, w := range widgets {
		o.replaceLocked(w)
	}
}

// Get returns the live widget named name.
func (o *Owner) Get(name string) (*Widget, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, ok := o.widgets[name]
	return w, ok
}

// Destroy destroys the widget named name, reporting whether one existed.
func (o *Owner) Destroy(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	w, ok := o.widgets[name]
	if !ok {
		return false
	}
	w.Destroy()
	delete(o.widgets, name)
	o.destroyed++
	return true
}

// DestroyAll destroys every live widget.
func (o *Owner) DestroyAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for name, w := range o.widgets {
		w.Destroy()
		delete(o.widgets, name)
		o.destroyed++
	}
}

// Names returns the names of live widgets, sorted.
func (o *Owner) Names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.widgets))
	for name := range o.widgets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Live returns the number of live widgets.
func (o *Owner) Live() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.widgets)
}

// Stats returns lifecycle counters.
func (o *Owner) Stats() OwnerStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OwnerStats{
		Live:      len(o.widgets),
		Created:   o.created,
		Destroyed: o.destroyed,
	}
}
