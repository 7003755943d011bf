package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ramonehamilton/churn-dashboard/internal/storage"
)

// Dashboard owns the section router and one view per section.
type Dashboard struct {
	router *Router
	views  map[string]View
	order  []string
	charts *ChartSettings
	logger *slog.Logger
}

// NewDashboard creates the four dashboard views sharing deps.
func NewDashboard(deps Deps) *Dashboard {
	if deps.Charts == nil {
		deps.Charts = NewChartSettings("", "", "")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	all := []View{
		NewOverviewView(deps),
		NewModelsView(deps),
		NewClusteringView(deps),
		NewPCAView(deps),
	}

	d := &Dashboard{
		router: NewRouter(DefaultSections, deps.Events),
		views:  make(map[string]View, len(all)),
		charts: deps.Charts,
		logger: logger,
	}
	for _, v := range all {
		d.views[v.Name()] = v
		d.order = append(d.order, v.Name())
	}
	return d
}

// Router returns the section router.
func (d *Dashboard) Router() *Router { return d.router }

// ChartSettings returns the chart settings applied to new widgets.
func (d *Dashboard) ChartSettings() *ChartSettings { return d.charts }

// View returns the view called name.
func (d *Dashboard) View(name string) (View, error) {
	v, ok := d.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return v, nil
}

// Views returns all views in navigation order.
func (d *Dashboard) Views() []View {
	out := make([]View, len(d.order))
	for i, name := range d.order {
		out[i] = d.views[name]
	}
	return out
}

// Names returns the view names in navigation order.
func (d *Dashboard) Names() []string {
	return append([]string(nil), d.order...)
}

// Load loads the view called name.
func (d *Dashboard) Load(ctx context.Context, name string, opts LoadOptions) error {
	v, err := d.View(name)
	if err != nil {
		return err
	}
	return v.Load(ctx, opts)
}

// LoadAll loads the named views concurrently and joins their errors.
// Superseded loads are not errors.
func (d *Dashboard) LoadAll(ctx context.Context, names []string, opts LoadOptions) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, name := range names {
		v, err := d.View(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		wg.Add(1)
		go func(v View) {
			defer wg.Done()
			if err := v.Load(ctx, opts); err != nil && !errors.Is(err, ErrSuperseded) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", v.Name(), err))
				mu.Unlock()
			}
		}(v)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// RestoreAll renders the latest snapshot of every view that has one and
// returns the number of views restored.
func (d *Dashboard) RestoreAll(ctx context.Context) int {
	restored := 0
	for _, v := range d.Views() {
		err := v.Restore(ctx)
		switch {
		case err == nil:
			restored++
		case errors.Is(err, storage.ErrNotFound):
			d.logger.Debug("No snapshot to restore", "view", v.Name())
		default:
			d.logger.Warn("Failed to restore snapshot", "view", v.Name(), "error", err)
		}
	}
	return restored
}

// Close destroys every live widget.
func (d *Dashboard) Close() {
	for _, v := range d.views {
		v.Owner().DestroyAll()
	}
}
