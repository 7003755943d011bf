// Package views holds the dashboard panels: their load state machine, the
// chart widgets they own and the section router that decides which panel is
// visible.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
	"github.com/ramonehamilton/churn-dashboard/internal/events"
	"github.com/ramonehamilton/churn-dashboard/internal/metrics"
	"github.com/ramonehamilton/churn-dashboard/internal/storage"
)

// Sentinel errors.
var (
	ErrUnknownView = errors.New("unknown view")

	// ErrSuperseded is returned by a load whose result was discarded because
	// a newer load of the same view started while it was running.
	ErrSuperseded = errors.New("load superseded by a newer load")
)

// State is the lifecycle state of a view.
type State string

// View states.
const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateRendered State = "rendered"
	StateError    State = "error"
)

// Source tells where the data of a rendered view came from.
type Source string

// Data sources.
const (
	SourceBackend  Source = "backend"
	SourceCache    Source = "cache"
	SourceSnapshot Source = "snapshot"
)

// Load triggers.
const (
	TriggerPage      = "page"
	TriggerButton    = "button"
	TriggerAPI       = "api"
	TriggerScheduler = "scheduler"
	TriggerStartup   = "startup"
)

// Backend is the subset of the analytics client the views fetch from.
type Backend interface {
	GetOverview(ctx context.Context, opts analytics.FetchOptions) (*analytics.Response[*analytics.OverviewMetrics], error)
	TrainModels(ctx context.Context) (*analytics.Response[analytics.TrainingResults], error)
	GetFeatureImportance(ctx context.Context, opts analytics.FetchOptions) (*analytics.Response[*analytics.FeatureImportance], error)
	GetClustering(ctx context.Context, opts analytics.FetchOptions) (*analytics.Response[*analytics.ClusteringResult], error)
	GetPCA(ctx context.Context, opts analytics.FetchOptions) (*analytics.Response[*analytics.PCAResult], error)
}

// SnapshotStore persists and restores validated payloads.
type SnapshotStore interface {
	Save(ctx context.Context, snap *storage.Snapshot) error
	Latest(ctx context.Context, view string) (*storage.Snapshot, error)
	Prune(ctx context.Context, view string, keep int) (int64, error)
}

// LoadOptions controls a single load.
type LoadOptions struct {
	Force   bool   // bypass the payload cache
	Trigger string // who started the load
}

// View is one dashboard panel.
type View interface {
	Name() string
	Title() string
	Load(ctx context.Context, opts LoadOptions) error
	Restore(ctx context.Context) error
	Status() Status
	Owner() *charts.Owner
}

// Status is a point-in-time copy of a view's state.
type Status struct {
	View       string    `json:"view"`
	Title      string    `json:"title"`
	State      State     `json:"state"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	LoadID     string    `json:"load_id,omitempty"`
	Generation uint64    `json:"generation"`
	Source     Source    `json:"source,omitempty"`
	Note       string    `json:"note,omitempty"`
	Charts     []string  `json:"charts"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	Panel      any       `json:"panel,omitempty"`
}

// Deps are the collaborators shared by all views.
type Deps struct {
	Backend   Backend
	Snapshots SnapshotStore // optional
	Keep      int           // snapshots kept per view; <= 0 keeps all
	Events    events.Publisher
	Metrics   *metrics.DashboardMetrics
	Charts    *ChartSettings
	Logger    *slog.Logger
}

// ChartSettings holds the chart dimensions and theme applied to new widgets.
// It can be updated while the dashboard runs.
type ChartSettings struct {
	mu     sync.RWMutex
	config charts.ChartConfig
}

// NewChartSettings creates settings starting from the default chart config.
func NewChartSettings(width, height, theme string) *ChartSettings {
	s := &ChartSettings{config: charts.DefaultChartConfig()}
	s.Set(width, height, theme)
	return s
}

// Set updates the non-empty values.
func (s *ChartSettings) Set(width, height, theme string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width != "" {
		s.config.Width = width
	}
	if height != "" {
		s.config.Height = height
	}
	if theme != "" {
		s.config.Theme = theme
	}
}

// Get returns a copy of the current chart config.
func (s *ChartSettings) Get() charts.ChartConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.config
	cfg.Colors = append([]string(nil), s.config.Colors...)
	return cfg
}

// result is what a load hands to commit.
type result struct {
	panel         any
	widgets       []*charts.Widget
	note          string
	source        Source
	fetches       []Source // further fetches of the same load, counted in cache metrics
	bodies        map[string][]byte // endpoint -> raw validated body
	fetchedAt     time.Time
	fetchLatency  time.Duration
	renderLatency time.Duration
}

// base implements the state machine shared by all views.
type base struct {
	name           string
	title          string
	loadingMessage string
	errorMessage   string

	deps   Deps
	logger *slog.Logger
	owner  *charts.Owner

	mu         sync.Mutex
	state      State
	generation uint64
	loadID     string
	message    string
	errText    string
	source     Source
	note       string
	panel      any
	fetchedAt  time.Time
	updatedAt  time.Time
}

func newBase(name, title, loadingMessage, errorMessage string, deps Deps) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Charts == nil {
		deps.Charts = NewChartSettings("", "", "")
	}
	return base{
		name:           name,
		title:          title,
		loadingMessage: loadingMessage,
		errorMessage:   errorMessage,
		deps:           deps,
		logger:         logger.With("view", name),
		owner:          charts.NewOwner(),
		state:          StateIdle,
		updatedAt:      time.Now(),
	}
}

// Name returns the view id.
func (b *base) Name() string { return b.name }

// Title returns the panel heading.
func (b *base) Title() string { return b.title }

// Owner returns the widget owner of the view.
func (b *base) Owner() *charts.Owner { return b.owner }

// Status returns a copy of the view state.
func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		View:       b.name,
		Title:      b.title,
		State:      b.state,
		Message:    b.message,
		Error:      b.errText,
		LoadID:     b.loadID,
		Generation: b.generation,
		Source:     b.source,
		Note:       b.note,
		Charts:     b.owner.Names(),
		FetchedAt:  b.fetchedAt,
		UpdatedAt:  b.updatedAt,
		Panel:      b.panel,
	}
}

// chartConfig returns the chart config of one widget of this view.
func (b *base) chartConfig(chart, title string) charts.ChartConfig {
	return b.deps.Charts.Get().With(b.name+"_"+chart, title)
}

func (b *base) viewMetrics() *metrics.ViewMetrics {
	if b.deps.Metrics == nil {
		return nil
	}
	return b.deps.Metrics.View(b.name)
}

func (b *base) publish(ctx context.Context, eventType string, data any) {
	if b.deps.Events == nil {
		return
	}
	b.deps.Events.Dispatch(events.NewTypedEvent(ctx, eventType, data))
}

// begin starts a new load and returns its generation and id.
func (b *base) begin(ctx context.Context, trigger string) (uint64, string) {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	id := uuid.NewString()
	b.loadID = id
	b.state = StateLoading
	b.message = b.loadingMessage
	b.errText = ""
	b.updatedAt = time.Now()
	b.mu.Unlock()

	if vm := b.viewMetrics(); vm != nil {
		vm.Loads.Add(1)
	}
	b.logger.Debug("Load started", "load_id", id, "generation", gen, "trigger", trigger)
	b.publish(ctx, events.ViewLoading, events.ViewLoadingEvent{
		View:    b.name,
		LoadID:  id,
		Message: b.loadingMessage,
		Trigger: trigger,
	})
	return gen, id
}

// run performs one load. work fetches and builds outside the lock; the
// result is committed only if no newer load started in the meantime.
func (b *base) run(ctx context.Context, trigger string, work func(ctx context.Context) (*result, error)) error {
	started := time.Now()
	gen, id := b.begin(ctx, trigger)

	res, err := work(ctx)

	b.mu.Lock()
	if gen != b.generation {
		current := b.loadID
		b.mu.Unlock()
		if res != nil {
			for _, w := range res.widgets {
				w.Destroy()
			}
		}
		if vm := b.viewMetrics(); vm != nil {
			vm.Stale.Add(1)
		}
		b.logger.Debug("Discarding superseded load", "load_id", id, "current_load_id", current, "failed", err != nil)
		b.publish(ctx, events.ViewStale, events.ViewStaleEvent{
			View:          b.name,
			LoadID:        id,
			CurrentLoadID: current,
			Failed:        err != nil,
		})
		return ErrSuperseded
	}

	if err != nil {
		b.state = StateError
		b.message = b.errorMessage
		b.errText = err.Error()
		b.updatedAt = time.Now()
		b.mu.Unlock()

		if vm := b.viewMetrics(); vm != nil {
			vm.Failures.Add(1)
		}
		b.logger.Warn("Load failed", "load_id", id, "error", err)
		b.publish(ctx, events.ViewError, events.ViewErrorEvent{
			View:    b.name,
			LoadID:  id,
			Message: b.errorMessage,
			Error:   err.Error(),
			Code:    errorCode(err),
		})
		return err
	}

	b.owner.Swap(res.widgets...)
	b.state = StateRendered
	b.message = ""
	b.errText = ""
	b.source = res.source
	b.note = res.note
	b.panel = res.panel
	b.fetchedAt = res.fetchedAt
	b.updatedAt = time.Now()
	names := b.owner.Names()
	b.mu.Unlock()

	if vm := b.viewMetrics(); vm != nil {
		vm.Successes.Add(1)
		vm.FetchLatency.Record(res.fetchLatency)
		vm.RenderLatency.Record(res.renderLatency)
		for _, src := range append([]Source{res.source}, res.fetches...) {
			switch src {
			case SourceCache:
				vm.CacheHits.Add(1)
			case SourceBackend:
				vm.CacheMisses.Add(1)
			case SourceSnapshot:
				vm.Restores.Add(1)
			}
		}
	}

	duration := time.Since(started)
	b.logger.Info("View rendered", "load_id", id, "source", res.source, "charts", len(names), "duration", duration)
	b.publish(ctx, events.ViewRendered, events.ViewRenderedEvent{
		View:     b.name,
		LoadID:   id,
		Source:   string(res.source),
		Charts:   names,
		Note:     res.note,
		Duration: duration,
	})

	if res.source != SourceSnapshot {
		b.saveSnapshot(context.WithoutCancel(ctx), id, res)
	}
	return nil
}

// saveSnapshot stores the bodies of a committed load. Failures are logged only.
func (b *base) saveSnapshot(ctx context.Context, loadID string, res *result) {
	if b.deps.Snapshots == nil || len(res.bodies) == 0 {
		return
	}

	payload, endpoints, err := encodeBodies(res.bodies)
	if err != nil {
		b.logger.Warn("Failed to encode snapshot", "error", err)
		return
	}

	snap := &storage.Snapshot{
		View:      b.name,
		LoadID:    loadID,
		Endpoint:  strings.Join(endpoints, ","),
		FetchedAt: res.fetchedAt,
		Payload:   payload,
	}
	if err := b.deps.Snapshots.Save(ctx, snap); err != nil {
		b.logger.Warn("Failed to save snapshot", "error", err)
		return
	}
	if b.deps.Keep > 0 {
		if _, err := b.deps.Snapshots.Prune(ctx, b.name, b.deps.Keep); err != nil {
			b.logger.Warn("Failed to prune snapshots", "error", err)
		}
	}
}

// restore renders the latest snapshot of the view with decode, which rebuilds
// the result from the stored bodies.
func (b *base) restore(ctx context.Context, decode func(bodies map[string][]byte) (*result, error)) error {
	if b.deps.Snapshots == nil {
		return storage.ErrNotFound
	}
	snap, err := b.deps.Snapshots.Latest(ctx, b.name)
	if err != nil {
		return err
	}

	return b.run(ctx, TriggerStartup, func(ctx context.Context) (*result, error) {
		bodies, err := decodeBodies(snap.Payload)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", snap.ID, err)
		}
		res, err := decode(bodies)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", snap.ID, err)
		}
		res.source = SourceSnapshot
		res.fetchedAt = snap.FetchedAt
		return res, nil
	})
}

// sourceOf maps a response to the source it was served from.
func sourceOf(cached bool) Source {
	if cached {
		return SourceCache
	}
	return SourceBackend
}

// errorCode returns the analytics error type of err, if any.
func errorCode(err error) string {
	var apiErr *analytics.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return ""
}

func encodeBodies(bodies map[string][]byte) ([]byte, []string, error) {
	raw := make(map[string]json.RawMessage, len(bodies))
	endpoints := make([]string, 0, len(bodies))
	for endpoint, body := range bodies {
		raw[endpoint] = json.RawMessage(body)
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)

	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, err
	}
	return payload, endpoints, nil
}

func decodeBodies(payload []byte) (map[string][]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	bodies := make(map[string][]byte, len(raw))
	for endpoint, body := range raw {
		bodies[endpoint] = body
	}
	return bodies, nil
}

// body returns the stored body of endpoint or an error naming it.
func body(bodies map[string][]byte, endpoint string) ([]byte, error) {
	b, ok := bodies[endpoint]
	if !ok {
		return nil, fmt.Errorf("snapshot has no payload for %s", endpoint)
	}
	return b, nil
}
