package views

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/events"
	"github.com/ramonehamilton/churn-dashboard/internal/storage"
)

func TestRouter_Show(t *testing.T) {
	dispatcher := events.NewEventDispatcher()
	recorder := events.NewRecordingObserver("test", "section:")
	dispatcher.Register(recorder)
	r := NewRouter(DefaultSections, dispatcher)

	assert.Equal(t, SectionOverview, r.Active())

	require.NoError(t, r.Show(context.Background(), SectionPCA))
	assert.Equal(t, SectionPCA, r.Active())

	active := 0
	for _, s := range r.Sections() {
		if s.Active {
			active++
			assert.Equal(t, SectionPCA, s.ID)
		}
	}
	assert.Equal(t, 1, active)

	recorded := recorder.Events()
	require.Len(t, recorded, 1)
	data, ok := events.GetTypedData[events.SectionChangedEvent](recorded[0])
	require.True(t, ok)
	assert.Equal(t, events.SectionChangedEvent{Previous: SectionOverview, Active: SectionPCA}, data)
}

func TestRouter_UnknownSection(t *testing.T) {
	r := NewRouter(DefaultSections, nil)
	require.NoError(t, r.Show(context.Background(), SectionModels))

	err := r.Show(context.Background(), "settings")
	assert.ErrorIs(t, err, ErrUnknownSection)
	assert.Equal(t, SectionModels, r.Active())
	assert.False(t, r.Has("settings"))
	assert.True(t, r.Has(SectionClustering))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234", FormatCount(1234))
	assert.Equal(t, "100", FormatCount(100))
	assert.Equal(t, "1,234,567", FormatCount(1234567))
	assert.Equal(t, "30%", FormatPercent(30))
	assert.Equal(t, "26.54%", FormatPercent(26.54))
	assert.Equal(t, "$64.5", FormatCurrency(64.5))
	assert.Equal(t, "85.40%", FormatRatio(0.854))
	assert.Equal(t, "0.9123", FormatFixed(0.91234, 4))
}

func TestDashboard_UnknownView(t *testing.T) {
	d := NewDashboard(Deps{Backend: &fakeBackend{}})

	_, err := d.View("settings")
	assert.ErrorIs(t, err, ErrUnknownView)
	assert.ErrorIs(t, d.Load(context.Background(), "settings", LoadOptions{}), ErrUnknownView)
	assert.Equal(t, []string{SectionOverview, SectionModels, SectionClustering, SectionPCA}, d.Names())
}

func TestDashboard_LoadAll(t *testing.T) {
	backend := &fakeBackend{
		overview:   static(overviewBody),
		clustering: static(clusteringBody),
		pca:        failing(),
	}
	d := NewDashboard(Deps{Backend: backend})

	err := d.LoadAll(context.Background(), []string{SectionOverview, SectionClustering, SectionPCA}, LoadOptions{Trigger: TriggerScheduler})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pca:")

	for _, name := range []string{SectionOverview, SectionClustering} {
		v, _ := d.View(name)
		assert.Equal(t, StateRendered, v.Status().State, name)
	}
}

func newSnapshotStore(t *testing.T) *storage.SnapshotStore {
	t.Helper()
	db, err := storage.Open(storage.DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSnapshotStore(db)
}

func TestSnapshotRestore(t *testing.T) {
	store := newSnapshotStore(t)
	backend := &fakeBackend{
		overview: static(overviewBody),
		train:    static(trainBody),
		features: static(featuresBody(4)),
	}
	d := NewDashboard(Deps{Backend: backend, Snapshots: store, Keep: 2})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Load(ctx, SectionOverview, LoadOptions{}))
	}
	require.NoError(t, d.Load(ctx, SectionModels, LoadOptions{}))

	n, err := store.Count(ctx, SectionOverview)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest, err := store.Latest(ctx, SectionModels)
	require.NoError(t, err)
	assert.Equal(t, analytics.PathFeatureImportance+","+analytics.PathTrain, latest.Endpoint)

	// A fresh dashboard with a dead backend renders from snapshots only.
	dead := &fakeBackend{}
	restored := NewDashboard(Deps{Backend: dead, Snapshots: store})
	assert.Equal(t, 2, restored.RestoreAll(ctx))

	overview, _ := restored.View(SectionOverview)
	status := overview.Status()
	assert.Equal(t, StateRendered, status.State)
	assert.Equal(t, SourceSnapshot, status.Source)
	assert.Equal(t, "30%", status.Panel.(*OverviewPanel).ChurnRate)
	assert.Equal(t, 2, overview.Owner().Live())

	models, _ := restored.View(SectionModels)
	assert.Equal(t, StateRendered, models.Status().State)
	assert.Equal(t, 3, models.Owner().Live())

	pca, _ := restored.View(SectionPCA)
	assert.Equal(t, StateIdle, pca.Status().State)
	assert.Equal(t, 0, dead.Calls(analytics.PathOverview))

	// Restored loads are not written back.
	n, err = store.Count(ctx, SectionOverview)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRestore_WithoutStore(t *testing.T) {
	v := NewPCAView(Deps{Backend: &fakeBackend{}})
	err := v.Restore(context.Background())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Equal(t, StateIdle, v.Status().State)
}

func TestRenderPage(t *testing.T) {
	d := NewDashboard(Deps{Backend: &fakeBackend{overview: static(overviewBody), pca: failing()}})
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, SectionOverview, LoadOptions{}))
	require.Error(t, d.Load(ctx, SectionPCA, LoadOptions{}))

	var buf bytes.Buffer
	require.NoError(t, d.RenderPage(&buf))
	page := buf.String()

	assert.Contains(t, page, "echarts.min.js")
	assert.Contains(t, page, `<p id="churn-rate">30%</p>`)
	assert.Contains(t, page, `<p id="avg-charge">$64.5</p>`)
	assert.Contains(t, page, "goecharts_overview_distribution")
	assert.Contains(t, page, "Error loading PCA. Please try again.")
	assert.Contains(t, page, `<section id="overview" class="section active">`)
	assert.Contains(t, page, `<section id="pca" class="section" hidden>`)
	assert.Equal(t, 1, strings.Count(page, "nav-btn active"))
}

func TestRenderPage_Theme(t *testing.T) {
	d := NewDashboard(Deps{Backend: &fakeBackend{}, Charts: NewChartSettings("", "", "dark")})

	var buf bytes.Buffer
	require.NoError(t, d.RenderPage(&buf))
	assert.Contains(t, buf.String(), AssetsHost+"themes/dark.js")
}

func TestRenderFragment(t *testing.T) {
	d := NewDashboard(Deps{Backend: &fakeBackend{clustering: static(clusteringBody)}})
	require.NoError(t, d.Load(context.Background(), SectionClustering, LoadOptions{}))

	var buf bytes.Buffer
	require.NoError(t, d.RenderFragment(&buf, SectionClustering))
	fragment := buf.String()
	assert.Contains(t, fragment, "Cluster 1")
	assert.Contains(t, fragment, "border-left-color: #2ecc71")
	assert.Contains(t, fragment, "goecharts_clustering_churn")

	assert.ErrorIs(t, d.RenderFragment(&buf, "settings"), ErrUnknownView)
}

func TestChartSettings(t *testing.T) {
	s := NewChartSettings("", "", "")
	assert.Equal(t, "100%", s.Get().Width)

	s.Set("800px", "", "dark")
	cfg := s.Get()
	assert.Equal(t, "800px", cfg.Width)
	assert.Equal(t, "400px", cfg.Height)
	assert.Equal(t, "dark", cfg.Theme)

	d := NewDashboard(Deps{Backend: &fakeBackend{pca: static(pcaBody)}, Charts: s})
	require.NoError(t, d.Load(context.Background(), SectionPCA, LoadOptions{}))
	v, _ := d.View(SectionPCA)
	w, ok := v.Owner().Get(ChartVariance)
	require.True(t, ok)
	assert.Contains(t, w.Element(), "width:800px")
}
