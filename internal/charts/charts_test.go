package charts

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPieChart(t *testing.T) {
	config := DefaultChartConfig().With("overview_distribution", "Churn Distribution")
	pie := NewPieChart("Customers", []DataPoint{
		{Label: "Churned", Value: 30, Color: ColorChurned},
		{Label: "Retained", Value: 70, Color: ColorRetained},
	}, "", config)

	require.Len(t, pie.MultiSeries, 1)
	data, ok := pie.MultiSeries[0].Data.([]opts.PieData)
	require.True(t, ok)
	require.Len(t, data, 2)
	assert.Equal(t, "Churned", data[0].Name)
	assert.Equal(t, 30.0, data[0].Value)
	assert.Equal(t, ColorRetained, data[1].ItemStyle.Color)
	assert.Equal(t, "overview_distribution", pie.ChartID)
	assert.Equal(t, "Churn Distribution", pie.Title.Title)
}

func TestNewBarChart_PerBarColors(t *testing.T) {
	config := DefaultChartConfig()
	config.YMax = 100
	bar := NewBarChart("Churn Rate (%)", []DataPoint{
		{Label: "A", Value: 51, Color: BarChurnColor(51)},
		{Label: "B", Value: 10, Color: BarChurnColor(10)},
	}, config)

	data := bar.MultiSeries[0].Data.([]opts.BarData)
	assert.Equal(t, ColorChurned, data[0].ItemStyle.Color)
	assert.Equal(t, ColorRetained, data[1].ItemStyle.Color)
	assert.Equal(t, 100.0, bar.YAxisList[0].Max)
}

func TestNewStackedBarChart(t *testing.T) {
	bar := NewStackedBarChart([]string{"No Churn (Actual)", "Churn (Actual)"}, []SeriesData{
		{Name: "No Churn (Predicted)", Values: []float64{700, 60}},
		{Name: "Churn (Predicted)", Values: []float64{30, 210}},
	}, DefaultChartConfig())

	require.Len(t, bar.MultiSeries, 2)
	for _, s := range bar.MultiSeries {
		assert.Equal(t, "total", s.Stack)
	}
	second := bar.MultiSeries[1].Data.([]opts.BarData)
	assert.Equal(t, 30.0, second[0].Value)
	assert.Equal(t, 210.0, second[1].Value)
}

func TestNewHorizontalBarChart(t *testing.T) {
	bar := NewHorizontalBarChart("Importance", []DataPoint{
		{Label: "tenure", Value: 0.4},
		{Label: "calls", Value: 0.2},
	}, DefaultChartConfig().With("models_features", "Top 10 Feature Importance"))

	// Axis data is applied when the chart is rendered.
	w := NewWidget("features", bar)
	assert.Equal(t, []string{"tenure", "calls"}, bar.YAxisList[0].Data)
	assert.Nil(t, bar.XAxisList[0].Data)
	assert.Contains(t, w.Element(), "models_features")

	// The first category is drawn at the top.
	inverse := bar.YAxisList[0].Inverse
	require.NotNil(t, inverse)
	assert.True(t, *inverse)
}

func TestNewLineChart_ClampsToMax(t *testing.T) {
	config := DefaultChartConfig()
	config.YMax = 100
	line := NewLineChart("Cumulative", []DataPoint{
		{Label: "PC1", Value: 60},
		{Label: "PC2", Value: 100.02},
	}, config)

	data := line.MultiSeries[0].Data.([]opts.LineData)
	assert.Equal(t, 60.0, data[0].Value)
	assert.Equal(t, 100.0, data[1].Value)
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.html")
	bar := NewBarChart("s", []DataPoint{{Label: "x", Value: 1}}, DefaultChartConfig().With("export_bar", "Export"))

	require.NoError(t, RenderFile(bar, path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "export_bar")
}

func TestPaletteBoundaries(t *testing.T) {
	assert.Equal(t, ColorCardLow, CardChurnColor(50), "exactly 50 is not high churn")
	assert.Equal(t, ColorCardHigh, CardChurnColor(50.01))

	assert.Equal(t, ColorWarning, BarChurnColor(50))
	assert.Equal(t, ColorRetained, BarChurnColor(45))
	assert.Equal(t, ColorWarning, BarChurnColor(45.5))
	assert.Equal(t, ColorChurned, BarChurnColor(75))

	assert.Equal(t, "#3498db", ClusterBorderColor(0))
	assert.Equal(t, "#2ecc71", ClusterBorderColor(6))
	assert.Equal(t, "#0d9488", DoughnutColor(4))
}

func testWidget(name string) *Widget {
	return NewWidget(name, NewBarChart("s", []DataPoint{{Label: "x", Value: 1}}, DefaultChartConfig().With("test_"+name, name)))
}

func TestOwner_ReplaceDestroysPrevious(t *testing.T) {
	owner := NewOwner()

	first := testWidget("distribution")
	owner.Replace(first)
	second := testWidget("distribution")
	owner.Replace(second)

	assert.Equal(t, 1, owner.Live())
	assert.True(t, first.Destroyed())
	assert.False(t, second.Destroyed())

	got, ok := owner.Get("distribution")
	require.True(t, ok)
	assert.Same(t, second, got)

	stats := owner.Stats()
	assert.Equal(t, OwnerStats{Live: 1, Created: 2, Destroyed: 1}, stats)
}

func TestOwner_Swap(t *testing.T) {
	owner := NewOwner()
	a := testWidget("a")
	b := testWidget("b")
	owner.Swap(a, b)
	assert.Equal(t, []string{"a", "b"}, owner.Names())

	a2 := testWidget("a")
	owner.Swap(a2)
	assert.Equal(t, []string{"a"}, owner.Names())
	assert.True(t, a.Destroyed())
	assert.True(t, b.Destroyed())

	// Swapping in the same widget keeps it alive.
	owner.Swap(a2)
	assert.False(t, a2.Destroyed())
	assert.Equal(t, 1, owner.Live())
}

func TestOwner_Destroy(t *testing.T) {
	owner := NewOwner()
	w := testWidget("pca")
	owner.Replace(w)

	assert.True(t, owner.Destroy("pca"))
	assert.False(t, owner.Destroy("pca"))
	assert.True(t, w.Destroyed())
	assert.Empty(t, w.Element())

	var buf bytes.Buffer
	assert.ErrorIs(t, w.Render(&buf), ErrDestroyed)

	owner.Replace(testWidget("x"))
	owner.Replace(testWidget("y"))
	owner.DestroyAll()
	assert.Equal(t, 0, owner.Live())
}

func TestWidget_Render(t *testing.T) {
	w := testWidget("page")
	var buf bytes.Buffer
	require.NoError(t, w.Render(&buf))
	assert.True(t, strings.Contains(buf.String(), "test_page"))
	assert.Contains(t, w.Script(), "test_page")
	assert.NotEmpty(t, w.Option())
}
