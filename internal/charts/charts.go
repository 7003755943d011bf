package charts

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
)

// Chart is anything go-echarts can render as a page or as an embeddable snippet.
type Chart = render.Renderer

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	ID         string   // Chart element ID (must be a valid JS identifier fragment)
	Title      string   // Chart title
	Subtitle   string   // Chart subtitle
	Width      string   // Chart width (e.g., "900px")
	Height     string   // Chart height (e.g., "500px")
	Theme      string   // Chart theme
	ShowLegend bool     // Show legend
	LegendPos  string   // "top" or "bottom"
	Smooth     bool     // Smooth line (for line charts)
	YMax       float64  // Y-axis maximum (0 = auto)
	Colors     []string // Custom colors
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "100%",
		Height:     "400px",
		Theme:      "white",
		ShowLegend: true,
		LegendPos:  "top",
		Smooth:     true,
		Colors:     []string{"#14b8a6", "#f43f5e", "#f59e0b", "#2dd4bf", "#0d9488"},
	}
}

// With returns a copy of c with the given ID and title.
func (c ChartConfig) With(id, title string) ChartConfig {
	c.ID = id
	c.Title = title
	return c
}

// DataPoint represents a single data point in a chart.
type DataPoint struct {
	Label string
	Value float64
	Color string // Optional per-point color
}

// SeriesData represents a data series for multi-series charts.
type SeriesData struct {
	Name   string
	Color  string
	Values []float64
}

func globalOptions(config ChartConfig) []charts.GlobalOpts {
	legend := opts.Legend{Show: opts.Bool(config.ShowLegend)}
	if config.LegendPos == "bottom" {
		legend.Bottom = "0"
	} else {
		legend.Top = "top"
	}

	options := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: config.ID,
			Width:   config.Width,
			Height:  config.Height,
			Theme:   config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(legend),
	}
	if len(config.Colors) > 0 {
		options = append(options, charts.WithColorsOpts(opts.Colors(config.Colors)))
	}
	return options
}

func labels(data []DataPoint) []string {
	out := make([]string, len(data))
	for i, point := range data {
		out[i] = point.Label
	}
	return out
}

func barData(data []DataPoint) []opts.BarData {
	out := make([]opts.BarData, len(data))
	for i, point := range data {
		out[i] = opts.BarData{Value: point.Value}
		if point.Color != "" {
			out[i].ItemStyle = &opts.ItemStyle{Color: point.Color}
		}
	}
	return out
}

// NewPieChart creates a pie chart. A non-empty innerRadius makes it a doughnut.
func NewPieChart(seriesName string, data []DataPoint, innerRadius string, config ChartConfig) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOptions(config)...)

	items := make([]opts.PieData, len(data))
	for i, point := range data {
		items[i] = opts.PieData{Name: point.Label, Value: point.Value}
		if point.Color != "" {
			items[i].ItemStyle = &opts.ItemStyle{Color: point.Color}
		}
	}

	pieOpts := opts.PieChart{}
	if innerRadius != "" {
		pieOpts.Radius = []string{innerRadius, "70%"}
	}
	pie.AddSeries(seriesName, items, charts.WithPieChartOpts(pieOpts))
	return pie
}

// NewBarChart creates a single-series bar chart with optional per-bar colors.
func NewBarChart(seriesName string, data []DataPoint, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(config)...)
	if config.YMax > 0 {
		bar.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: config.YMax}))
	}

	bar.SetXAxis(labels(data)).
		AddSeries(seriesName, barData(data)).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)
	return bar
}

// NewHorizontalBarChart creates a bar chart with categories on the Y axis,
// first category at the top.
func NewHorizontalBarChart(seriesName string, data []DataPoint, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(config)...)
	bar.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Inverse: opts.Bool(true)}),
	)

	bar.SetXAxis(labels(data)).
		AddSeries(seriesName, barData(data)).
		XYReversal()
	return bar
}

// NewStackedBarChart creates a bar chart stacking every series on the same categories.
func NewStackedBarChart(categories []string, series []SeriesData, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(config)...)
	bar.SetXAxis(categories)

	for _, s := range series {
		data := make([]opts.BarData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.BarData{Value: v}
		}
		seriesOpts := []charts.SeriesOpts{
			charts.WithBarChartOpts(opts.BarChart{Stack: "total"}),
		}
		if s.Color != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}))
		}
		bar.AddSeries(s.Name, data, seriesOpts...)
	}
	return bar
}

// NewLineChart creates a single-series line chart, filled under the line.
// Values above config.YMax are clamped when YMax is set.
func NewLineChart(seriesName string, data []DataPoint, config ChartConfig) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(config)...)
	line.SetGlobalOptions(charts.WithTooltipOpts(opts.Tooltip{
		Show:    opts.Bool(true),
		Trigger: "axis",
	}))
	if config.YMax > 0 {
		line.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: config.YMax}))
	}

	yData := make([]opts.LineData, len(data))
	for i, point := range data {
		v := point.Value
		if config.YMax > 0 && v > config.YMax {
			v = config.YMax
		}
		yData[i] = opts.LineData{Value: v}
	}

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Smooth: opts.Bool(config.Smooth),
		}),
		charts.WithAreaStyleOpts(opts.AreaStyle{
			Opacity: opts.Float(0.1),
		}),
	}
	if len(config.Colors) > 0 {
		seriesOpts = append(seriesOpts, charts.WithLineStyleOpts(opts.LineStyle{Color: config.Colors[0]}))
	}

	line.SetXAxis(labels(data)).AddSeries(seriesName, yData, seriesOpts...)
	return line
}

// Render writes a standalone HTML page for chart.
func Render(chart Chart, w io.Writer) error {
	if err := chart.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderFile creates an interactive chart HTML file.
func RenderFile(chart Chart, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	return Render(chart, f)
}

// OpenInBrowser opens the given file path or URL in the default web browser.
func OpenInBrowser(target string) error {
	if _, err := os.Stat(target); err == nil {
		absPath, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		target = absPath
	}

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
