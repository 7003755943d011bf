package views

import (
	"context"
	"fmt"
	"time"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
)

// Clustering chart names.
const (
	ChartClusterSizes = "sizes"
	ChartClusterChurn = "churn"
)

// ClusterCard is the summary card of one cluster.
type ClusterCard struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	BorderColor string `json:"border_color"`
	ChurnColor  string `json:"churn_color"`
	Size        string `json:"size"`
	ChurnRate   string `json:"churn_rate"`
	AvgTenure   string `json:"avg_tenure"`
	AvgCharge   string `json:"avg_charge"`
	ServiceCall string `json:"avg_service_calls"`
	AvgAge      string `json:"avg_age,omitempty"`
}

// ClusteringPanel is the customer segmentation model.
type ClusteringPanel struct {
	Cards []ClusterCard `json:"cards"`
}

// ClusteringView shows customer segments.
type ClusteringView struct {
	base
}

// NewClusteringView creates the segmentation panel.
func NewClusteringView(deps Deps) *ClusteringView {
	return &ClusteringView{
		base: newBase(SectionClustering, "Customer Segmentation",
			"Analyzing clusters...",
			"Error loading clustering. Please try again.",
			deps),
	}
}

func clusterLabel(id int) string {
	return fmt.Sprintf("Cluster %d", id)
}

// Load fetches the cluster segments and renders cards and charts.
func (v *ClusteringView) Load(ctx context.Context, opts LoadOptions) error {
	return v.run(ctx, opts.Trigger, func(ctx context.Context) (*result, error) {
		start := time.Now()
		resp, err := v.deps.Backend.GetClustering(ctx, analytics.FetchOptions{SkipCache: opts.Force})
		if err != nil {
			return nil, err
		}
		fetched := time.Since(start)

		res := v.build(resp.Data)
		res.source = sourceOf(resp.Cached)
		res.fetchedAt = resp.FetchedAt
		res.bodies = map[string][]byte{resp.Endpoint: resp.Body}
		res.fetchLatency = fetched
		return res, nil
	})
}

// Restore renders the latest stored segments.
func (v *ClusteringView) Restore(ctx context.Context) error {
	return v.restore(ctx, func(bodies map[string][]byte) (*result, error) {
		raw, err := body(bodies, analytics.PathClustering)
		if err != nil {
			return nil, err
		}
		data, err := analytics.ParseClustering(raw)
		if err != nil {
			return nil, err
		}
		res := v.build(data)
		res.bodies = bodies
		return res, nil
	})
}

func (v *ClusteringView) build(data *analytics.ClusteringResult) *result {
	start := time.Now()
	panel := &ClusteringPanel{Cards: make([]ClusterCard, 0, len(data.Clusters))}
	sizes := make([]charts.DataPoint, 0, len(data.Clusters))
	churn := make([]charts.DataPoint, 0, len(data.Clusters))

	for i, c := range data.Clusters {
		card := ClusterCard{
			ID:          c.Cluster,
			Title:       clusterLabel(c.Cluster),
			BorderColor: charts.ClusterBorderColor(c.Cluster),
			ChurnColor:  charts.CardChurnColor(c.ChurnRate),
			Size:        fmt.Sprintf("%s (%s%%)", FormatCount(c.Size), FormatNumber(c.Percentage)),
			ChurnRate:   FormatPercent(c.ChurnRate),
			AvgTenure:   FormatNumber(c.AvgTenure) + " months",
			AvgCharge:   FormatCurrency(c.AvgMonthlyCharge),
			ServiceCall: FormatNumber(c.AvgServiceCalls),
		}
		if c.AvgAge != nil {
			card.AvgAge = FormatNumber(*c.AvgAge)
		}
		panel.Cards = append(panel.Cards, card)

		sizes = append(sizes, charts.DataPoint{
			Label: card.Title,
			Value: float64(c.Size),
			Color: charts.DoughnutColor(i),
		})
		churn = append(churn, charts.DataPoint{
			Label: card.Title,
			Value: c.ChurnRate,
			Color: charts.BarChurnColor(c.ChurnRate),
		})
	}

	sizeCfg := v.chartConfig(ChartClusterSizes, "Cluster Distribution")
	sizeCfg.LegendPos = "bottom"
	doughnut := charts.NewPieChart("Customers", sizes, "40%", sizeCfg)

	churnCfg := v.chartConfig(ChartClusterChurn, "Churn Rate by Cluster")
	churnCfg.ShowLegend = false
	churnCfg.YMax = 100
	bar := charts.NewBarChart("Churn Rate (%)", churn, churnCfg)

	return &result{
		panel: panel,
		widgets: []*charts.Widget{
			charts.NewWidget(ChartClusterSizes, doughnut),
			charts.NewWidget(ChartClusterChurn, bar),
		},
		renderLatency: time.Since(start),
	}
}
