package views

import (
	"context"
	"time"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
)

// Overview chart names.
const (
	ChartDistribution = "distribution"
	ChartContract     = "contract"
)

// ReferenceContractBreakdown is shown when the payload carries no contract breakdown.
var ReferenceContractBreakdown = []analytics.ContractChurn{
	{ContractType: "Month-to-month", ChurnRate: 65.6},
	{ContractType: "One year", ChurnRate: 38.3},
	{ContractType: "Two year", ChurnRate: 38.9},
}

var contractColors = []string{charts.ColorChurned, charts.ColorWarning, charts.ColorRetained}

// OverviewPanel is the summary card model of the overview.
type OverviewPanel struct {
	TotalCustomers   string `json:"total_customers"`
	ChurnedCustomers string `json:"churned_customers"`
	ChurnRate        string `json:"churn_rate"`
	AvgCharge        string `json:"avg_charge"`
	AvgTenure        string `json:"avg_tenure,omitempty"`
	AvgAge           string `json:"avg_age,omitempty"`

	// Pie values: churned, retained
	Distribution [2]int `json:"distribution"`

	Contracts         []analytics.ContractChurn `json:"contracts"`
	ContractReference bool                      `json:"contract_reference"`
}

// OverviewView shows aggregate churn metrics.
type OverviewView struct {
	base
}

// NewOverviewView creates the overview panel.
func NewOverviewView(deps Deps) *OverviewView {
	return &OverviewView{
		base: newBase(SectionOverview, "Customer Churn Overview",
			"Loading overview...",
			"Error loading overview. Please try again.",
			deps),
	}
}

// Load fetches the overview metrics and renders the summary and both charts.
func (v *OverviewView) Load(ctx context.Context, opts LoadOptions) error {
	return v.run(ctx, opts.Trigger, func(ctx context.Context) (*result, error) {
		start := time.Now()
		resp, err := v.deps.Backend.GetOverview(ctx, analytics.FetchOptions{SkipCache: opts.Force})
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

// Restore renders the latest stored overview payload.
func (v *OverviewView) Restore(ctx context.Context) error {
	return v.restore(ctx, func(bodies map[string][]byte) (*result, error) {
		raw, err := body(bodies, analytics.PathOverview)
		if err != nil {
			return nil, err
		}
		data, err := analytics.ParseOverview(raw)
		if err != nil {
			return nil, err
		}
		res := v.build(data)
		res.bodies = bodies
		return res, nil
	})
}

func (v *OverviewView) build(data *analytics.OverviewMetrics) *result {
	start := time.Now()

	panel := &OverviewPanel{
		TotalCustomers:   FormatCount(data.TotalCustomers),
		ChurnedCustomers: FormatCount(data.ChurnedCustomers),
		ChurnRate:        FormatPercent(data.ChurnRate),
		AvgCharge:        FormatCurrency(data.AvgMonthlyCharge),
		Distribution:     [2]int{data.ChurnedCustomers, data.RetainedCustomers()},
		Contracts:        data.ContractBreakdown,
	}
	if data.AvgTenure != nil {
		panel.AvgTenure = FormatNumber(*data.AvgTenure) + " months"
	}
	if data.AvgAge != nil {
		panel.AvgAge = FormatNumber(*data.AvgAge)
	}
	if len(panel.Contracts) == 0 {
		panel.Contracts = ReferenceContractBreakdown
		panel.ContractReference = true
	}

	pieCfg := v.chartConfig(ChartDistribution, "Churn Distribution")
	pieCfg.LegendPos = "bottom"
	pie := charts.NewPieChart("Customers", []charts.DataPoint{
		{Label: "Churned", Value: float64(panel.Distribution[0]), Color: charts.ColorChurned},
		{Label: "Retained", Value: float64(panel.Distribution[1]), Color: charts.ColorRetained},
	}, "", pieCfg)

	contractCfg := v.chartConfig(ChartContract, "Churn Rate by Contract Type")
	contractCfg.ShowLegend = false
	contractCfg.YMax = 100
	points := make([]charts.DataPoint, len(panel.Contracts))
	for i, c := range panel.Contracts {
		points[i] = charts.DataPoint{
			Label: c.ContractType,
			Value: c.ChurnRate,
			Color: contractColors[i%len(contractColors)],
		}
	}
	bar := charts.NewBarChart("Churn Rate (%)", points, contractCfg)

	return &result{
		panel: panel,
		widgets: []*charts.Widget{
			charts.NewWidget(ChartDistribution, pie),
			charts.NewWidget(ChartContract, bar),
		},
		renderLatency: time.Since(start),
	}
}
