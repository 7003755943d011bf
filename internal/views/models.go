package views

import (
	"context"
	"time"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/charts"
)

// Model view chart names.
const (
	ChartFeatures = "features"

	confusionPrefix = "confusion_"
)

// TopFeatures is the number of features charted.
const TopFeatures = 10

// Confusion matrix chart labels.
var (
	ConfusionCategories = []string{"No Churn (Actual)", "Churn (Actual)"}

	seriesPredictedNoChurn = "No Churn (Predicted)"
	seriesPredictedChurn   = "Churn (Predicted)"
)

var modelDisplay = map[string]struct{ name, icon string }{
	analytics.ModelRandomForest:     {"Random Forest", "🌲"},
	analytics.ModelGradientBoosting: {"Gradient Boosting", "🌿"},
}

// Metric is one labelled value on a card.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ModelCard is the evaluation card of one model.
type ModelCard struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Icon    string   `json:"icon"`
	Metrics []Metric `json:"metrics"`
	Chart   string   `json:"chart"`
}

// ModelsPanel is the model comparison model.
type ModelsPanel struct {
	Cards       []ModelCard `json:"cards"`
	Features    int         `json:"features"`
	FeatureNote string      `json:"feature_note,omitempty"`
}

// ModelsView trains the models on demand and compares them.
type ModelsView struct {
	base
}

// NewModelsView creates the model comparison panel.
func NewModelsView(deps Deps) *ModelsView {
	return &ModelsView{
		base: newBase(SectionModels, "Machine Learning Models",
			"Training models... This may take a moment.",
			"Error training models. Please try again.",
			deps),
	}
}

// ConfusionChartName returns the widget name of a model's confusion matrix.
func ConfusionChartName(model string) string {
	return confusionPrefix + model
}

// ConfusionSeries maps a confusion matrix to the stacked chart series:
// one series per predicted class, one value per actual class.
func ConfusionSeries(m analytics.ConfusionMatrix) []charts.SeriesData {
	return []charts.SeriesData{
		{
			Name:   seriesPredictedNoChurn,
			Color:  charts.ColorCardLow,
			Values: []float64{float64(m[0][0]), float64(m[1][0])},
		},
		{
			Name:   seriesPredictedChurn,
			Color:  charts.ColorCardHigh,
			Values: []float64{float64(m[0][1]), float64(m[1][1])},
		},
	}
}

// Load trains the models, then fetches feature importance. A feature
// importance failure leaves a note on the panel instead of failing the load.
func (v *ModelsView) Load(ctx context.Context, opts LoadOptions) error {
	return v.run(ctx, opts.Trigger, func(ctx context.Context) (*result, error) {
		start := time.Now()
		trained, err := v.deps.Backend.TrainModels(ctx)
		if err != nil {
			return nil, err
		}
		bodies := map[string][]byte{trained.Endpoint: trained.Body}

		var (
			features *analytics.FeatureImportance
			fiErr    error
			fetches  []Source
		)
		fi, err := v.deps.Backend.GetFeatureImportance(ctx, analytics.FetchOptions{SkipCache: opts.Force})
		if err != nil {
			fiErr = err
			v.logger.Warn("Feature importance unavailable", "error", err)
		} else {
			features = fi.Data
			bodies[fi.Endpoint] = fi.Body
			fetches = append(fetches, sourceOf(fi.Cached))
		}
		fetched := time.Since(start)

		res := v.build(trained.Data, features, fiErr)
		// Training is never cached.
		res.source = SourceBackend
		res.fetches = fetches
		res.fetchedAt = trained.FetchedAt
		res.bodies = bodies
		res.fetchLatency = fetched
		return res, nil
	})
}

// Restore renders the latest stored training results.
func (v *ModelsView) Restore(ctx context.Context) error {
	return v.restore(ctx, func(bodies map[string][]byte) (*result, error) {
		raw, err := body(bodies, analytics.PathTrain)
		if err != nil {
			return nil, err
		}
		trained, err := analytics.ParseTrainingResults(raw)
		if err != nil {
			return nil, err
		}

		var features *analytics.FeatureImportance
		raw, fiErr := body(bodies, analytics.PathFeatureImportance)
		if fiErr == nil {
			features, fiErr = analytics.ParseFeatureImportance(raw)
		}

		res := v.build(trained, features, fiErr)
		res.bodies = bodies
		return res, nil
	})
}

func (v *ModelsView) build(trained analytics.TrainingResults, features *analytics.FeatureImportance, fiErr error) *result {
	start := time.Now()
	panel := &ModelsPanel{}
	var widgets []*charts.Widget

	for _, key := range analytics.RequiredModels {
		model := trained[key]
		display := modelDisplay[key]
		chartName := ConfusionChartName(key)

		panel.Cards = append(panel.Cards, ModelCard{
			Key:  key,
			Name: display.name,
			Icon: display.icon,
			Metrics: []Metric{
				{Label: "Accuracy", Value: FormatRatio(model.Accuracy)},
				{Label: "Precision", Value: FormatRatio(model.Precision)},
				{Label: "Recall", Value: FormatRatio(model.Recall)},
				{Label: "F1-Score", Value: FormatRatio(model.F1Score)},
				{Label: "AUC-ROC", Value: FormatFixed(model.AUCROC, 4)},
			},
			Chart: chartName,
		})

		cfg := v.chartConfig(chartName, display.name+" - Confusion Matrix")
		chart := charts.NewStackedBarChart(ConfusionCategories, ConfusionSeries(model.ConfusionMatrix), cfg)
		widgets = append(widgets, charts.NewWidget(chartName, chart))
	}

	if fiErr != nil || features == nil {
		panel.FeatureNote = "Feature importance could not be loaded."
	} else {
		top := features.Top(TopFeatures)
		points := make([]charts.DataPoint, len(top.Features))
		for i, name := range top.Features {
			points[i] = charts.DataPoint{Label: name, Value: top.Importance[i], Color: charts.ColorFeatureBar}
		}
		cfg := v.chartConfig(ChartFeatures, "Top 10 Feature Importance")
		cfg.ShowLegend = false
		chart := charts.NewHorizontalBarChart("Importance", points, cfg)
		widgets = append(widgets, charts.NewWidget(ChartFeatures, chart))
		panel.Features = len(points)
	}

	return &result{
		panel:         panel,
		widgets:       widgets,
		note:          panel.FeatureNote,
		renderLatency: time.Since(start),
	}
}
