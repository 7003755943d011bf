package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Model keys returned by the training endpoint.
const (
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

// RequiredModels lists the models every training response must contain, in display order.
var RequiredModels = []string{ModelRandomForest, ModelGradientBoosting}

// OverviewMetrics holds aggregate churn metrics.
type OverviewMetrics struct {
	TotalCustomers   int     `json:"total_customers"`
	ChurnedCustomers int     `json:"churned_customers"`
	ChurnRate        float64 `json:"churn_rate"`
	AvgMonthlyCharge float64 `json:"avg_monthly_charge"`

	// Optional extras
	AvgTenure         *float64        `json:"avg_tenure,omitempty"`
	AvgAge            *float64        `json:"avg_age,omitempty"`
	ContractBreakdown []ContractChurn `json:"contract_breakdown,omitempty"`
}

// RetainedCustomers returns the number of customers who did not churn.
func (o *OverviewMetrics) RetainedCustomers() int {
	return o.TotalCustomers - o.ChurnedCustomers
}

// ContractChurn is the churn rate for one contract type.
type ContractChurn struct {
	ContractType string  `json:"contract_type"`
	ChurnRate    float64 `json:"churn_rate"`
}

// ConfusionMatrix is a binary classification confusion matrix.
// Rows are actual classes, columns predicted classes; index 0 is no-churn.
type ConfusionMatrix [2][2]int

// ModelResult holds the evaluation metrics of one trained model.
type ModelResult struct {
	Accuracy        float64         `json:"accuracy"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	F1Score         float64         `json:"f1_score"`
	AUCROC          float64         `json:"auc_roc"`
	ConfusionMatrix ConfusionMatrix `json:"confusion_matrix"`
}

// TrainingResults maps model key to its evaluation result.
type TrainingResults map[string]ModelResult

// FeatureImportance holds parallel arrays of feature names and scores.
type FeatureImportance struct {
	Features   []string  `json:"features"`
	Importance []float64 `json:"importance"`
}

// Top returns at most n leading entries.
func (f *FeatureImportance) Top(n int) FeatureImportance {
	if n < 0 || n >= len(f.Features) {
		return *f
	}
	return FeatureImportance{
		Features:   f.Features[:n],
		Importance: f.Importance[:n],
	}
}

// ClusterSegment holds aggregate statistics of one customer cluster.
type ClusterSegment struct {
	Cluster          int     `json:"cluster"`
	Size             int     `json:"size"`
	Percentage       float64 `json:"percentage"`
	ChurnRate        float64 `json:"churn_rate"`
	AvgTenure        float64 `json:"avg_tenure"`
	AvgMonthlyCharge float64 `json:"avg_monthly_charge"`
	AvgServiceCalls  float64 `json:"avg_service_calls"`

	// Optional extras
	Churned *int     `json:"churned,omitempty"`
	AvgAge  *float64 `json:"avg_age,omitempty"`
}

// ClusteringResult is the clustering endpoint payload.
type ClusteringResult struct {
	Clusters []ClusterSegment `json:"clusters"`
}

// PCAComponent is the explained variance of one principal component, in percent.
type PCAComponent struct {
	Component  string  `json:"component"`
	Variance   float64 `json:"variance"`
	Cumulative float64 `json:"cumulative"`
}

// PCAResult is the PCA endpoint payload.
type PCAResult struct {
	TotalVariance float64        `json:"total_variance"`
	Components    []PCAComponent `json:"components"`
}

// Response wraps a validated payload with its raw body and fetch metadata.
type Response[T any] struct {
	Data      T
	Body      []byte
	Endpoint  string
	Cached    bool
	FetchedAt time.Time
}

// ClientStats tracks analytics client statistics.
type ClientStats struct {
	TotalRequests     int           `json:"total_requests"`
	FailedRequests    int           `json:"failed_requests"`
	CachedResponses   int           `json:"cached_responses"`
	AverageLatency    time.Duration `json:"average_latency"`
	LastRequestTime   time.Time     `json:"last_request_time"`
	LastSuccessTime   time.Time     `json:"last_success_time"`
	LastFailureTime   time.Time     `json:"last_failure_time"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
}

// Error types for the analytics API
const (
	ErrRateLimited    = "rate_limited"
	ErrUnavailable    = "unavailable"
	ErrInvalidParams  = "invalid_params"
	ErrParseError     = "parse_error"
	ErrInvalidPayload = "invalid_payload" // JSON parsed but violates the payload schema
)

// APIError represents an error from the analytics backend.
type APIError struct {
	Type       string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Endpoint != "" {
		msg = e.Endpoint + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return &APIError{
		Type:    ErrInvalidPayload,
		Message: fmt.Sprintf(format, args...),
	}
}

func parseFailure(what string, err error) error {
	return &APIError{
		Type:    ErrParseError,
		Message: "failed to parse " + what + " response",
		Err:     err,
	}
}

func checkRatio(name string, v *float64) error {
	if v == nil {
		return invalid("missing required field %s", name)
	}
	if math.IsNaN(*v) || *v < 0 || *v > 1 {
		return invalid("%s must be within [0,1], got %v", name, *v)
	}
	return nil
}

func checkPercent(name string, v *float64) error {
	if v == nil {
		return invalid("missing required field %s", name)
	}
	if math.IsNaN(*v) || *v < 0 || *v > 100 {
		return invalid("%s must be within [0,100], got %v", name, *v)
	}
	return nil
}

func checkNonNegative(name string, v *float64) error {
	if v == nil {
		return invalid("missing required field %s", name)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return invalid("%s must be a non-negative number, got %v", name, *v)
	}
	return nil
}

func checkCount(name string, v *int) error {
	if v == nil {
		return invalid("missing required field %s", name)
	}
	if *v < 0 {
		return invalid("%s cannot be negative: %d", name, *v)
	}
	return nil
}

// Wire shapes use pointers so absent fields are detected instead of zeroed.

type overviewWire struct {
	TotalCustomers    *int            `json:"total_customers"`
	ChurnedCustomers  *int            `json:"churned_customers"`
	ChurnRate         *float64        `json:"churn_rate"`
	AvgMonthlyCharge  *float64        `json:"avg_monthly_charge"`
	AvgTenure         *float64        `json:"avg_tenure"`
	AvgAge            *float64        `json:"avg_age"`
	ContractBreakdown []ContractChurn `json:"contract_breakdown"`
}

// ParseOverview decodes and validates an overview payload.
func ParseOverview(body []byte) (*OverviewMetrics, error) {
	var w overviewWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, parseFailure("overview", err)
	}

	if err := checkCount("total_customers", w.TotalCustomers); err != nil {
		return nil, err
	}
	if err := checkCount("churned_customers", w.ChurnedCustomers); err != nil {
		return nil, err
	}
	if *w.ChurnedCustomers > *w.TotalCustomers {
		return nil, invalid("churned_customers (%d) exceeds total_customers (%d)", *w.ChurnedCustomers, *w.TotalCustomers)
	}
	if err := checkPercent("churn_rate", w.ChurnRate); err != nil {
		return nil, err
	}
	if err := checkNonNegative("avg_monthly_charge", w.AvgMonthlyCharge); err != nil {
		return nil, err
	}
	for i, c := range w.ContractBreakdown {
		if c.ContractType == "" {
			return nil, invalid("contract_breakdown[%d] has no contract_type", i)
		}
		rate := c.ChurnRate
		if err := checkPercent(fmt.Sprintf("contract_breakdown[%d].churn_rate", i), &rate); err != nil {
			return nil, err
		}
	}

	return &OverviewMetrics{
		TotalCustomers:    *w.TotalCustomers,
		ChurnedCustomers:  *w.ChurnedCustomers,
		ChurnRate:         *w.ChurnRate,
		AvgMonthlyCharge:  *w.AvgMonthlyCharge,
		AvgTenure:         w.AvgTenure,
		AvgAge:            w.AvgAge,
		ContractBreakdown: w.ContractBreakdown,
	}, nil
}

type modelWire struct {
	Accuracy        *float64 `json:"accuracy"`
	Precision       *float64 `json:"precision"`
	Recall          *float64 `json:"recall"`
	F1Score         *float64 `json:"f1_score"`
	AUCROC          *float64 `json:"auc_roc"`
	ConfusionMatrix [][]int  `json:"confusion_matrix"`
}

func (w *modelWire) validate(key string) (ModelResult, error) {
	var result ModelResult
	checks := []struct {
		name string
		v    *float64
	}{
		{"accuracy", w.Accuracy},
		{"precision", w.Precision},
		{"recall", w.Recall},
		{"f1_score", w.F1Score},
		{"auc_roc", w.AUCROC},
	}
	for _, c := range checks {
		if err := checkRatio(key+"."+c.name, c.v); err != nil {
			return result, err
		}
	}

	if w.ConfusionMatrix == nil {
		return result, invalid("missing required field %s.confusion_matrix", key)
	}
	if len(w.ConfusionMatrix) != 2 {
		return result, invalid("%s.confusion_matrix must have 2 rows, got %d", key, len(w.ConfusionMatrix))
	}
	for i, row := range w.ConfusionMatrix {
		if len(row) != 2 {
			return result, invalid("%s.confusion_matrix row %d must have 2 columns, got %d", key, i, len(row))
		}
		for j, v := range row {
			if v < 0 {
				return result, invalid("%s.confusion_matrix[%d][%d] cannot be negative", key, i, j)
			}
			result.ConfusionMatrix[i][j] = v
		}
	}

	result.Accuracy = *w.Accuracy
	result.Precision = *w.Precision
	result.Recall = *w.Recall
	result.F1Score = *w.F1Score
	result.AUCROC = *w.AUCROC
	return result, nil
}

// ParseTrainingResults decodes and validates a training payload.
// Every model in RequiredModels must be present; extra models are validated and kept.
func ParseTrainingResults(body []byte) (TrainingResults, error) {
	var raw map[string]modelWire
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, parseFailure("training", err)
	}

	for _, key := range RequiredModels {
		if _, ok := raw[key]; !ok {
			return nil, invalid("missing required model %s", key)
		}
	}

	results := make(TrainingResults, len(raw))
	for key, w := range raw {
		result, err := w.validate(key)
		if err != nil {
			return nil, err
		}
		results[key] = result
	}
	return results, nil
}

// ParseFeatureImportance decodes and validates a feature importance payload.
func ParseFeatureImportance(body []byte) (*FeatureImportance, error) {
	var fi FeatureImportance
	if err := json.Unmarshal(body, &fi); err != nil {
		return nil, parseFailure("feature importance", err)
	}
	if fi.Features == nil {
		return nil, invalid("missing required field features")
	}
	if fi.Importance == nil {
		return nil, invalid("missing required field importance")
	}
	if len(fi.Features) != len(fi.Importance) {
		return nil, invalid("features (%d) and importance (%d) differ in length", len(fi.Features), len(fi.Importance))
	}
	for i := range fi.Importance {
		if err := checkNonNegative(fmt.Sprintf("importance[%d]", i), &fi.Importance[i]); err != nil {
			return nil, err
		}
	}
	return &fi, nil
}

type clusterWire struct {
	Cluster          *int     `json:"cluster"`
	Size             *int     `json:"size"`
	Percentage       *float64 `json:"percentage"`
	ChurnRate        *float64 `json:"churn_rate"`
	AvgTenure        *float64 `json:"avg_tenure"`
	AvgMonthlyCharge *float64 `json:"avg_monthly_charge"`
	AvgServiceCalls  *float64 `json:"avg_service_calls"`
	Churned          *int     `json:"churned"`
	AvgAge           *float64 `json:"avg_age"`
}

// ParseClustering decodes and validates a clustering payload.
func ParseClustering(body []byte) (*ClusteringResult, error) {
	var w struct {
		Clusters []clusterWire `json:"clusters"`
	}
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, parseFailure("clustering", err)
	}
	if w.Clusters == nil {
		return nil, invalid("missing required field clusters")
	}

	result := &ClusteringResult{Clusters: make([]ClusterSegment, 0, len(w.Clusters))}
	seen := make(map[int]bool, len(w.Clusters))
	for i, c := range w.Clusters {
		prefix := fmt.Sprintf("clusters[%d].", i)
		if err := checkCount(prefix+"cluster", c.Cluster); err != nil {
			return nil, err
		}
		if seen[*c.Cluster] {
			return nil, invalid("duplicate cluster id %d", *c.Cluster)
		}
		seen[*c.Cluster] = true

		if err := checkCount(prefix+"size", c.Size); err != nil {
			return nil, err
		}
		if err := checkPercent(prefix+"percentage", c.Percentage); err != nil {
			return nil, err
		}
		if err := checkPercent(prefix+"churn_rate", c.ChurnRate); err != nil {
			return nil, err
		}
		if err := checkNonNegative(prefix+"avg_tenure", c.AvgTenure); err != nil {
			return nil, err
		}
		if err := checkNonNegative(prefix+"avg_monthly_charge", c.AvgMonthlyCharge); err != nil {
			return nil, err
		}
		if err := checkNonNegative(prefix+"avg_service_calls", c.AvgServiceCalls); err != nil {
			return nil, err
		}

		result.Clusters = append(result.Clusters, ClusterSegment{
			Cluster:          *c.Cluster,
			Size:             *c.Size,
			Percentage:       *c.Percentage,
			ChurnRate:        *c.ChurnRate,
			AvgTenure:        *c.AvgTenure,
			AvgMonthlyCharge: *c.AvgMonthlyCharge,
			AvgServiceCalls:  *c.AvgServiceCalls,
			Churned:          c.Churned,
			AvgAge:           c.AvgAge,
		})
	}
	return result, nil
}

type pcaWire struct {
	TotalVariance *float64 `json:"total_variance"`
	Components    []struct {
		Component  *string  `json:"component"`
		Variance   *float64 `json:"variance"`
		Cumulative *float64 `json:"cumulative"`
	} `json:"components"`
}

// ParsePCA decodes and validates a PCA payload. Cumulative variance must be non-decreasing.
func ParsePCA(body []byte) (*PCAResult, error) {
	var w pcaWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, parseFailure("PCA", err)
	}
	if err := checkNonNegative("total_variance", w.TotalVariance); err != nil {
		return nil, err
	}
	if len(w.Components) == 0 {
		return nil, invalid("components must not be empty")
	}

	result := &PCAResult{
		TotalVariance: *w.TotalVariance,
		Components:    make([]PCAComponent, 0, len(w.Components)),
	}
	prev := 0.0
	for i, c := range w.Components {
		if c.Component == nil || *c.Component == "" {
			return nil, invalid("components[%d] has no component name", i)
		}
		if err := checkNonNegative(fmt.Sprintf("components[%d].variance", i), c.Variance); err != nil {
			return nil, err
		}
		if err := checkNonNegative(fmt.Sprintf("components[%d].cumulative", i), c.Cumulative); err != nil {
			return nil, err
		}
		if *c.Cumulative < prev {
			return nil, invalid("cumulative variance decreases at %s (%v < %v)", *c.Component, *c.Cumulative, prev)
		}
		prev = *c.Cumulative

		result.Components = append(result.Components, PCAComponent{
			Component:  *c.Component,
			Variance:   *c.Variance,
			Cumulative: *c.Cumulative,
		})
	}
	return result, nil
}
