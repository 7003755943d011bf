package analytics

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireInvalid(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T", err)
	assert.Equal(t, ErrInvalidPayload, apiErr.Type)
	if contains != "" {
		assert.Contains(t, apiErr.Error(), contains)
	}
}

func TestParseOverview(t *testing.T) {
	o, err := ParseOverview([]byte(overviewJSON))
	require.NoError(t, err)
	assert.Equal(t, 100, o.TotalCustomers)
	assert.Equal(t, 30, o.ChurnedCustomers)
	assert.Equal(t, 30.0, o.ChurnRate)
	assert.Equal(t, 64.5, o.AvgMonthlyCharge)
	assert.Nil(t, o.AvgTenure)
	assert.Empty(t, o.ContractBreakdown)
}

func TestParseOverview_Optional(t *testing.T) {
	body := `{"total_customers":10,"churned_customers":2,"churn_rate":20,"avg_monthly_charge":50,
		"avg_tenure":32.4,"avg_age":41.2,
		"contract_breakdown":[{"contract_type":"Month-to-month","churn_rate":61.2}]}`
	o, err := ParseOverview([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, o.AvgTenure)
	assert.Equal(t, 32.4, *o.AvgTenure)
	require.Len(t, o.ContractBreakdown, 1)
	assert.Equal(t, "Month-to-month", o.ContractBreakdown[0].ContractType)
}

func TestParseOverview_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"missing total", `{"churned_customers":1,"churn_rate":1,"avg_monthly_charge":1}`, "total_customers"},
		{"missing churned", `{"total_customers":1,"churn_rate":1,"avg_monthly_charge":1}`, "churned_customers"},
		{"missing charge", `{"total_customers":1,"churned_customers":0,"churn_rate":1}`, "avg_monthly_charge"},
		{"churned exceeds total", `{"total_customers":10,"churned_customers":11,"churn_rate":1,"avg_monthly_charge":1}`, "exceeds"},
		{"negative total", `{"total_customers":-1,"churned_customers":0,"churn_rate":1,"avg_monthly_charge":1}`, "negative"},
		{"rate over 100", `{"total_customers":10,"churned_customers":1,"churn_rate":101,"avg_monthly_charge":1}`, "churn_rate"},
		{"bad contract", `{"total_customers":10,"churned_customers":1,"churn_rate":10,"avg_monthly_charge":1,"contract_breakdown":[{"churn_rate":5}]}`, "contract_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOverview([]byte(tt.body))
			requireInvalid(t, err, tt.contains)
		})
	}
}

func TestParseOverview_Malformed(t *testing.T) {
	_, err := ParseOverview([]byte(`not json`))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ErrParseError, apiErr.Type)
}

func TestParseTrainingResults(t *testing.T) {
	results, err := ParseTrainingResults([]byte(trainingJSON))
	require.NoError(t, err)

	rf := results[ModelRandomForest]
	assert.Equal(t, 0.91, rf.Accuracy)
	assert.Equal(t, ConfusionMatrix{{700, 30}, {60, 210}}, rf.ConfusionMatrix)
	assert.Equal(t, 0.9533, results[ModelGradientBoosting].AUCROC)
}

func TestParseTrainingResults_Invalid(t *testing.T) {
	valid := `"accuracy":0.9,"precision":0.9,"recall":0.9,"f1_score":0.9,"auc_roc":0.9`
	model := func(extra string) string { return "{" + valid + extra + "}" }
	gb := model(`,"confusion_matrix":[[1,2],[3,4]]`)

	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"missing model", `{"random_forest":` + gb + `}`, "gradient_boosting"},
		{"missing matrix", `{"random_forest":` + model("") + `,"gradient_boosting":` + gb + `}`, "confusion_matrix"},
		{"three rows", `{"random_forest":` + model(`,"confusion_matrix":[[1,2],[3,4],[5,6]]`) + `,"gradient_boosting":` + gb + `}`, "2 rows"},
		{"three columns", `{"random_forest":` + model(`,"confusion_matrix":[[1,2,3],[3,4,5]]`) + `,"gradient_boosting":` + gb + `}`, "2 columns"},
		{"negative cell", `{"random_forest":` + model(`,"confusion_matrix":[[1,-2],[3,4]]`) + `,"gradient_boosting":` + gb + `}`, "negative"},
		{"accuracy over 1", `{"random_forest":{"accuracy":1.5,"precision":0.9,"recall":0.9,"f1_score":0.9,"auc_roc":0.9,"confusion_matrix":[[1,2],[3,4]]},"gradient_boosting":` + gb + `}`, "accuracy"},
		{"missing recall", `{"random_forest":{"accuracy":0.5,"precision":0.9,"f1_score":0.9,"auc_roc":0.9,"confusion_matrix":[[1,2],[3,4]]},"gradient_boosting":` + gb + `}`, "recall"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrainingResults([]byte(tt.body))
			requireInvalid(t, err, tt.contains)
		})
	}
}

func TestParseFeatureImportance(t *testing.T) {
	fi, err := ParseFeatureImportance([]byte(`{"features":["tenure","calls"],"importance":[0.4,0.2]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"tenure", "calls"}, fi.Features)

	top := fi.Top(1)
	assert.Equal(t, []string{"tenure"}, top.Features)
	assert.Equal(t, []float64{0.4}, top.Importance)
	assert.Len(t, fi.Top(10).Features, 2)

	_, err = ParseFeatureImportance([]byte(`{"features":["a","b"],"importance":[0.4]}`))
	requireInvalid(t, err, "differ in length")

	_, err = ParseFeatureImportance([]byte(`{"importance":[0.4]}`))
	requireInvalid(t, err, "features")
}

func TestParseClustering(t *testing.T) {
	body := `{"clusters":[
		{"cluster":0,"size":400,"percentage":40,"churn_rate":50,"avg_tenure":30.1,"avg_monthly_charge":70.2,"avg_service_calls":1.5,"churned":200},
		{"cluster":1,"size":600,"percentage":60,"churn_rate":12.5,"avg_tenure":50,"avg_monthly_charge":40,"avg_service_calls":0.5}
	]}`
	result, err := ParseClustering([]byte(body))
	require.NoError(t, err)
	require.Len(t, result.Clusters, 2)
	require.NotNil(t, result.Clusters[0].Churned)
	assert.Equal(t, 200, *result.Clusters[0].Churned)
	assert.Nil(t, result.Clusters[1].Churned)
}

func TestParseClustering_Invalid(t *testing.T) {
	seg := func(id int) string {
		return `{"cluster":` + string(rune('0'+id)) + `,"size":1,"percentage":1,"churn_rate":1,"avg_tenure":1,"avg_monthly_charge":1,"avg_service_calls":1}`
	}

	_, err := ParseClustering([]byte(`{}`))
	requireInvalid(t, err, "clusters")

	_, err = ParseClustering([]byte(`{"clusters":[` + seg(1) + `,` + seg(1) + `]}`))
	requireInvalid(t, err, "duplicate")

	missing := strings.Replace(seg(2), `"avg_service_calls":1`, `"other":1`, 1)
	_, err = ParseClustering([]byte(`{"clusters":[` + missing + `]}`))
	requireInvalid(t, err, "avg_service_calls")
}

func TestParsePCA(t *testing.T) {
	body := `{"total_variance":61.5,"components":[
		{"component":"PC1","variance":25,"cumulative":25},
		{"component":"PC2","variance":20,"cumulative":45},
		{"component":"PC3","variance":16.5,"cumulative":61.5}
	]}`
	result, err := ParsePCA([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 61.5, result.TotalVariance)
	require.Len(t, result.Components, 3)
	assert.Equal(t, "PC3", result.Components[2].Component)
}

func TestParsePCA_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"missing total", `{"components":[{"component":"PC1","variance":1,"cumulative":1}]}`, "total_variance"},
		{"no components", `{"total_variance":1,"components":[]}`, "empty"},
		{"decreasing", `{"total_variance":1,"components":[{"component":"PC1","variance":30,"cumulative":30},{"component":"PC2","variance":1,"cumulative":29}]}`, "decreases"},
		{"unnamed", `{"total_variance":1,"components":[{"variance":1,"cumulative":1}]}`, "component name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePCA([]byte(tt.body))
			requireInvalid(t, err, tt.contains)
		})
	}
}
