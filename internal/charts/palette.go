package charts

// Dashboard colors.
const (
	ColorChurned  = "#f43f5e"
	ColorRetained = "#14b8a6"
	ColorWarning  = "#f59e0b"

	ColorCardHigh = "#e74c3c"
	ColorCardLow  = "#2ecc71"

	ColorFeatureBar     = "rgba(45, 212, 191, 0.6)"
	ColorVarianceBar    = "rgba(45, 212, 191, 0.6)"
	ColorCumulativeLine = "rgba(20, 184, 166, 1)"
)

// ClusterBorderPalette colors cluster cards by cluster id.
var ClusterBorderPalette = []string{"#3498db", "#2ecc71", "#e74c3c", "#f39c12", "#9b59b6"}

// DoughnutPalette colors cluster size slices.
var DoughnutPalette = []string{"#2dd4bf", "#14b8a6", "#f43f5e", "#f59e0b", "#0d9488"}

// CardChurnColor returns the churn-rate text color of a summary card.
// Only rates strictly above 50 are flagged.
func CardChurnColor(churnRate float64) string {
	if churnRate > 50 {
		return ColorCardHigh
	}
	return ColorCardLow
}

// BarChurnColor returns the bar color for a churn rate using three bands.
func BarChurnColor(churnRate float64) string {
	switch {
	case churnRate > 50:
		return ColorChurned
	case churnRate > 45:
		return ColorWarning
	default:
		return ColorRetained
	}
}

// ClusterBorderColor returns the card border color for a cluster id.
func ClusterBorderColor(id int) string {
	if id < 0 {
		id = -id
	}
	return ClusterBorderPalette[id%len(ClusterBorderPalette)]
}

// DoughnutColor returns the slice color at position i.
func DoughnutColor(i int) string {
	return DoughnutPalette[i%len(DoughnutPalette)]
}
