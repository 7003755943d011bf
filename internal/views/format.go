package views

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatCount formats n with thousands separators ("1,234").
func FormatCount(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// FormatNumber formats v in its shortest exact form ("64.5", "30").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPercent formats a value already expressed in percent ("26.5%").
func FormatPercent(v float64) string {
	return FormatNumber(v) + "%"
}

// FormatCurrency formats an amount in dollars ("$64.5").
func FormatCurrency(v float64) string {
	return "$" + FormatNumber(v)
}

// FormatRatio formats a [0,1] ratio as a percentage with two decimals ("85.40%").
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatFixed formats v with the given number of decimals.
func FormatFixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
