package main

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Monthly summary texts for the turnover-based categories. The daromad
// (withholding) summary lives in resolver.go because it reformats the
// itemized employee listing instead of aggregating a single row.

func yagonaSummary(store *Store, stir, month, lang string) string {
	report, ok := store.YagonaReportFor(stir, month)
	if !ok {
		return getText(lang, "no_summary_report", map[string]string{
			"oy": getMonthName(lang, month),
		})
	}
	return getText(lang, "yagona_report", map[string]string{
		"firma_name":   report.FirmName,
		"oy":           getMonthName(lang, month),
		"soliq_turi":   report.TaxType,
		"yil_boshidan": formatAmount(report.YTDTurnover),
		"shu_oy":       formatAmount(report.MonthTurnover),
		"soliq":        formatAmount(report.Tax),
	})
}

func qqsSummary(store *Store, stir, month, lang string) string {
	report, ok := store.QQSReportFor(stir, month)
	if !ok {
		return getText(lang, "no_summary_report", map[string]string{
			"oy": getMonthName(lang, month),
		})
	}
	return getText(lang, "qqs_report", map[string]string{
		"firma_name":   report.FirmName,
		"oy":           getMonthName(lang, month),
		"soliq_turi":   report.TaxType,
		"yil_boshidan": formatAmount(report.YTDAmount),
		"shu_oy":       formatAmount(report.MonthAmount),
		"soliq":        formatAmount(report.Tax),
	})
}

// formatAmount renders a som amount with thousand grouping, the way the
// generated reports print money.
func formatAmount(n int64) string {
	s := decimal.NewFromInt(n).String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		return "-" + out
	}
	return out
}

// computeTax applies a percent rate string such as "4" or "4%" to an amount,
// rounding to the nearest som. Used by the admin import when the tax value
// is not supplied explicitly.
func computeTax(amount int64, rate string) (int64, error) {
	rate = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rate), "%"))
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return 0, err
	}
	tax := decimal.NewFromInt(amount).Mul(r).Div(decimal.NewFromInt(100))
	return tax.Round(0).IntPart(), nil
}
