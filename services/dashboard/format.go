package dashboard

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"milestone_dashboard/services/backend"
)

func printer(lang string) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// FormatMoney renders an amount with a dollar sign and grouping, dropping
// the fraction for whole amounts: "$5,000", "$1,200.50".
func FormatMoney(lang string, m backend.Money) string {
	p := printer(lang)
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	if m.IsWhole() {
		return sign + "$" + p.Sprint(number.Decimal(m.Units()))
	}
	return sign + "$" + p.Sprint(number.Decimal(float64(m)/100, number.Scale(2)))
}

// FormatCount renders an integer with locale grouping.
func FormatCount(lang string, n int) string {
	return printer(lang).Sprint(number.Decimal(n))
}

// FormatScore renders a transparency score as a percentage. Scores in 0..1
// are treated as ratios.
func FormatScore(lang string, score float64) string {
	if score >= 0 && score <= 1 {
		score *= 100
	}
	return printer(lang).Sprint(number.Decimal(score, number.MaxFractionDigits(1))) + "%"
}
