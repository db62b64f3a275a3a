package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"milestone_dashboard/services/backend"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		lang string
		in   backend.Money
		want string
	}{
		{"en", backend.Money(5000_00), "$5,000"},
		{"en", backend.Money(1200_00), "$1,200"},
		{"en", backend.Money(120050), "$1,200.50"},
		{"en", 0, "$0"},
		{"en", backend.Money(-25_00), "-$25"},
		{"en", backend.Money(1250000_00), "$1,250,000"},
		{"es", backend.Money(5000_00), "$5.000"},
		{"bogus!!", backend.Money(5000_00), "$5,000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.lang, tt.in))
		})
	}
}

func TestContractorStatsRendering(t *testing.T) {
	stats := backend.ContractorStats{
		TotalEarned:    backend.Money(5000_00),
		PendingAmount:  backend.Money(1200_00),
		ActiveProjects: 2,
	}
	assert.Equal(t, "$5,000", FormatMoney("en", stats.TotalEarned))
	assert.Equal(t, "$1,200", FormatMoney("en", stats.PendingAmount))
	assert.Equal(t, "2", FormatCount("en", stats.ActiveProjects))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "97.5%", FormatScore("en", 0.975))
	assert.Equal(t, "85%", FormatScore("en", 85))
	assert.Equal(t, "100%", FormatScore("en", 1))
	assert.Equal(t, "0%", FormatScore("en", 0))
}
