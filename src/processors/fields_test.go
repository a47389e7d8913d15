package processors

import (
	"math"
	"os"
	"testing"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	"github.com/investmentmanagement137/portfolio-sub000/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{"grouped string", "1,234.50", 1234.5, true},
		{"plain string", "512", 512, true},
		{"string with spaces", "  2,000 ", 2000, true},
		{"negative string", "-42.5", -42.5, true},
		{"garbage string", "abc", 0, false},
		{"empty string", "", 0, false},
		{"json number", float64(98.6), 98.6, true},
		{"int", 7, 7, true},
		{"nan", math.NaN(), 0, false},
		{"inf string", "Inf", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolveNumberFallsThroughCandidates(t *testing.T) {
	rec := models.RawRecord{
		"Current Balance": "abc", // present but unparseable: treated as absent
		"balance":         "1,500",
	}
	got, ok := resolveNumber(rec, []string{"Current Balance", "currentBalance", "balance", "quantity"})
	require.True(t, ok)
	assert.Equal(t, 1500.0, got)
}

func TestResolveNumberAllCandidatesFail(t *testing.T) {
	rec := models.RawRecord{"Current Balance": "n/a", "quantity": ""}
	_, ok := resolveNumber(rec, []string{"Current Balance", "balance", "quantity"})
	assert.False(t, ok)
}

func TestResolveNumberPrecedenceOrder(t *testing.T) {
	rec := models.RawRecord{
		"quantity":        "10",
		"Current Balance": "100",
	}
	got, ok := resolveNumber(rec, []string{"Current Balance", "currentBalance", "balance", "quantity"})
	require.True(t, ok)
	assert.Equal(t, 100.0, got, "first candidate in the list wins, not map order")
}

func TestResolvePositiveNumberSkipsZero(t *testing.T) {
	rec := models.RawRecord{"Total Investment": "0", "investment": "5000"}
	got, ok := resolvePositiveNumber(rec, []string{"Total Investment", "totalInvestment", "investment"})
	require.True(t, ok)
	assert.Equal(t, 5000.0, got)
}

func TestResolveString(t *testing.T) {
	rec := models.RawRecord{"Scrip": "  NABIL ", "symbol": "IGNORED"}
	got, ok := resolveString(rec, []string{"Scrip", "symbol"})
	require.True(t, ok)
	assert.Equal(t, "NABIL", got)

	_, ok = resolveString(models.RawRecord{"Scrip": "   "}, []string{"Scrip"})
	assert.False(t, ok, "blank string is absent")
}
