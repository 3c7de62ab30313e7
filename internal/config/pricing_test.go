package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePricing = `
pricing:
  currency: inr
  prices:
    - milkType: buffalo
      pricePerLiter: "70.00"
      effectiveFrom: "2024-01-01"
      effectiveTo: "2024-08-31"
    - milkType: buffalo
      pricePerLiter: "75.50"
      effectiveFrom: "2024-09-01"
    - milkType: cow
      pricePerLiter: 56
      effectiveFrom: "2024-01-01"
`

func writePricingFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pricing.yml"), []byte(content), 0o600))
	return dir
}

func TestPricingConfigHolder_LoadsFile(t *testing.T) {
	dir := writePricingFile(t, samplePricing)

	holder, err := NewPricingConfigHolderFromPaths(zap.NewNop(), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "INR", cfg.Currency)
	require.Len(t, cfg.Prices, 3)
	assert.Equal(t, "buffalo", cfg.Prices[0].MilkType)
	assert.Equal(t, "70", cfg.Prices[0].PricePerLiter.String())
	require.NotNil(t, cfg.Prices[0].EffectiveTo)
	assert.Equal(t, civil.Date{Year: 2024, Month: 8, Day: 31}, *cfg.Prices[0].EffectiveTo)
	assert.Nil(t, cfg.Prices[1].EffectiveTo)
	assert.Equal(t, "56", cfg.Prices[2].PricePerLiter.String())
}

func TestPricingConfigHolder_DefaultsWhenFileMissing(t *testing.T) {
	holder, err := NewPricingConfigHolderFromPaths(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "INR", cfg.Currency)
	assert.Len(t, cfg.Prices, len(DefaultPricingConfig().Prices))
}

func TestPricingConfigHolder_InvalidReloadKeepsCurrent(t *testing.T) {
	dir := writePricingFile(t, samplePricing)
	holder, err := NewPricingConfigHolderFromPaths(zap.NewNop(), dir)
	require.NoError(t, err)

	bad := viper.New()
	bad.SetConfigType("yml")
	require.NoError(t, bad.ReadConfig(strings.NewReader(`
pricing:
  prices:
    - milkType: goat
      pricePerLiter: "80"
      effectiveFrom: "2024-01-01"
`)))

	err = holder.apply(bad)
	require.Error(t, err)
	assert.Len(t, holder.Get().Prices, 3)
}

func TestParsePricingConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		raw  rawPricingConfig
	}{
		{name: "empty", raw: rawPricingConfig{}},
		{name: "negative price", raw: rawPricingConfig{Prices: []rawPriceEntry{{MilkType: "cow", PricePerLiter: "-1", EffectiveFrom: "2024-01-01"}}}},
		{name: "bad date", raw: rawPricingConfig{Prices: []rawPriceEntry{{MilkType: "cow", PricePerLiter: "50", EffectiveFrom: "01/01/2024"}}}},
		{name: "inverted window", raw: rawPricingConfig{Prices: []rawPriceEntry{{MilkType: "cow", PricePerLiter: "50", EffectiveFrom: "2024-02-01", EffectiveTo: "2024-01-01"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parsePricingConfig(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("MILKSELLER_API_URL", "https://api.example.test/api/")
	t.Setenv("MILKSELLER_API_TIMEOUT", "5s")
	t.Setenv("PRICING_SOURCE", "CONFIG")
	t.Setenv("BUSINESS_TIMEZONE", "Asia/Kolkata")

	cfg := Load()
	assert.Equal(t, "https://api.example.test/api", cfg.Upstream.BaseURL)
	assert.Equal(t, "5s", cfg.Upstream.Timeout.String())
	assert.Equal(t, PricingSourceConfig, cfg.PricingSource)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}
