package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"cloud.google.com/go/civil"
	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/pkg/calendar"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PriceEntry is one rate card line: a per-liter price for a milk type over an
// inclusive date window. A nil EffectiveTo is open-ended.
type PriceEntry struct {
	MilkType      string
	PricePerLiter decimal.Decimal
	EffectiveFrom civil.Date
	EffectiveTo   *civil.Date
}

// PricingConfig is the parsed rate card.
type PricingConfig struct {
	Currency string
	Prices   []PriceEntry
}

type rawPriceEntry struct {
	MilkType      string `mapstructure:"milkType"`
	PricePerLiter string `mapstructure:"pricePerLiter"`
	EffectiveFrom string `mapstructure:"effectiveFrom"`
	EffectiveTo   string `mapstructure:"effectiveTo"`
}

type rawPricingConfig struct {
	Currency string          `mapstructure:"currency"`
	Prices   []rawPriceEntry `mapstructure:"prices"`
}

var defaultPricingStart = civil.Date{Year: 2024, Month: 1, Day: 1}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Currency: "INR",
		Prices: []PriceEntry{
			{MilkType: "buffalo", PricePerLiter: decimal.RequireFromString("70"), EffectiveFrom: defaultPricingStart},
			{MilkType: "cow", PricePerLiter: decimal.RequireFromString("56"), EffectiveFrom: defaultPricingStart},
		},
	}
}

func defaultRawPrices() []map[string]string {
	defaults := DefaultPricingConfig()
	out := make([]map[string]string, 0, len(defaults.Prices))
	for _, p := range defaults.Prices {
		out = append(out, map[string]string{
			"milkType":      p.MilkType,
			"pricePerLiter": p.PricePerLiter.String(),
			"effectiveFrom": p.EffectiveFrom.String(),
		})
	}
	return out
}

// PricingConfigHolder serves the current rate card and swaps it on file change.
type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
	log     *zap.Logger
}

// NewPricingConfigHolder reads pricing.yml from the standard config paths.
func NewPricingConfigHolder(log *zap.Logger) (*PricingConfigHolder, error) {
	return NewPricingConfigHolderFromPaths(log,
		"/var/lib/milkseller/config", // volume-mounted config
		"/etc/milkseller",
		".",
	)
}

func NewPricingConfigHolderFromPaths(log *zap.Logger, paths ...string) (*PricingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("MILKSELLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		v.SetDefault("pricing.currency", "INR")
		v.SetDefault("pricing.prices", defaultRawPrices())
	}

	holder := &PricingConfigHolder{log: log.Named("config.pricing")}
	if err := holder.apply(v); err != nil {
		return nil, err
	}

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := holder.apply(v); err != nil {
				holder.log.Warn("invalid pricing config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.log.Info("pricing config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// NewStaticPricingConfigHolder serves a fixed rate card.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{log: zap.NewNop()}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

// apply parses and validates v. The current card is only replaced on success.
func (h *PricingConfigHolder) apply(v *viper.Viper) error {
	var raw rawPricingConfig
	if err := v.UnmarshalKey("pricing", &raw); err != nil {
		return err
	}
	cfg, err := parsePricingConfig(raw)
	if err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func parsePricingConfig(raw rawPricingConfig) (PricingConfig, error) {
	cfg := PricingConfig{
		Currency: strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Prices:   make([]PriceEntry, 0, len(raw.Prices)),
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if len(raw.Prices) == 0 {
		return PricingConfig{}, errors.New("pricing.prices cannot be empty")
	}

	for i, p := range raw.Prices {
		milkType := strings.ToLower(strings.TrimSpace(p.MilkType))
		if milkType != "buffalo" && milkType != "cow" {
			return PricingConfig{}, fmt.Errorf("pricing.prices[%d]: unknown milk type %q", i, p.MilkType)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(p.PricePerLiter))
		if err != nil || !price.IsPositive() {
			return PricingConfig{}, fmt.Errorf("pricing.prices[%d]: price per liter must be positive", i)
		}
		from, err := calendar.Parse(p.EffectiveFrom)
		if err != nil {
			return PricingConfig{}, fmt.Errorf("pricing.prices[%d].effectiveFrom: %w", i, err)
		}
		to, err := calendar.ParseOptional(p.EffectiveTo)
		if err != nil {
			return PricingConfig{}, fmt.Errorf("pricing.prices[%d].effectiveTo: %w", i, err)
		}
		if to != nil && to.Before(from) {
			return PricingConfig{}, fmt.Errorf("pricing.prices[%d]: effectiveTo before effectiveFrom", i)
		}
		cfg.Prices = append(cfg.Prices, PriceEntry{
			MilkType:      milkType,
			PricePerLiter: price,
			EffectiveFrom: from,
			EffectiveTo:   to,
		})
	}
	return cfg, nil
}
