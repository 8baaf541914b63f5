package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FallbackWaterPrice is used whenever no valid price can be resolved.
const FallbackWaterPrice int64 = 5000

// BillingConfig holds tunables that operators may change without a restart.
type BillingConfig struct {
	DefaultWaterPrice int64    `mapstructure:"defaultWaterPrice"`
	Currency          string   `mapstructure:"currency"`
	InvoicePrefix     string   `mapstructure:"invoicePrefix"`
	SnapshotSchedule  string   `mapstructure:"snapshotSchedule"`
	Regions           []string `mapstructure:"regions"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultWaterPrice: FallbackWaterPrice,
		Currency:          "IDR",
		InvoicePrefix:     "WTR",
		SnapshotSchedule:  "0 0 1 * *",
		Regions:           []string{"Region 1", "Region 2", "Region 3"},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	return newBillingConfigHolder(
		"/var/lib/berair/config", // Volume-mounted config
		"/etc/berair",            // System config
		".",                      // Current directory (dev mode)
	)
}

// NewStaticBillingConfigHolder wraps a fixed config, mostly for tests and tools.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(normalizeBillingConfig(cfg))
	return holder
}

func newBillingConfigHolder(paths ...string) (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("BERAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.defaultWaterPrice", defaults.DefaultWaterPrice)
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.invoicePrefix", defaults.InvoicePrefix)
	v.SetDefault("billing.snapshotSchedule", defaults.SnapshotSchedule)
	v.SetDefault("billing.regions", defaults.Regions)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(normalizeBillingConfig(cfg))

	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			zap.L().Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			zap.L().Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(normalizeBillingConfig(updated))
		zap.L().Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DefaultWaterPrice <= 0 {
		return errors.New("billing.defaultWaterPrice must be positive")
	}
	if strings.TrimSpace(cfg.SnapshotSchedule) == "" {
		return errors.New("billing.snapshotSchedule cannot be empty")
	}
	return nil
}

func normalizeBillingConfig(cfg BillingConfig) BillingConfig {
	if cfg.DefaultWaterPrice <= 0 {
		cfg.DefaultWaterPrice = FallbackWaterPrice
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	cfg.InvoicePrefix = strings.TrimSpace(cfg.InvoicePrefix)
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "WTR"
	}
	return cfg
}
