package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/pricing"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ScheduleConfig is the shop floor throughput used for production-day estimates.
type ScheduleConfig struct {
	UnitsPerHour float64 `mapstructure:"units_per_hour"`
	Workers      float64 `mapstructure:"workers"`
	HoursPerDay  float64 `mapstructure:"hours_per_day"`
	MarginFactor float64 `mapstructure:"margin_factor"`
}

func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		UnitsPerHour: 0.75,
		Workers:      2,
		HoursPerDay:  8,
		MarginFactor: 1.3,
	}
}

// Params converts the config into the values the pricing package works with.
func (c ScheduleConfig) Params() pricing.ScheduleParams {
	return pricing.ScheduleParams{
		UnitsPerHour: decimal.NewFromFloat(c.UnitsPerHour),
		Workers:      decimal.NewFromFloat(c.Workers),
		HoursPerDay:  decimal.NewFromFloat(c.HoursPerDay),
		MarginFactor: decimal.NewFromFloat(c.MarginFactor),
	}
}

type ScheduleHolder struct {
	current atomic.Value // holds ScheduleConfig
}

// NewStaticScheduleHolder returns a holder that never reloads.
func NewStaticScheduleHolder(cfg ScheduleConfig) *ScheduleHolder {
	holder := &ScheduleHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewScheduleHolder(appCfg Config, log *zap.Logger) (*ScheduleHolder, error) {
	log = log.Named("config.schedule")
	v := viper.New()

	v.SetConfigName("schedule")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/doorcalc")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DOORCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultScheduleConfig()
	v.SetDefault("schedule.units_per_hour", defaults.UnitsPerHour)
	v.SetDefault("schedule.workers", defaults.Workers)
	v.SetDefault("schedule.hours_per_day", defaults.HoursPerDay)
	v.SetDefault("schedule.margin_factor", defaults.MarginFactor)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg ScheduleConfig
	if err := v.UnmarshalKey("schedule", &cfg); err != nil {
		return nil, err
	}
	if err := validateScheduleConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticScheduleHolder(cfg)
	if !fileFound || !appCfg.ScheduleWatch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ScheduleConfig
		if err := v.UnmarshalKey("schedule", &updated); err != nil {
			log.Warn("schedule reload failed", zap.Error(err))
			return
		}
		if err := validateScheduleConfig(updated); err != nil {
			log.Warn("invalid schedule ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("schedule reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ScheduleHolder) Get() ScheduleConfig {
	return h.current.Load().(ScheduleConfig)
}

func validateScheduleConfig(cfg ScheduleConfig) error {
	if cfg.UnitsPerHour <= 0 {
		return errors.New("schedule.units_per_hour must be positive")
	}
	if cfg.Workers <= 0 {
		return errors.New("schedule.workers must be positive")
	}
	if cfg.HoursPerDay <= 0 {
		return errors.New("schedule.hours_per_day must be positive")
	}
	if cfg.MarginFactor <= 0 {
		return errors.New("schedule.margin_factor must be positive")
	}
	return nil
}
