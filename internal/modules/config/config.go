package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"capital_tracker/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	DB string `mapstructure:"db_dsn"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	Service struct {
		HealthAddr string `mapstructure:"health_addr"`
	} `mapstructure:"service"`

	Jaeger struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`

	Fetcher struct {
		BaseURL   string        `mapstructure:"base_url"`
		WSURL     string        `mapstructure:"ws_url"`
		Timeout   time.Duration `mapstructure:"timeout"`
		PingEvery time.Duration `mapstructure:"ping_every"`
	} `mapstructure:"fetcher"`

	Runner struct {
		SymbolsFile string `mapstructure:"symbols_file"`
		Parallelism int    `mapstructure:"parallelism"`
	} `mapstructure:"runner"`

	Analysis Analysis `mapstructure:"analysis"`
}

// Analysis — пороги конвейера. Читаются один раз на старте, дальше
// только на чтение, сессии могут шарить один экземпляр.
type Analysis struct {
	WindowSec          int     `mapstructure:"window_sec"`
	SyntheticThreshold float64 `mapstructure:"synthetic_threshold"`
	BigOrderThreshold  float64 `mapstructure:"big_order_threshold"`
	WallThreshold      int64   `mapstructure:"wall_threshold"`
	MAPeriods          []int   `mapstructure:"ma_periods"`
	PriceBins          int     `mapstructure:"price_bins"`
	ValidationDistance float64 `mapstructure:"validation_distance"`

	// Пороги детекции алгоритмической нарезки. Унаследованы от исходной
	// модели: сравнивается variance/mean, а не std/mean. Поведение
	// сохранено, пороги вынесены в конфиг для перенастройки.
	TWAPIntervalVariance float64 `mapstructure:"twap_interval_variance"`
	VWAPAmountCV         float64 `mapstructure:"vwap_amount_cv"`

	// Допуск расхождения amount и price*volume*lot_size (доля), сверх — счётчик.
	AmountTolerance float64 `mapstructure:"amount_tolerance"`
	LotSize         int     `mapstructure:"lot_size"`

	WeightOverrides map[string]float64 `mapstructure:"weight_map"`
}

// Weights — карта весов: дефолты плюс переопределения из конфига.
// viper отдаёт ключи карты в нижнем регистре, ключи весов — в верхнем.
func (a Analysis) Weights() models.WeightMap {
	w := models.DefaultWeights()
	for k, v := range a.WeightOverrides {
		w[strings.ToUpper(k)] = v
	}
	return w
}

func (a Analysis) Window() time.Duration {
	return time.Duration(a.WindowSec) * time.Second
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}

	v := viper.New()
	v.SetConfigFile("configs/" + configFileName)
	v.SetConfigType("yaml")

	v.SetDefault("service.health_addr", ":8080")
	v.SetDefault("fetcher.timeout", "10s")
	v.SetDefault("fetcher.ping_every", "20s")
	v.SetDefault("runner.symbols_file", "configs/symbols.yaml")
	v.SetDefault("runner.parallelism", 4)

	v.SetDefault("analysis.window_sec", 30)
	v.SetDefault("analysis.synthetic_threshold", 500000)
	v.SetDefault("analysis.big_order_threshold", 100000)
	v.SetDefault("analysis.wall_threshold", 10000)
	v.SetDefault("analysis.ma_periods", []int{5, 10, 20})
	v.SetDefault("analysis.price_bins", 100)
	v.SetDefault("analysis.validation_distance", 0.20)
	v.SetDefault("analysis.twap_interval_variance", 1.0)
	v.SetDefault("analysis.vwap_amount_cv", 0.3)
	v.SetDefault("analysis.amount_tolerance", 0.01)
	v.SetDefault("analysis.lot_size", 100)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configFileName, err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate — ошибки конфигурации фатальны на старте.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.WindowSec <= 0 {
		return fmt.Errorf("analysis.window_sec must be positive, got %d", a.WindowSec)
	}
	if a.SyntheticThreshold < 0 {
		return fmt.Errorf("analysis.synthetic_threshold must not be negative, got %f", a.SyntheticThreshold)
	}
	if a.BigOrderThreshold < 0 {
		return fmt.Errorf("analysis.big_order_threshold must not be negative, got %f", a.BigOrderThreshold)
	}
	if a.WallThreshold < 0 {
		return fmt.Errorf("analysis.wall_threshold must not be negative, got %d", a.WallThreshold)
	}
	if a.PriceBins <= 0 {
		return fmt.Errorf("analysis.price_bins must be positive, got %d", a.PriceBins)
	}
	if a.ValidationDistance <= 0 {
		return fmt.Errorf("analysis.validation_distance must be positive, got %f", a.ValidationDistance)
	}
	if a.LotSize <= 0 {
		return fmt.Errorf("analysis.lot_size must be positive, got %d", a.LotSize)
	}
	if len(a.MAPeriods) == 0 {
		return fmt.Errorf("analysis.ma_periods must not be empty")
	}
	for _, p := range a.MAPeriods {
		if p <= 0 {
			return fmt.Errorf("analysis.ma_periods entries must be positive, got %d", p)
		}
	}
	for k, w := range a.WeightOverrides {
		if w < 0 || w > 2 {
			return fmt.Errorf("analysis.weight_map[%s] out of range [0,2]: %f", k, w)
		}
	}
	if c.Runner.Parallelism <= 0 {
		return fmt.Errorf("runner.parallelism must be positive, got %d", c.Runner.Parallelism)
	}
	return nil
}
