package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"derivbot/internal/models"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	bybitAPIKeyENV    = "BYBIT_API_KEY"
	bybitAPISecretENV = "BYBIT_API_SECRET"
)

// Config — единый неизменяемый снимок настроек процесса. Источники по старшинству:
// env поверх yaml поверх дефолтов. После NewConfig никто его не мутирует.
type Config struct {
	Service struct {
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	DB string `yaml:"db_dsn"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Bybit struct {
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
		BaseURL    string `yaml:"base_url"`
		WSURL      string `yaml:"ws_url"`
		Category   string `yaml:"category"` // linear
		RecvWindow int    `yaml:"recv_window"`
	} `yaml:"bybit"`

	Engine struct {
		Symbols             []string `yaml:"symbols"`
		Timeframe           string   `yaml:"timeframe"`
		ConfidenceThreshold float64  `yaml:"confidence_threshold"`
		StatusFile          string   `yaml:"status_file"`
		WarmupCandles       int      `yaml:"warmup_candles"`

		// длительности — только из env (yaml.v2 не разбирает "60s" в Duration)
		MonitorInterval time.Duration `yaml:"-"`
	} `yaml:"engine"`

	Risk struct {
		MaxLeverage        float64 `yaml:"max_leverage"`
		MaxPositionSizePct float64 `yaml:"max_position_size_pct"`
		MaxDailyLossPct    float64 `yaml:"max_daily_loss_pct"`
		MaxDrawdownPct     float64 `yaml:"max_drawdown_pct"`
		MaxOpenPositions   int     `yaml:"max_open_positions"`
		StopLossPct        float64 `yaml:"stop_loss_pct"`
		TakeProfitPct      float64 `yaml:"take_profit_pct"`
		MinRiskPerTradePct float64 `yaml:"min_risk_per_trade_pct"`
		MaxRiskPerTradePct float64 `yaml:"max_risk_per_trade_pct"`

		VolTargetingEnabled bool    `yaml:"vol_targeting_enabled"`
		TargetVolatility    float64 `yaml:"target_volatility"`
		MaxVolMultiplier    float64 `yaml:"max_vol_multiplier"`
	} `yaml:"risk"`

	Guard struct {
		RollingWindowTrades int     `yaml:"rolling_window_trades"`
		WinRateReduced      float64 `yaml:"win_rate_reduced"`
		DrawdownReduced     float64 `yaml:"drawdown_reduced"`
		LosingStreakReduced int     `yaml:"losing_streak_reduced"`
		WinRatePaused       float64 `yaml:"win_rate_paused"`
		DrawdownPaused      float64 `yaml:"drawdown_paused"`
		LosingStreakPaused  int     `yaml:"losing_streak_paused"`
		RecoveryWinRate     float64 `yaml:"recovery_win_rate"`
		RecoveryDrawdown    float64 `yaml:"recovery_drawdown"`

		// MinTrades — минимум сделок в окне, раньше которого win rate не трогаем
		MinTrades int `yaml:"min_trades"`
	} `yaml:"guard"`

	Regime struct {
		ADXPeriod           int     `yaml:"adx_period"`
		ADXThreshold        float64 `yaml:"adx_threshold"`
		ATRPeriod           int     `yaml:"atr_period"`
		ATRMeanWindow       int     `yaml:"atr_mean_window"`
		VolatilityThreshold float64 `yaml:"volatility_threshold"`
		HighVolMultiplier   float64 `yaml:"high_vol_multiplier"`
		AllowRanging        bool    `yaml:"allow_ranging"`
		TrendEMAPeriod      int     `yaml:"trend_ema_period"`
		MomentumWindow      int     `yaml:"momentum_window"`
		MomentumThreshold   float64 `yaml:"momentum_threshold"`
	} `yaml:"regime"`

	Queue struct {
		TTL        time.Duration `yaml:"-"`
		MaxPending int           `yaml:"max_pending"`
	} `yaml:"queue"`

	Signals struct {
		EMAFast       int     `yaml:"ema_fast"`
		EMASlow       int     `yaml:"ema_slow"`
		RSIPeriod     int     `yaml:"rsi_period"`
		RSIOversold   float64 `yaml:"rsi_oversold"`
		RSIOverbought float64 `yaml:"rsi_overbought"`

		// как часто репортить прогресс прогрева — только из env
		WarmupProgressEvery time.Duration `yaml:"-"`
	} `yaml:"signals"`

	KillSwitch struct {
		APIErrorThreshold int           `yaml:"api_error_threshold"`
		APIErrorWindow    time.Duration `yaml:"-"`
	} `yaml:"kill_switch"`
}

func NewConfig() (*Config, error) {
	config := defaults()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	// секреты всегда можно переопределить окружением
	if v := os.Getenv(tokenTelegramENV); v != "" {
		config.Telegram.Token = v
	}
	if v := os.Getenv(databaseDSN); v != "" {
		config.DB = v
	}
	if v := os.Getenv(bybitAPIKeyENV); v != "" {
		config.Bybit.APIKey = v
	}
	if v := os.Getenv(bybitAPISecretENV); v != "" {
		config.Bybit.APISecret = v
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	c := &Config{}

	c.Service.Host = getenvDefault("SERVICE_HOST", "0.0.0.0")
	c.Service.AdminPort = intFromEnv("ADMIN_PORT", 8080)

	c.Bybit.BaseURL = getenvDefault("BYBIT_BASE_URL", "https://api.bybit.com")
	c.Bybit.WSURL = getenvDefault("BYBIT_WS_URL", "wss://stream.bybit.com/v5/public/linear")
	c.Bybit.Category = getenvDefault("BYBIT_CATEGORY", "linear")
	c.Bybit.RecvWindow = intFromEnv("BYBIT_RECV_WINDOW", 5000)

	c.Engine.Symbols = []string{"BTCUSDT"}
	c.Engine.Timeframe = getenvDefault("TIMEFRAME", "5m")
	c.Engine.MonitorInterval = durationFromEnv("MONITOR_INTERVAL", "60s")
	c.Engine.ConfidenceThreshold = floatFromEnv("CONFIDENCE_THRESHOLD", 0.60)
	c.Engine.StatusFile = getenvDefault("STATUS_FILE", "logs/health_status.json")
	c.Engine.WarmupCandles = intFromEnv("WARMUP_CANDLES", 120)

	c.Risk.MaxLeverage = floatFromEnv("MAX_LEVERAGE", 3.0)
	c.Risk.MaxPositionSizePct = floatFromEnv("MAX_POSITION_SIZE_PCT", 0.10)
	c.Risk.MaxDailyLossPct = floatFromEnv("MAX_DAILY_LOSS_PCT", 0.05)
	c.Risk.MaxDrawdownPct = floatFromEnv("MAX_DRAWDOWN_PCT", 0.15)
	c.Risk.MaxOpenPositions = intFromEnv("MAX_OPEN_POSITIONS", 3)
	c.Risk.StopLossPct = floatFromEnv("STOP_LOSS_PCT", 0.02)
	c.Risk.TakeProfitPct = floatFromEnv("TAKE_PROFIT_PCT", 0.03)
	c.Risk.MinRiskPerTradePct = floatFromEnv("MIN_RISK_PER_TRADE_PCT", 0.009)
	c.Risk.MaxRiskPerTradePct = floatFromEnv("MAX_RISK_PER_TRADE_PCT", 0.02)
	c.Risk.VolTargetingEnabled = boolFromEnv("VOL_TARGETING_ENABLED", true)
	c.Risk.TargetVolatility = floatFromEnv("TARGET_VOLATILITY", 0.01)
	c.Risk.MaxVolMultiplier = floatFromEnv("MAX_VOL_MULTIPLIER", 2.0)

	c.Guard.RollingWindowTrades = intFromEnv("GUARD_ROLLING_WINDOW", 10)
	c.Guard.WinRateReduced = 0.40
	c.Guard.DrawdownReduced = 0.05
	c.Guard.LosingStreakReduced = 5
	c.Guard.WinRatePaused = 0.30
	c.Guard.DrawdownPaused = 0.10
	c.Guard.LosingStreakPaused = 10
	c.Guard.RecoveryWinRate = 0.45
	c.Guard.RecoveryDrawdown = 0.05
	c.Guard.MinTrades = 5

	c.Regime.ADXPeriod = intFromEnv("ADX_PERIOD", 14)
	c.Regime.ADXThreshold = floatFromEnv("ADX_THRESHOLD", 25)
	c.Regime.ATRPeriod = intFromEnv("ATR_PERIOD", 14)
	c.Regime.ATRMeanWindow = intFromEnv("ATR_MEAN_WINDOW", 20)
	c.Regime.VolatilityThreshold = floatFromEnv("VOLATILITY_THRESHOLD", 2.0)
	c.Regime.HighVolMultiplier = floatFromEnv("HIGH_VOL_MULTIPLIER", 0.5)
	c.Regime.AllowRanging = boolFromEnv("ALLOW_RANGING", false)
	c.Regime.TrendEMAPeriod = intFromEnv("TREND_EMA_PERIOD", 50)
	c.Regime.MomentumWindow = intFromEnv("MOMENTUM_WINDOW", 10)
	c.Regime.MomentumThreshold = floatFromEnv("MOMENTUM_THRESHOLD", 0.02)

	c.Queue.TTL = durationFromEnv("SIGNAL_TTL", "1h")
	c.Queue.MaxPending = intFromEnv("QUEUE_MAX_PENDING", 100)

	c.Signals.EMAFast = intFromEnv("EMA_FAST", 9)
	c.Signals.EMASlow = intFromEnv("EMA_SLOW", 21)
	c.Signals.RSIPeriod = intFromEnv("RSI_PERIOD", 14)
	c.Signals.RSIOversold = floatFromEnv("RSI_OVERSOLD", 30)
	c.Signals.RSIOverbought = floatFromEnv("RSI_OVERBOUGHT", 70)
	c.Signals.WarmupProgressEvery = durationFromEnv("WARMUP_PROGRESS_EVERY", "30s")

	c.KillSwitch.APIErrorThreshold = intFromEnv("KS_API_ERROR_THRESHOLD", 10)
	c.KillSwitch.APIErrorWindow = durationFromEnv("KS_API_ERROR_WINDOW", "5m")

	return c
}

func (c *Config) validate() error {
	if c.Risk.MinRiskPerTradePct <= 0 || c.Risk.MaxRiskPerTradePct < c.Risk.MinRiskPerTradePct {
		return fmt.Errorf("risk band invalid: min=%v max=%v", c.Risk.MinRiskPerTradePct, c.Risk.MaxRiskPerTradePct)
	}
	if c.Risk.StopLossPct <= 0 {
		return fmt.Errorf("stop_loss_pct must be positive, got %v", c.Risk.StopLossPct)
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("max_open_positions must be positive, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Guard.RollingWindowTrades <= 0 {
		return fmt.Errorf("guard rolling window must be positive, got %d", c.Guard.RollingWindowTrades)
	}
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold out of [0,1]: %v", c.Engine.ConfidenceThreshold)
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols is empty")
	}
	if c.Queue.TTL <= 0 {
		return fmt.Errorf("queue ttl must be positive, got %v", c.Queue.TTL)
	}
	return nil
}

// RiskLimits — снимок лимитов для компонентов риска.
func (c *Config) RiskLimits() models.RiskLimits {
	return models.RiskLimits{
		MaxLeverage:        c.Risk.MaxLeverage,
		MaxPositionSizePct: c.Risk.MaxPositionSizePct,
		MaxDailyLossPct:    c.Risk.MaxDailyLossPct,
		MaxDrawdownPct:     c.Risk.MaxDrawdownPct,
		MaxOpenPositions:   c.Risk.MaxOpenPositions,
		StopLossPct:        c.Risk.StopLossPct,
		TakeProfitPct:      c.Risk.TakeProfitPct,
		MinRiskPerTradePct: c.Risk.MinRiskPerTradePct,
		MaxRiskPerTradePct: c.Risk.MaxRiskPerTradePct,
	}
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
