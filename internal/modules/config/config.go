package config

import (
	"os"
	"strings"
	"tier_bot/internal/models"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	envPrefix         = "TIERBOT"
)

// ErrConfiguration: конфиг не годится для старта, дальше не идём.
var ErrConfiguration = errors.New("configuration error")

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	FailOpen   = "open"
	FailClosed = "closed"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB         string `yaml:"db_dsn"`
	DBMaxConns int32  `yaml:"db_max_conns"` // 0: дефолт pgxpool
	Storage    string `yaml:"storage"`      // memory | postgres
	Service struct {
		Name      string `yaml:"name"`
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tracing"`

	Engine  Engine  `yaml:"engine"`
	Runner  Runner  `yaml:"runner"`
	Session Session `yaml:"session"`

	// стартовые позиции для storage: memory
	Holdings []models.Holding `yaml:"holdings"`
}

type Engine struct {
	// profit_rise | threshold_cross | time_window
	CooldownPolicy      string        `yaml:"cooldown_policy"`
	ProfitRiseEpsilon   float64       `yaml:"profit_rise_epsilon"` // п.п., 0.1 => 0.1%
	CooldownWindow      time.Duration `yaml:"cooldown_window"`
	SellLockTTL         time.Duration `yaml:"sell_lock_ttl"`
	BuyLockTTL          time.Duration `yaml:"buy_lock_ttl"`
	LockShards          int           `yaml:"lock_shards"`
	PersistenceFailMode string        `yaml:"persistence_fail_mode"` // open | closed
	ScoreBase           int           `yaml:"score_base"`
	ScoreStep           int           `yaml:"score_step"`
	MaxSellsPerSession  int           `yaml:"max_sells_per_session"` // 0 = без лимита
	Tiers               []models.Tier `yaml:"tiers"`
}

type Runner struct {
	MaxParallel int `yaml:"max_parallel"`
	TickBuffer  int `yaml:"tick_buffer"`
}

type Session struct {
	OpenAt     string  `yaml:"open_at"` // "09:00", пусто: без расписания
	Timezone   string  `yaml:"timezone"`
	Portfolios []int64 `yaml:"portfolios"`
}

// Default: значения до чтения файла.
func Default() Config {
	cfg := Config{
		Storage: StorageMemory,
		Engine: Engine{
			CooldownPolicy:      "profit_rise",
			ProfitRiseEpsilon:   0.1,
			CooldownWindow:      30 * time.Minute,
			SellLockTTL:         30 * time.Second,
			BuyLockTTL:          60 * time.Second,
			LockShards:          16,
			PersistenceFailMode: FailOpen,
			ScoreBase:           70,
			ScoreStep:           5,
			Tiers: []models.Tier{
				{ThresholdPct: 1.6, SellRatio: 0.3},
				{ThresholdPct: 2.1, SellRatio: 0.3},
				{ThresholdPct: 2.6, SellRatio: 0.4},
			},
		},
		Runner: Runner{
			MaxParallel: 8,
			TickBuffer:  1024,
		},
		Session: Session{
			Timezone: "Asia/Seoul",
		},
	}
	cfg.Service.Name = "tier_bot"
	cfg.Service.AdminPort = 8080
	cfg.Log.Level = "info"
	return cfg
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = "configs"
	}
	return Load(dir + "/" + configFileName)
}

// Load читает yaml, накладывает env и валидирует.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config file %s", path)
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	// в yaml тиры заменяют дефолтные целиком
	config.Engine.Tiers = nil
	if err = yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}
	if len(config.Engine.Tiers) == 0 {
		config.Engine.Tiers = Default().Engine.Tiers
	}

	applyEnv(&config, newEnv())

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func newEnv() *viper.Viper {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	env.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	env.AutomaticEnv()
	return env
}

// applyEnv: TIERBOT_ENGINE_COOLDOWN_POLICY=time_window и т.п.
func applyEnv(config *Config, env *viper.Viper) {
	if env.IsSet("storage") {
		config.Storage = env.GetString("storage")
	}
	if env.IsSet("service.admin_port") {
		config.Service.AdminPort = env.GetInt("service.admin_port")
	}
	if env.IsSet("log.level") {
		config.Log.Level = env.GetString("log.level")
	}
	if env.IsSet("tracing.host") {
		config.Tracing.Host = env.GetString("tracing.host")
	}
	if env.IsSet("engine.cooldown_policy") {
		config.Engine.CooldownPolicy = env.GetString("engine.cooldown_policy")
	}
	if env.IsSet("engine.profit_rise_epsilon") {
		config.Engine.ProfitRiseEpsilon = env.GetFloat64("engine.profit_rise_epsilon")
	}
	if env.IsSet("engine.cooldown_window") {
		config.Engine.CooldownWindow = env.GetDuration("engine.cooldown_window")
	}
	if env.IsSet("engine.sell_lock_ttl") {
		config.Engine.SellLockTTL = env.GetDuration("engine.sell_lock_ttl")
	}
	if env.IsSet("engine.persistence_fail_mode") {
		config.Engine.PersistenceFailMode = env.GetString("engine.persistence_fail_mode")
	}
	if env.IsSet("engine.max_sells_per_session") {
		config.Engine.MaxSellsPerSession = env.GetInt("engine.max_sells_per_session")
	}
	if env.IsSet("runner.max_parallel") {
		config.Runner.MaxParallel = env.GetInt("runner.max_parallel")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
}

// Validate проверяет то, что не зависит от пакетов движка.
// Пороги и доли тиров окончательно проверяет tiers.NewTable.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DB == "" {
			return errors.Wrap(ErrConfiguration, "storage postgres requires db_dsn")
		}
	default:
		return errors.Wrapf(ErrConfiguration, "unknown storage %q", c.Storage)
	}

	switch c.Engine.CooldownPolicy {
	case "profit_rise", "threshold_cross", "time_window":
	default:
		return errors.Wrapf(ErrConfiguration, "unknown cooldown_policy %q", c.Engine.CooldownPolicy)
	}
	if len(c.Engine.Tiers) == 0 {
		return errors.Wrap(ErrConfiguration, "engine.tiers are empty")
	}

	switch c.Engine.PersistenceFailMode {
	case FailOpen, FailClosed:
	default:
		return errors.Wrapf(ErrConfiguration, "unknown persistence_fail_mode %q", c.Engine.PersistenceFailMode)
	}

	if c.Engine.SellLockTTL <= 0 || c.Engine.BuyLockTTL <= 0 {
		return errors.Wrap(ErrConfiguration, "lock ttl must be > 0")
	}
	if c.Engine.ProfitRiseEpsilon < 0 {
		return errors.Wrap(ErrConfiguration, "profit_rise_epsilon must be >= 0")
	}
	if c.Engine.MaxSellsPerSession < 0 {
		return errors.Wrap(ErrConfiguration, "max_sells_per_session must be >= 0")
	}
	if c.Runner.MaxParallel <= 0 {
		c.Runner.MaxParallel = 1
	}
	if c.Session.OpenAt != "" {
		if _, err := time.Parse("15:04", c.Session.OpenAt); err != nil {
			return errors.Wrapf(ErrConfiguration, "session.open_at %q: %v", c.Session.OpenAt, err)
		}
		if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
			return errors.Wrapf(ErrConfiguration, "session.timezone %q: %v", c.Session.Timezone, err)
		}
	}
	return nil
}
