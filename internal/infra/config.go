package infra

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xela07ax/threatwatch-dashboard/internal/synth"
)

// Config — корневая структура конфигурации дашборда.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Reliability ReliabilityConfig `mapstructure:"reliability"`
	Channel     ChannelConfig     `mapstructure:"channel"`
	Fallback    FallbackConfig    `mapstructure:"fallback"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// BackendConfig — адрес сервиса детекции.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	WSPath  string        `mapstructure:"ws_path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// ReliabilityConfig — настройки Retry / Circuit Breaker / Rate Limiter вокруг пулла.
type ReliabilityConfig struct {
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
}

// ChannelConfig — push-канал. Переподключение только по явному согласию.
type ChannelConfig struct {
	Reconnect         bool          `mapstructure:"reconnect"`
	ReconnectAttempts uint          `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// FallbackConfig повторяет synth.Policy.
type FallbackConfig struct {
	Points            int           `mapstructure:"points"`
	Spacing           time.Duration `mapstructure:"spacing"`
	DecayDivisor      uint64        `mapstructure:"decay_divisor"`
	DefaultRate       float64       `mapstructure:"default_rate"`
	CategoryLabels    []string      `mapstructure:"category_labels"`
	CategoryWeights   []float64     `mapstructure:"category_weights"`
	PeriodLabels      []string      `mapstructure:"period_labels"`
	PeriodMultipliers []float64     `mapstructure:"period_multipliers"`
}

type AlertsConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// RedisConfig описывает подключение к Redis (fan-out и внешние запросы обновления).
// Пустой Addr отключает интеграцию.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, console
	File       string `mapstructure:"file"`   // пусто — stderr
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := newViper()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	return decode(v)
}

// newViper настраивает ENV и дефолты. BACKEND_BASE_URL перекроет backend.base_url.
// AutomaticEnv видит только известные ключи, поэтому дефолт задан для каждого ключа Config.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.ws_path", "/ws")
	v.SetDefault("backend.timeout", 10*time.Second)

	v.SetDefault("sync.poll_interval", 30*time.Second)
	v.SetDefault("sync.fetch_timeout", 15*time.Second)

	v.SetDefault("reliability.retry_attempts", 2)
	v.SetDefault("reliability.cb_max_requests", 1)
	v.SetDefault("reliability.cb_interval", time.Minute)
	v.SetDefault("reliability.cb_timeout", 30*time.Second)
	v.SetDefault("reliability.cb_failures", 5)
	v.SetDefault("reliability.rate_limit", 10.0)
	v.SetDefault("reliability.rate_burst", 5)

	v.SetDefault("channel.reconnect", false)
	v.SetDefault("channel.reconnect_attempts", 5)
	v.SetDefault("channel.reconnect_delay", 2*time.Second)

	p := synth.DefaultPolicy()
	v.SetDefault("fallback.points", p.Points)
	v.SetDefault("fallback.spacing", p.Spacing)
	v.SetDefault("fallback.decay_divisor", p.DecayDivisor)
	v.SetDefault("fallback.default_rate", p.DefaultRate)
	v.SetDefault("fallback.category_labels", p.CategoryLabels)
	v.SetDefault("fallback.category_weights", p.CategoryWeights)
	v.SetDefault("fallback.period_labels", p.PeriodLabels)
	v.SetDefault("fallback.period_multipliers", p.PeriodMultipliers)

	v.SetDefault("alerts.capacity", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
}

// Validate отсекает конфигурации, с которыми координатор не сможет работать.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an absolute http(s) URL, got %q", c.Backend.BaseURL))
	}
	if c.Sync.PollInterval <= 0 {
		errs = append(errs, errors.New("sync.poll_interval must be positive"))
	}
	if c.Sync.FetchTimeout <= 0 {
		errs = append(errs, errors.New("sync.fetch_timeout must be positive"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if err := c.Fallback.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("fallback: %w", err))
	}
	return errors.Join(errs...)
}

// Policy собирает политику синтеза. Формат времени не настраивается.
func (f FallbackConfig) Policy() synth.Policy {
	p := synth.DefaultPolicy()
	p.Points = f.Points
	p.Spacing = f.Spacing
	p.DecayDivisor = f.DecayDivisor
	p.DefaultRate = f.DefaultRate
	p.CategoryLabels = f.CategoryLabels
	p.CategoryWeights = f.CategoryWeights
	p.PeriodLabels = f.PeriodLabels
	p.PeriodMultipliers = f.PeriodMultipliers
	return p
}

// ListenAddr — адрес для http.Server.
func (s ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
