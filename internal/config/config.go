package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the plan service and the CLI.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Charts    ChartsConfig    `mapstructure:"charts"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	MIS       MISConfig       `mapstructure:"mis"`
	Roles     []RolePreset    `mapstructure:"roles"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DBConfig describes the platform database. Driver is "postgres" or "sqlite".
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the connection string for the configured driver.
func (c DBConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig selects the cache backend: "memory" (go-cache) or "redis".
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// StorageConfig points file fields at an S3-compatible bucket.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseTLS    bool   `mapstructure:"use_tls"`
}

type ChartsConfig struct {
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// MISConfig controls the background probe of external databases. A zero
// interval disables it.
type MISConfig struct {
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
}

// RolePreset is a platform role ensured by `plpctl ensure-roles`.
type RolePreset struct {
	ShortName    string   `mapstructure:"shortname"`
	Name         string   `mapstructure:"name"`
	Capabilities []string `mapstructure:"capabilities"`
}

// DefaultRoles are provisioned when the config file carries no roles section.
var DefaultRoles = []RolePreset{
	{
		ShortName: "plp_tutor",
		Name:      "PLP Tutor",
		Capabilities: []string{
			"local/plp:view",
			"local/plp:viewrestricted",
			"local/plp:edit",
		},
	},
	{
		ShortName: "plp_student",
		Name:      "PLP Student",
		Capabilities: []string{
			"local/plp:view",
			"local/plp:viewprivate",
			"local/plp:edit",
		},
	},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"https://*", "http://localhost:8081"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "plp")
	v.SetDefault("db.name", "plp")
	v.SetDefault("db.path", "plp.db")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.default_ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	// keys without a default are invisible to Unmarshal when set only via env
	v.SetDefault("db.password", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_tls", false)
	v.SetDefault("storage.bucket", "plp-files")

	v.SetDefault("charts.width", 640)
	v.SetDefault("charts.height", 400)
	v.SetDefault("charts.cache_ttl", 5*time.Minute)

	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("mis.monitor_interval", 5*time.Minute)
	v.SetDefault("mis.probe_timeout", 10*time.Second)
}

// Load reads config.yaml from the given directories (then "." and /etc/plp) and
// overlays PLP_* environment variables, e.g. PLP_DB_HOST.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/plp")

	v.SetEnvPrefix("PLP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if len(cfg.Roles) == 0 {
		cfg.Roles = DefaultRoles
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported db.driver %q", cfg.DB.Driver)
	}

	return &cfg, nil
}
