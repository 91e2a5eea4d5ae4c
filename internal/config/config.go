package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env       string
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"app"`

	GRPC struct {
		Addr     string
		APIToken string `mapstructure:"api_token"`
	} `mapstructure:"grpc"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres PostgresConfig `mapstructure:"postgres"`

	Pricing struct {
		// Empty disables seeding of a default markup rule
		DefaultMarkupPercent string `mapstructure:"default_markup_percent"`
		MaxParallel          int    `mapstructure:"max_parallel"`
	} `mapstructure:"pricing"`
}

// PostgresConfig holds either a full DSN or its parts
type PostgresConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString returns the DSN, building it from the individual parts when it is not set
func (c PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// DefaultMarkup parses the configured default markup percent; nil when unset
func (c Config) DefaultMarkup() (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Pricing.DefaultMarkupPercent)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid pricing.default_markup_percent %q: %w", raw, err)
	}
	return &d, nil
}

// Load reads an optional config file and applies environment overrides.
// Every key can be set as QUOTEFLOW_<SECTION>_<KEY>; the DB_* and API_TOKEN
// variables of the docker setup are honoured as well.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUOTEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		"postgres.dsn":      "DB_CONN_STR",
		"postgres.host":     "DB_HOST",
		"postgres.port":     "DB_PORT",
		"postgres.user":     "DB_USER",
		"postgres.password": "DB_PASSWORD",
		"postgres.name":     "DB_NAME",
		"grpc.api_token":    "API_TOKEN",
	}
	for key, env := range aliases {
		if err := v.BindEnv(key, "QUOTEFLOW_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, err
		}
	}

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("grpc.addr", ":8080")
	v.SetDefault("grpc.api_token", "dev-token")
	v.SetDefault("http.addr", ":9090")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.name", "quoteflow")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("pricing.default_markup_percent", "")
	v.SetDefault("pricing.max_parallel", 8)
}
