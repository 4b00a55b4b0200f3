package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

// Storage selects the base store of the bus: memory, leveldb or postgres.
type Storage struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	conn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
	if config.MaxConns > 0 {
		conn += fmt.Sprintf(" pool_max_conns=%d", config.MaxConns)
	}
	return conn
}

type Address struct {
	Prefix string `mapstructure:"prefix"`
}

// FeedPair maps a denom pair onto rates API currency codes.
type FeedPair struct {
	BaseDenom  string `mapstructure:"base_denom"`
	QuoteDenom string `mapstructure:"quote_denom"`
	BaseCode   string `mapstructure:"base_code"`
	QuoteCode  string `mapstructure:"quote_code"`
}

// StaticPrice is pushed to the currency hub once at startup.
type StaticPrice struct {
	BaseDenom      string `mapstructure:"base_denom"`
	QuoteDenom     string `mapstructure:"quote_denom"`
	ArithmeticTwap string `mapstructure:"arithmetic_twap"`
}

type RatesAPI struct {
	BaseURL string `mapstructure:"base_url"`
}

type QuoteCache struct {
	MaxItems   int64 `mapstructure:"max_items"`
	TTLSeconds int   `mapstructure:"ttl_seconds"`
}

type Oracle struct {
	Feeder          string        `mapstructure:"feeder"`
	Pairs           []FeedPair    `mapstructure:"pairs"`
	Prices          []StaticPrice `mapstructure:"prices"`
	IntervalSeconds int           `mapstructure:"interval_seconds"`
	RatesAPI        RatesAPI      `mapstructure:"rates_api"`
	Cache           QuoteCache    `mapstructure:"cache"`
}

type Relay struct {
	QueryDenom string `mapstructure:"query_denom"`
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type AppConfig struct {
	HTTPServer HTTPServer `mapstructure:"http_server"`
	Logging    Logging    `mapstructure:"logging"`
	Storage    Storage    `mapstructure:"storage"`
	DbServer   DbServer   `mapstructure:"db_server"`
	Address    Address    `mapstructure:"address"`
	Oracle     Oracle     `mapstructure:"oracle"`
	Relay      Relay      `mapstructure:"relay"`
	HTTPClient HTTPClient `mapstructure:"http_client"`
}

// Init reads path (config.yaml when empty) on top of the defaults. A missing
// .env file is not an error.
func Init(path string) (*AppConfig, error) {
	var cfg AppConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_server.port", "8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", "data/fxrelay")
	v.SetDefault("db_server.max_conns", 10)
	v.SetDefault("address.prefix", "wasm")
	v.SetDefault("oracle.feeder", "feeder")
	v.SetDefault("oracle.interval_seconds", 30)
	v.SetDefault("oracle.cache.max_items", 1000)
	v.SetDefault("oracle.cache.ttl_seconds", 60)
	v.SetDefault("relay.query_denom", "uatom")
	v.SetDefault("http_client.timeout_seconds", 10)
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("http_server.port", "HTTP_PORT")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = v.BindEnv("storage.path", "STORAGE_PATH")

	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	_ = v.BindEnv("oracle.rates_api.base_url", "RATES_API_BASE_URL")

	// http client env vars
	_ = v.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")
}

func (c *AppConfig) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "memory", "leveldb", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "leveldb" && c.Storage.Path == "" {
		return errors.New("storage.path is required for leveldb")
	}
	if c.Address.Prefix == "" {
		return errors.New("address.prefix is required")
	}
	for i, p := range c.Oracle.Pairs {
		if p.BaseDenom == "" || p.QuoteDenom == "" || p.BaseCode == "" || p.QuoteCode == "" {
			return fmt.Errorf("oracle.pairs[%d]: denoms and codes are required", i)
		}
	}
	if len(c.Oracle.Pairs) > 0 && c.Oracle.RatesAPI.BaseURL == "" {
		return errors.New("oracle.rates_api.base_url is required when pairs are configured")
	}
	return nil
}
