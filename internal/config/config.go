package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Database struct {
		PostgresDSN  string `mapstructure:"postgresDSN"`
		AutoMigrate  bool   `mapstructure:"autoMigrate"`
		MaxOpenConns int    `mapstructure:"maxOpenConns"`
	} `mapstructure:"database"`
	NATS struct {
		URL      string         `mapstructure:"url"`
		Dispatch DispatchConfig `mapstructure:"dispatch"`
	} `mapstructure:"nats"`
	WorkerPools struct {
		Dispatch WorkerPoolConfig `mapstructure:"dispatch"`
		Realtime WorkerPoolConfig `mapstructure:"realtime"`
	} `mapstructure:"workerPools"`
	Provider ProviderConfig `mapstructure:"provider"`
	Auth     struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// DispatchConfig describes the outbound dispatch stream and its pull consumer
type DispatchConfig struct {
	Stream          string        `mapstructure:"stream"`
	Subject         string        `mapstructure:"subject"`  // base subject, company id is appended
	Consumer        string        `mapstructure:"consumer"` // durable name
	MaxDeliver      int           `mapstructure:"maxDeliver"`
	NakBaseDelay    time.Duration `mapstructure:"nakBaseDelay"`
	NakMaxDelay     time.Duration `mapstructure:"nakMaxDelay"`
	AckWait         time.Duration `mapstructure:"ackWait"`
	MaxAckPending   int           `mapstructure:"maxAckPending"`
	MaxAgeDays      int           `mapstructure:"maxAgeDays"`
	DuplicateWindow time.Duration `mapstructure:"duplicateWindow"`
	FetchBatch      int           `mapstructure:"fetchBatch"`
}

// WorkerPoolConfig holds configuration for an ants worker pool
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Max blocked submitters
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// ProviderConfig selects and configures the outbound messaging provider
type ProviderConfig struct {
	Driver  string        `mapstructure:"driver"` // evolution | log
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RealtimeConfig tunes websocket client pumps
type RealtimeConfig struct {
	SendBuffer int           `mapstructure:"sendBuffer"`
	WriteWait  time.Duration `mapstructure:"writeWait"`
	PongWait   time.Duration `mapstructure:"pongWait"`
}

// RedisConfig enables the cross-instance realtime relay
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment always wins
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)
	v.SetDefault("database.autoMigrate", true)
	v.SetDefault("database.maxOpenConns", 25)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.dispatch.stream", "WA_CRM_DISPATCH")
	v.SetDefault("nats.dispatch.subject", "v1.dispatch.send")
	v.SetDefault("nats.dispatch.consumer", "wa-crm-dispatcher")
	v.SetDefault("nats.dispatch.maxDeliver", 3)
	v.SetDefault("nats.dispatch.nakBaseDelay", 2*time.Second)
	v.SetDefault("nats.dispatch.nakMaxDelay", time.Minute)
	// ackWait must exceed provider.timeout; the worker re-arms it before each phase of an attempt.
	v.SetDefault("nats.dispatch.ackWait", 30*time.Second)
	v.SetDefault("nats.dispatch.maxAckPending", 1000)
	v.SetDefault("nats.dispatch.maxAgeDays", 7)
	v.SetDefault("nats.dispatch.duplicateWindow", 2*time.Minute)
	v.SetDefault("nats.dispatch.fetchBatch", 20)

	v.SetDefault("workerPools.dispatch.poolSize", 16)
	v.SetDefault("workerPools.dispatch.queueSize", 1000)
	v.SetDefault("workerPools.dispatch.expiryTime", time.Minute)
	v.SetDefault("workerPools.realtime.poolSize", 32)
	v.SetDefault("workerPools.realtime.queueSize", 10000)
	v.SetDefault("workerPools.realtime.expiryTime", time.Minute)

	v.SetDefault("provider.driver", "evolution")
	v.SetDefault("provider.baseURL", "http://localhost:8081")
	v.SetDefault("provider.timeout", 10*time.Second)

	v.SetDefault("realtime.sendBuffer", 64)
	v.SetDefault("realtime.writeWait", 10*time.Second)
	v.SetDefault("realtime.pongWait", 60*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "wa-crm:realtime")

	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.daisi-wa-crm")
	v.AddConfigPath("/etc/daisi-wa-crm")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	overrides := map[string]string{
		"POSTGRES_DSN":      "database.postgresDSN",
		"LOG_LEVEL":         "logLevel",
		"NATS_URL":          "nats.url",
		"JWT_SECRET":        "auth.jwtSecret",
		"EVOLUTION_API_URL": "provider.baseURL",
		"EVOLUTION_API_KEY": "provider.apiKey",
		"REDIS_ADDR":        "redis.addr",
	}
	for env, key := range overrides {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(append([]string{}, parts...), tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
