package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DBType         string
	PostgresURL    string
	MongoURL       string
	MongoDB        string
	MigrationsPath string
	Port           string

	Env       string
	LogLevel  string
	LogFormat string

	// BackendURL is where the reconcile CLI finds the REST API.
	BackendURL        string
	FetchTimeout      time.Duration
	SubmitConcurrency int
	ReportConcurrency int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_type", "postgres")
	v.SetDefault("mongo_db", "shipmentledger")
	v.SetDefault("migrations_path", "file://db/migrations")
	v.SetDefault("port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("backend_url", "http://localhost:8080")
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("submit_concurrency", 8)
	v.SetDefault("report_concurrency", 4)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ttl", "10m")
}

// LoadConfig reads .env (if any) into the environment, then resolves every
// setting from the environment with defaults. An optional config.yaml in the
// working directory is honoured underneath the environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("config.yaml ignored: %v", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		DBType:            strings.ToLower(v.GetString("db_type")),
		PostgresURL:       v.GetString("postgres_url"),
		MongoURL:          v.GetString("mongo_url"),
		MongoDB:           v.GetString("mongo_db"),
		MigrationsPath:    v.GetString("migrations_path"),
		Port:              v.GetString("port"),
		Env:               v.GetString("app_env"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		BackendURL:        strings.TrimRight(v.GetString("backend_url"), "/"),
		FetchTimeout:      v.GetDuration("fetch_timeout"),
		SubmitConcurrency: v.GetInt("submit_concurrency"),
		ReportConcurrency: v.GetInt("report_concurrency"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		RedisTTL:          v.GetDuration("redis_ttl"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.SubmitConcurrency <= 0 {
		cfg.SubmitConcurrency = 8
	}
	if cfg.ReportConcurrency <= 0 {
		cfg.ReportConcurrency = 4
	}
	return cfg
}
