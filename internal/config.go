package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Zengin        ZenginConfig        `mapstructure:"zengin"`
	Export        ExportConfig        `mapstructure:"export"`
	Subsidy       SubsidyConfig       `mapstructure:"subsidy"`
	Application   ApplicationConfig   `mapstructure:"application"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPISpecPath   string        `mapstructure:"openapi_spec_path"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m"`
	BCryptCost          int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// RedisConfig is optional. An empty Addr disables the Redis backed batch id
// sequence and the random generator is used instead.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig is optional. With no brokers configured, submission
// notifications are written to the log.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	NotificationTopic string   `mapstructure:"notification_topic"`
}

// ZenginConfig is the sender profile printed on the header record of every
// transfer file.
type ZenginConfig struct {
	SenderCode       string `mapstructure:"sender_code"`
	SenderName       string `mapstructure:"sender_name"`
	BankCode         string `mapstructure:"bank_code"`
	BankName         string `mapstructure:"bank_name"`
	BranchCode       string `mapstructure:"branch_code"`
	BranchName       string `mapstructure:"branch_name"`
	AccountType      string `mapstructure:"account_type"`
	AccountNumber    string `mapstructure:"account_number"`
	TransferLeadDays int    `mapstructure:"transfer_lead_days"`
}

type ExportConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type SubsidyConfig struct {
	Rate      string `mapstructure:"rate"`
	MaxAmount int64  `mapstructure:"max_amount"`
}

type ApplicationConfig struct {
	NumberPrefix string `mapstructure:"number_prefix"`
	MaxAgeDays   int    `mapstructure:"max_age_days"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadConfigFromEnv builds the configuration from plain environment variables.
// Used by container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			OpenAPISpecPath:   getEnv("HTTP_OPENAPI_SPEC_PATH", "api/openapi.yml"),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			AccessTokenDuration: getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute),
			BCryptCost:          getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvAsList("KAFKA_BROKERS"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "reimbursement.application.submitted"),
		},
		Zengin: ZenginConfig{
			SenderCode:       getEnv("ZENGIN_SENDER_CODE", ""),
			SenderName:       getEnv("ZENGIN_SENDER_NAME", ""),
			BankCode:         getEnv("ZENGIN_BANK_CODE", ""),
			BankName:         getEnv("ZENGIN_BANK_NAME", ""),
			BranchCode:       getEnv("ZENGIN_BRANCH_CODE", ""),
			BranchName:       getEnv("ZENGIN_BRANCH_NAME", ""),
			AccountType:      getEnv("ZENGIN_ACCOUNT_TYPE", "1"),
			AccountNumber:    getEnv("ZENGIN_ACCOUNT_NUMBER", ""),
			TransferLeadDays: getEnvAsInt("ZENGIN_TRANSFER_LEAD_DAYS", 1),
		},
		Export: ExportConfig{
			Workers:   getEnvAsInt("EXPORT_WORKERS", 4),
			QueueSize: getEnvAsInt("EXPORT_QUEUE_SIZE", 16),
		},
		Subsidy: SubsidyConfig{
			Rate:      getEnv("SUBSIDY_RATE", "1"),
			MaxAmount: int64(getEnvAsInt("SUBSIDY_MAX_AMOUNT", 0)),
		},
		Application: ApplicationConfig{
			NumberPrefix: getEnv("APPLICATION_NUMBER_PREFIX", "EXP"),
			MaxAgeDays:   getEnvAsInt("APPLICATION_MAX_AGE_DAYS", 365),
		},
	}
	return cfg
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Zengin.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("zengin config: %v", err))
	}

	if err := c.Export.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("export config: %v", err))
	}

	if c.Subsidy.MaxAmount < 0 {
		errs = append(errs, "subsidy config: max_amount cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if c.AccessTokenDuration < time.Minute {
		return errors.New("access_token_duration must be at least 1m")
	}
	return nil
}

func (c *ZenginConfig) Validate() error {
	if len(c.SenderCode) != 10 {
		return errors.New("sender_code must be 10 digits")
	}
	if len(c.BankCode) != 4 || len(c.BranchCode) != 3 {
		return errors.New("bank_code must be 4 digits and branch_code 3 digits")
	}
	if c.AccountNumber == "" || len(c.AccountNumber) > 7 {
		return errors.New("account_number must be 1 to 7 digits")
	}
	if c.TransferLeadDays < 0 {
		return errors.New("transfer_lead_days cannot be negative")
	}
	return nil
}

func (c *ExportConfig) Validate() error {
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.QueueSize < 1 {
		return errors.New("queue_size must be at least 1")
	}
	return nil
}
