// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends for OTP challenges and accounts.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090). Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// ServiceName is reported in logs and telemetry resources.
	ServiceName string `mapstructure:"SERVICE_NAME"`

	// DatabaseURL is the Postgres DSN. Required when either store is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// OTPStore selects the challenge store: memory, postgres or redis.
	OTPStore string `mapstructure:"OTP_STORE"`
	// AccountStore selects the account store: memory or postgres.
	AccountStore string `mapstructure:"ACCOUNT_STORE"`

	// OTPTTLMinutes is the challenge lifetime in minutes (default 5).
	OTPTTLMinutes int `mapstructure:"OTP_TTL_MINUTES"`
	// OTPReturnToClient when true enables dev OTP mode: no SMS, the code is returned in the
	// issue response and kept for GET /dev/otp. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// Hasher selects the secret hashing algorithm: bcrypt or argon2id.
	Hasher string `mapstructure:"HASHER"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SMSProvider selects OTP delivery: log, smslocal or sns.
	SMSProvider string `mapstructure:"SMS_PROVIDER"`
	// SMSLocalAPIKey is the API key for SMS Local. Required when SMSProvider is smslocal.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for SMS Local.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS Local API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// AWSRegion is used by the SNS sender.
	AWSRegion string `mapstructure:"AWS_REGION"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the session token lifetime (e.g. "24h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	GoogleClientID        string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL     string `mapstructure:"GOOGLE_REDIRECT_URL"`
	FacebookClientID      string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `mapstructure:"FACEBOOK_CLIENT_SECRET"`
	FacebookRedirectURL   string `mapstructure:"FACEBOOK_REDIRECT_URL"`
	// FrontendURL is where the browser lands after a provider callback (FRONTEND_URL + /auth/success).
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	// CORSAllowedOrigins is a comma-separated origin list; defaults to FrontendURL.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// EventsSink selects where auth events go besides OTel logs: none, kafka or nats.
	EventsSink        string `mapstructure:"EVENTS_SINK"`
	KafkaBrokers      string `mapstructure:"KAFKA_BROKERS"`
	EventsKafkaTopic  string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group used by cmd/worker.
	KafkaGroupID      string `mapstructure:"KAFKA_GROUP_ID"`
	NATSURL           string `mapstructure:"NATS_URL"`
	EventsNATSSubject string `mapstructure:"EVENTS_NATS_SUBJECT"`

	// OTelEndpoint is the OTLP gRPC collector endpoint. Empty disables exporters.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv values reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SERVICE_NAME", "identity-gateway")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("OTP_STORE", "")
	v.SetDefault("ACCOUNT_STORE", "")
	v.SetDefault("OTP_TTL_MINUTES", 5)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("HASHER", "bcrypt")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SMS_PROVIDER", "log")
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "identity-gateway")
	v.SetDefault("JWT_AUDIENCE", "identity-gateway-api")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("FACEBOOK_CLIENT_ID", "")
	v.SetDefault("FACEBOOK_CLIENT_SECRET", "")
	v.SetDefault("FACEBOOK_REDIRECT_URL", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("EVENTS_SINK", "none")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "identity-auth-events")
	v.SetDefault("KAFKA_GROUP_ID", "identity-events-worker")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("EVENTS_NATS_SUBJECT", "identity.auth.events")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Validate normalizes derived defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}

	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if c.OTPTTLMinutes == 0 {
		c.OTPTTLMinutes = 5
	}
	if c.OTPTTLMinutes < 0 {
		return errors.New("config: OTP_TTL_MINUTES must be positive")
	}

	c.Hasher = strings.ToLower(strings.TrimSpace(c.Hasher))
	switch c.Hasher {
	case "", "bcrypt":
		c.Hasher = "bcrypt"
	case "argon2id":
	default:
		return fmt.Errorf("config: HASHER %q is not supported (bcrypt, argon2id)", c.Hasher)
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if c.OTPStore == "" {
		c.OTPStore = c.defaultStore()
	}
	if c.AccountStore == "" {
		c.AccountStore = c.defaultStore()
	}
	switch c.OTPStore {
	case StoreMemory, StorePostgres:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when OTP_STORE=redis")
		}
	default:
		return fmt.Errorf("config: OTP_STORE %q is not supported (memory, postgres, redis)", c.OTPStore)
	}
	switch c.AccountStore {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("config: ACCOUNT_STORE %q is not supported (memory, postgres)", c.AccountStore)
	}
	if (c.OTPStore == StorePostgres || c.AccountStore == StorePostgres) && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set for postgres stores")
	}

	switch c.SMSProvider {
	case "", "log":
		if c.IsProduction() {
			return errors.New("config: SMS_PROVIDER must be smslocal or sns when APP_ENV=production")
		}
		c.SMSProvider = "log"
	case "smslocal":
		if c.SMSLocalAPIKey == "" && !c.OTPReturnToClient {
			return errors.New("config: SMS_LOCAL_API_KEY must be set when SMS_PROVIDER=smslocal")
		}
	case "sns":
	default:
		return fmt.Errorf("config: SMS_PROVIDER %q is not supported (log, smslocal, sns)", c.SMSProvider)
	}

	if c.IsProduction() && (c.JWTPrivateKey == "" || c.JWTPublicKey == "") {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when APP_ENV=production")
	}

	switch c.EventsSink {
	case "", "none":
		c.EventsSink = "none"
	case "kafka":
		if len(c.KafkaBrokersList()) == 0 {
			return errors.New("config: KAFKA_BROKERS must be set when EVENTS_SINK=kafka")
		}
	case "nats":
		if c.NATSURL == "" {
			return errors.New("config: NATS_URL must be set when EVENTS_SINK=nats")
		}
	default:
		return fmt.Errorf("config: EVENTS_SINK %q is not supported (none, kafka, nats)", c.EventsSink)
	}
	return nil
}

func (c *Config) defaultStore() string {
	if c.DatabaseURL != "" {
		return StorePostgres
	}
	return StoreMemory
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// OTPTTL returns the challenge lifetime.
func (c *Config) OTPTTL() time.Duration {
	if c.OTPTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// AllowedOrigins returns the CORS origins, falling back to FrontendURL.
func (c *Config) AllowedOrigins() []string {
	if origins := splitList(c.CORSAllowedOrigins); len(origins) > 0 {
		return origins
	}
	if c.FrontendURL != "" {
		return []string{c.FrontendURL}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
