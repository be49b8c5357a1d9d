package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.OTPTTLMinutes != 5 {
		t.Errorf("OTPTTLMinutes = %d, want 5", cfg.OTPTTLMinutes)
	}
	if cfg.OTPTTL() != 5*time.Minute {
		t.Errorf("OTPTTL() = %v, want 5m", cfg.OTPTTL())
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
	if cfg.OTPStore != StoreMemory || cfg.AccountStore != StoreMemory {
		t.Errorf("stores = %q/%q, want memory/memory without DATABASE_URL", cfg.OTPStore, cfg.AccountStore)
	}
	if cfg.Hasher != "bcrypt" {
		t.Errorf("Hasher = %q, want bcrypt", cfg.Hasher)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SMSProvider != "log" {
		t.Errorf("SMSProvider = %q, want log", cfg.SMSProvider)
	}
	if cfg.EventsSink != "none" {
		t.Errorf("EventsSink = %q, want none", cfg.EventsSink)
	}
	if cfg.AccessTTL() != 24*time.Hour {
		t.Errorf("AccessTTL() = %v, want 24h", cfg.AccessTTL())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("OTP_TTL_MINUTES", "10")
	t.Setenv("HASHER", "argon2id")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("DATABASE_URL", "postgres://localhost/identity")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q, want :7070", cfg.HTTPAddr)
	}
	if cfg.OTPTTL() != 10*time.Minute {
		t.Errorf("OTPTTL() = %v, want 10m", cfg.OTPTTL())
	}
	if cfg.Hasher != "argon2id" {
		t.Errorf("Hasher = %q, want argon2id", cfg.Hasher)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.OTPStore != StorePostgres || cfg.AccountStore != StorePostgres {
		t.Errorf("stores = %q/%q, want postgres/postgres with DATABASE_URL", cfg.OTPStore, cfg.AccountStore)
	}
}

func TestLoad_DevOTPInProductionFails(t *testing.T) {
	os.Clearenv()
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should fail when OTP_RETURN_TO_CLIENT is true in production")
	}
	if !strings.Contains(err.Error(), "OTP_RETURN_TO_CLIENT") {
		t.Errorf("error = %v, want mention of OTP_RETURN_TO_CLIENT", err)
	}
}

func TestLoad_ProductionRequiresJWTKeys(t *testing.T) {
	os.Clearenv()
	t.Setenv("APP_ENV", "production")
	t.Setenv("SMS_PROVIDER", "sns")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should fail in production without JWT keys")
	}
	if !strings.Contains(err.Error(), "JWT_PRIVATE_KEY") {
		t.Errorf("error = %v, want mention of JWT_PRIVATE_KEY", err)
	}
}

func TestLoad_ProductionRejectsLogSMSProvider(t *testing.T) {
	for _, provider := range []string{"", "log"} {
		t.Run("provider="+provider, func(t *testing.T) {
			os.Clearenv()
			t.Setenv("APP_ENV", "production")
			t.Setenv("JWT_PRIVATE_KEY", "private.pem")
			t.Setenv("JWT_PUBLIC_KEY", "public.pem")
			if provider != "" {
				t.Setenv("SMS_PROVIDER", provider)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load should fail in production with the log-only SMS sender")
			}
			if !strings.Contains(err.Error(), "SMS_PROVIDER") {
				t.Errorf("error = %v, want mention of SMS_PROVIDER", err)
			}
		})
	}
}

func TestLoad_ProductionWithSNS(t *testing.T) {
	os.Clearenv()
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_PRIVATE_KEY", "private.pem")
	t.Setenv("JWT_PUBLIC_KEY", "public.pem")
	t.Setenv("SMS_PROVIDER", "sns")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SMSProvider != "sns" {
		t.Errorf("SMSProvider = %q, want sns", cfg.SMSProvider)
	}
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bcrypt cost too low", map[string]string{"BCRYPT_COST": "3"}},
		{"bcrypt cost too high", map[string]string{"BCRYPT_COST": "32"}},
		{"unknown hasher", map[string]string{"HASHER": "md5"}},
		{"unknown otp store", map[string]string{"OTP_STORE": "mongo"}},
		{"redis store without addr", map[string]string{"OTP_STORE": "redis"}},
		{"postgres store without dsn", map[string]string{"ACCOUNT_STORE": "postgres"}},
		{"unknown sms provider", map[string]string{"SMS_PROVIDER": "carrier-pigeon"}},
		{"smslocal without key", map[string]string{"SMS_PROVIDER": "smslocal"}},
		{"kafka sink without brokers", map[string]string{"EVENTS_SINK": "kafka"}},
		{"nats sink without url", map[string]string{"EVENTS_SINK": "nats"}},
		{"negative ttl", map[string]string{"OTP_TTL_MINUTES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Errorf("Load with %v: want error", tt.env)
			}
		})
	}
}

func TestAccessTTL_InvalidFallsBack(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "not-a-duration"}
	if cfg.AccessTTL() != 24*time.Hour {
		t.Errorf("AccessTTL() = %v, want 24h", cfg.AccessTTL())
	}
	cfg.JWTAccessTTL = "30m"
	if cfg.AccessTTL() != 30*time.Minute {
		t.Errorf("AccessTTL() = %v, want 30m", cfg.AccessTTL())
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: " a:9092, ,b:9092 "}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("KafkaBrokersList() = %v, want [a:9092 b:9092]", got)
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
}

func TestAllowedOrigins_FallsBackToFrontend(t *testing.T) {
	cfg := &Config{FrontendURL: "https://app.example.com"}
	got := cfg.AllowedOrigins()
	if len(got) != 1 || got[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins() = %v", got)
	}
	cfg.CORSAllowedOrigins = "https://a.example.com,https://b.example.com"
	if len(cfg.AllowedOrigins()) != 2 {
		t.Errorf("AllowedOrigins() = %v, want two entries", cfg.AllowedOrigins())
	}
}
