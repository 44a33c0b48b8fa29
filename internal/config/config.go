package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig
	MongoDB MongoDBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	OIDC    OIDCConfig
	Audit   AuditConfig
	Gateway GatewayConfig
	MinIO   MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// OIDCConfig enables verification against an external identity provider
// instead of the built-in HS256 tokens.
type OIDCConfig struct {
	Issuer   string
	ClientID string
}

type AuditConfig struct {
	// Collection receiving one record per completed request
	Collection string
	// IncludeRejected wires the audit middleware outside the auth gate so
	// 401s are recorded too. Deployment decision, off by default.
	IncludeRejected bool
	// BodyLimit caps the captured request-body snapshot in bytes
	BodyLimit int64
	// RetentionDays before records are archived to object storage (when
	// MinIO is configured)
	RetentionDays   int
	ArchiveInterval time.Duration
}

type GatewayConfig struct {
	DefaultLimit int64
	MaxLimit     int64
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("AUDIT_COLLECTION", "audit")
	viper.SetDefault("AUDIT_BODY_LIMIT", 16384)
	viper.SetDefault("AUDIT_RETENTION_DAYS", 30)
	viper.SetDefault("AUDIT_ARCHIVE_INTERVAL_MINUTES", 60)
	viper.SetDefault("GATEWAY_DEFAULT_LIMIT", 50)
	viper.SetDefault("GATEWAY_MAX_LIMIT", 500)
	viper.SetDefault("MINIO_BUCKET", "docgate")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      getEnvOrPanic("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		OIDC: OIDCConfig{
			Issuer:   viper.GetString("OIDC_ISSUER"),
			ClientID: viper.GetString("OIDC_CLIENT_ID"),
		},
		Audit: AuditConfig{
			Collection:      viper.GetString("AUDIT_COLLECTION"),
			IncludeRejected: viper.GetBool("AUDIT_INCLUDE_REJECTED"),
			BodyLimit:       viper.GetInt64("AUDIT_BODY_LIMIT"),
			RetentionDays:   viper.GetInt("AUDIT_RETENTION_DAYS"),
			ArchiveInterval: time.Duration(viper.GetInt("AUDIT_ARCHIVE_INTERVAL_MINUTES")) * time.Minute,
		},
		Gateway: GatewayConfig{
			DefaultLimit: viper.GetInt64("GATEWAY_DEFAULT_LIMIT"),
			MaxLimit:     viper.GetInt64("GATEWAY_MAX_LIMIT"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}

func getEnvOrPanic(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("environment variable %s is required", key)
	}
	return v
}
