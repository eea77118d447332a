package config

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// MinServiceTokenLength is the minimum required length for the service token in production
	MinServiceTokenLength = 32

	// DefaultFallbackSpecialty is the specialty every unresolved classification falls back to
	DefaultFallbackSpecialty = "Consulta General"
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	LogLevel    string
	LogFormat   string
	// ServiceToken authenticates callers of the /api routes (edge functions, admin tools)
	ServiceToken string
	AppURL       string
	// Turso (libsql) remote database, used instead of DBPath when set
	TursoDatabaseURL string
	TursoAuthToken   string
	// AI (Anthropic)
	AnthropicAPIKey     string
	AIModel             string
	AIMaxTokens         int64
	AIRequestTimeout    time.Duration
	AIRequestsPerSecond float64
	FallbackSpecialty   string
	// Source object store (S3-compatible, where client uploads live)
	SourceS3Endpoint        string
	SourceS3Region          string
	SourceS3AccessKeyID     string
	SourceS3SecretAccessKey string
	SourceBucket            string
	// Destination object store (Cloudflare R2)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Background processing
	WorkerCount     int
	QueueSize       int
	IntakeRateLimit int
	// Recovery sweep for runs lost by a restart or a full queue
	SweepSchedule   string
	StalledRunAfter time.Duration
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged instead of sent
	NotifyEmail   string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")
	serviceToken := getEnv("SERVICE_TOKEN", "")

	// Exits in production if the token is unusable
	ValidateServiceToken(serviceToken, environment)

	if serviceToken == "" && environment != "production" {
		serviceToken = GenerateSecureSecret()
		zap.L().Info("generated temporary service token for development, set SERVICE_TOKEN for persistence")
	}

	return &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		DBPath:                  getEnv("DB_PATH", "db/app.db"),
		Environment:             environment,
		UploadDir:               getEnv("UPLOAD_DIR", "static/uploads"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", defaultLogFormat(environment)),
		ServiceToken:            serviceToken,
		AppURL:                  getEnv("APP_URL", "http://localhost:8080"),
		TursoDatabaseURL:        getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:          getEnv("TURSO_AUTH_TOKEN", ""),
		AnthropicAPIKey:         getEnv("ANTHROPIC_API_KEY", ""),
		AIModel:                 getEnv("AI_MODEL", "claude-sonnet-4-5-20250929"),
		AIMaxTokens:             int64(getEnvInt("AI_MAX_TOKENS", 4096)),
		AIRequestTimeout:        getEnvDuration("AI_REQUEST_TIMEOUT", 2*time.Minute),
		AIRequestsPerSecond:     getEnvFloat("AI_REQUESTS_PER_SECOND", 2),
		FallbackSpecialty:       getEnv("FALLBACK_SPECIALTY_NAME", DefaultFallbackSpecialty),
		SourceS3Endpoint:        getEnv("SOURCE_S3_ENDPOINT", ""),
		SourceS3Region:          getEnv("SOURCE_S3_REGION", "us-east-1"),
		SourceS3AccessKeyID:     getEnv("SOURCE_S3_ACCESS_KEY_ID", ""),
		SourceS3SecretAccessKey: getEnv("SOURCE_S3_SECRET_ACCESS_KEY", ""),
		SourceBucket:            getEnv("SOURCE_BUCKET", "documentos"),
		R2AccountID:             getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:           getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:       getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:            getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:             getEnv("R2_PUBLIC_URL", ""),
		WorkerCount:             getEnvInt("WORKER_COUNT", 4),
		QueueSize:               getEnvInt("QUEUE_SIZE", 100),
		IntakeRateLimit:         getEnvInt("INTAKE_RATE_LIMIT", 10),
		SweepSchedule:           getEnv("SWEEP_SCHEDULE", "*/10 * * * *"),
		StalledRunAfter:         getEnvDuration("STALLED_RUN_AFTER", 15*time.Minute),
		ResendAPIKey:            getEnv("RESEND_API_KEY", ""),
		EmailFrom:               getEnv("EMAIL_FROM", "noreply@example.org"),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Consultas Legales"),
		EmailTestMode:           getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		NotifyEmail:             getEnv("NOTIFY_EMAIL", ""),
	}
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultLogFormat(environment string) string {
	if environment == "production" {
		return "json"
	}
	return "console"
}

// InitLogger initializes the global zap logger.
func InitLogger(level, format string) error {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		zap.L().Warn("invalid integer env value, using default",
			zap.String("key", key), zap.String("value", value), zap.Int("default", defaultValue))
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		zap.L().Warn("invalid duration env value, using default",
			zap.String("key", key), zap.String("value", value))
		return defaultValue
	}
	return d
}

// ValidateServiceToken validates the service token meets security requirements.
// In production, it must be at least 32 bytes and not a known insecure default.
func ValidateServiceToken(token string, environment string) error {
	insecureDefaults := []string{
		"dev-token-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(token, insecure) {
			if environment == "production" {
				zap.L().Fatal("SERVICE_TOKEN is set to an insecure default value, generate one with: openssl rand -base64 32")
			}
			return nil
		}
	}

	if environment == "production" && len(token) < MinServiceTokenLength {
		zap.L().Fatal("SERVICE_TOKEN is too short for production",
			zap.Int("min_length", MinServiceTokenLength), zap.Int("length", len(token)))
	}

	return nil
}

// GenerateSecureSecret generates a cryptographically secure random secret.
// Only used in development when no token is provided.
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		zap.L().Warn("failed to generate secure secret", zap.Error(err))
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
