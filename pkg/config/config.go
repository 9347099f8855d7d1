package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	LLM       LLMConfig
	GigaChat  GigaChatConfig
	Gemini    GeminiConfig
	Parsing   ParsingConfig
	Staging   StagingConfig
	Sync      SyncConfig
	Analytics AnalyticsConfig
	Telemetry TelemetryConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type LLMConfig struct {
	Provider          string // gigachat | gemini
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	RequestsPerSecond float64
	Burst             int
	HistoryLimit      int
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
	Model              string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type ParsingConfig struct {
	// Strict makes unparseable amounts and dates fail staging instead of
	// defaulting to zero / today.
	Strict bool
}

type StagingConfig struct {
	PendingTTL    time.Duration
	SweepInterval time.Duration
}

type SyncConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
	Sheets    SheetsConfig
	Tally     TallyConfig
	Notion    NotionConfig
}

type SheetsConfig struct {
	Enabled         bool
	CredentialsFile string
	SpreadsheetID   string
}

type TallyConfig struct {
	Enabled     bool
	BaseURL     string
	AuthKey     string
	CompanyName string
	Version     string
}

type NotionConfig struct {
	Enabled    bool
	Token      string
	DatabaseID string
}

type AnalyticsConfig struct {
	CacheTTL time.Duration
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work for Docker/K8s
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getSeconds("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getSeconds("SERVER_WRITE_TIMEOUT", 30),
			CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "counto"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getInt("DB_MAX_CONNS", 10)),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(getInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
			RefreshExp: time.Duration(getInt("JWT_REFRESH_EXPIRATION_HOURS", 168)) * time.Hour,
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(getEnv("LLM_PROVIDER", "gigachat")),
			Timeout:           getSeconds("LLM_TIMEOUT", 30),
			MaxRetries:        getInt("LLM_MAX_RETRIES", 2),
			InitialBackoff:    time.Duration(getInt("LLM_INITIAL_BACKOFF_MS", 300)) * time.Millisecond,
			RequestsPerSecond: getFloat("LLM_REQUESTS_PER_SECOND", 2),
			Burst:             getInt("LLM_BURST", 5),
			HistoryLimit:      getInt("LLM_HISTORY_LIMIT", 10),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getBool("GIGACHAT_INSECURE_SKIP_VERIFY", true),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Parsing: ParsingConfig{
			Strict: getBool("PARSE_STRICT", false),
		},
		Staging: StagingConfig{
			PendingTTL:    getDuration("PENDING_TTL", 24*time.Hour),
			SweepInterval: getDuration("PENDING_SWEEP_INTERVAL", time.Hour),
		},
		Sync: SyncConfig{
			QueueSize: getInt("SYNC_QUEUE_SIZE", 256),
			Workers:   getInt("SYNC_WORKERS", 2),
			Timeout:   getSeconds("SYNC_TIMEOUT", 20),
			Sheets: SheetsConfig{
				Enabled:         getBool("SHEETS_ENABLED", false),
				CredentialsFile: getEnv("GOOGLE_SHEETS_CREDENTIALS_FILE", "credentials.json"),
				SpreadsheetID:   getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
			},
			Tally: TallyConfig{
				Enabled:     getBool("TALLY_ENABLED", false),
				BaseURL:     getEnv("TALLY_BASE_URL", "https://api.excel2tally.in/api/User"),
				AuthKey:     getEnv("TALLY_AUTH_KEY", ""),
				CompanyName: getEnv("TALLY_COMPANY_NAME", ""),
				Version:     getEnv("TALLY_VERSION", "3"),
			},
			Notion: NotionConfig{
				Enabled:    getBool("NOTION_ENABLED", false),
				Token:      getEnv("NOTION_TOKEN", ""),
				DatabaseID: getEnv("NOTION_TRANSACTIONS_DATABASE_ID", ""),
			},
		},
		Analytics: AnalyticsConfig{
			CacheTTL: getDuration("ANALYTICS_CACHE_TTL", 5*time.Minute),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "counto"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Second
}

// getDuration accepts Go duration syntax ("90m", "24h").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
