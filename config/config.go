package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector store kinds
const (
	VectorStorePostgres = "postgres"
	VectorStoreMemory   = "memory"
)

// Provider kinds
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// MCP transports
const (
	MCPTransportStdio = "stdio"
	MCPTransportHTTP  = "http"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Providers     ProvidersConfig
	Retrieval     RetrievalConfig
	Auth          AuthConfig
	MCP           MCPConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// QueryRateLimit is the per-client requests per second allowed on the
	// query route; zero disables limiting
	QueryRateLimit float64
	QueryRateBurst int

	TLS struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ProvidersConfig selects and configures the model provider
type ProvidersConfig struct {
	Kind   string
	OpenAI OpenAIConfig
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int
	Timeout             time.Duration
	MaxRetries          int
	RequestsPerSecond   float64
}

// RetrievalConfig holds query-side settings
type RetrievalConfig struct {
	DefaultTopK   int
	MaxTopK       int
	VectorStore   string
	PromptVariant string
	InitSchema    bool
}

// AuthConfig holds the optional HS256 bearer auth for ingestion routes.
// An empty JWTSecret leaves ingestion open.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// MCPConfig holds the tool server transport
type MCPConfig struct {
	Transport string
	Addr      string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			QueryRateLimit:  getEnvAsFloat("QUERY_RATE_LIMIT_RPS", 0),
			QueryRateBurst:  getEnvAsInt("QUERY_RATE_LIMIT_BURST", 5),
		},
		Database: loadDatabaseConfig(),
		Providers: ProvidersConfig{
			Kind: strings.ToLower(getEnv("PROVIDER", ProviderOpenAI)),
			OpenAI: OpenAIConfig{
				APIKey:              getEnv("OPENAI_API_KEY", ""),
				BaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
				EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
				EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 1536),
				Timeout:             getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
				MaxRetries:          getEnvAsInt("OPENAI_MAX_RETRIES", 3),
				RequestsPerSecond:   getEnvAsFloat("OPENAI_REQUESTS_PER_SECOND", 0),
			},
		},
		Retrieval: RetrievalConfig{
			DefaultTopK:   getEnvAsInt("RETRIEVAL_DEFAULT_TOP_K", 5),
			MaxTopK:       getEnvAsInt("RETRIEVAL_MAX_TOP_K", 100),
			VectorStore:   strings.ToLower(getEnv("VECTOR_STORE", VectorStorePostgres)),
			PromptVariant: getEnv("PROMPT_VARIANT", "explain"),
			InitSchema:    getEnvAsBool("DB_INIT_SCHEMA", true),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		MCP: MCPConfig{
			Transport: strings.ToLower(getEnv("MCP_TRANSPORT", MCPTransportStdio)),
			Addr:      getEnv("MCP_ADDR", ":8090"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	cfg.Server.TLS.Enabled = getEnvAsBool("TLS_ENABLED", false)
	cfg.Server.TLS.CertFile = getEnv("TLS_CERT_FILE", "certs/cert.pem")
	cfg.Server.TLS.KeyFile = getEnv("TLS_KEY_FILE", "certs/key.pem")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Retrieval.VectorStore {
	case VectorStorePostgres:
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	case VectorStoreMemory:
	default:
		return fmt.Errorf("unknown vector store %q: expected %s or %s", c.Retrieval.VectorStore, VectorStorePostgres, VectorStoreMemory)
	}

	switch c.Providers.Kind {
	case ProviderOpenAI:
		if c.IsProduction() && c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q: expected %s or %s", c.Providers.Kind, ProviderOpenAI, ProviderMock)
	}

	if c.Providers.OpenAI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Providers.OpenAI.EmbeddingDimensions)
	}

	if c.Retrieval.MaxTopK < 1 {
		return fmt.Errorf("max topK must be at least 1, got %d", c.Retrieval.MaxTopK)
	}
	if c.Retrieval.DefaultTopK < 1 || c.Retrieval.DefaultTopK > c.Retrieval.MaxTopK {
		return fmt.Errorf("default topK must be between 1 and %d, got %d", c.Retrieval.MaxTopK, c.Retrieval.DefaultTopK)
	}

	if c.Server.QueryRateLimit < 0 {
		return fmt.Errorf("query rate limit must not be negative, got %v", c.Server.QueryRateLimit)
	}
	if c.Server.QueryRateLimit > 0 && c.Server.QueryRateBurst < 1 {
		return fmt.Errorf("query rate burst must be at least 1, got %d", c.Server.QueryRateBurst)
	}

	switch c.MCP.Transport {
	case MCPTransportStdio, MCPTransportHTTP:
	default:
		return fmt.Errorf("unknown MCP transport %q", c.MCP.Transport)
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}

	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "postgres")
	pool.Password = getEnv("DB_PASSWORD", "postgres")
	pool.Database = getEnv("DB_NAME", "publications")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
