package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Files    FilesConfig    `mapstructure:"files"`
	Session  SessionConfig  `mapstructure:"session"`
	Security SecurityConfig `mapstructure:"security"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	DefaultProvider  string          `mapstructure:"default_provider"`
	SystemPrompt     string          `mapstructure:"system_prompt"`
	Timeout          time.Duration   `mapstructure:"timeout"`
	Temperature      float64         `mapstructure:"temperature"`
	MaxTokens        int             `mapstructure:"max_tokens"`
	RestrictedModels []string        `mapstructure:"restricted_models"`
	Embedding        EmbeddingConfig `mapstructure:"embedding"`
	OpenAI           OpenAIConfig    `mapstructure:"openai"`
	Anthropic        AnthropicConfig `mapstructure:"anthropic"`
	Gemini           GeminiConfig    `mapstructure:"gemini"`
	Ollama           OllamaConfig    `mapstructure:"ollama"`
	DeepSeek         DeepSeekConfig  `mapstructure:"deepseek"`
}

// EmbeddingConfig selects the provider used for query and document vectors
type EmbeddingConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// OpenAIConfig covers both api.openai.com and Azure OpenAI. Endpoint set
// means Azure.
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Endpoint   string `mapstructure:"endpoint"`
	APIVersion string `mapstructure:"api_version"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type DeepSeekConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type SearchConfig struct {
	DefaultK         int          `mapstructure:"default_k"`
	MaxContextLength int          `mapstructure:"max_context_length"`
	Remote           RemoteConfig `mapstructure:"remote"`
	Local            LocalConfig  `mapstructure:"local"`
}

// RemoteConfig configures the Azure AI Search index
type RemoteConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	Index          string        `mapstructure:"index"`
	APIVersion     string        `mapstructure:"api_version"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UseVector      bool          `mapstructure:"use_vector"`
	UseHybrid      bool          `mapstructure:"use_hybrid"`
	VectorField    string        `mapstructure:"vector_field"`
	SemanticConfig string        `mapstructure:"semantic_config"`
	Only           bool          `mapstructure:"only"`
}

// Enabled reports whether enough is configured to query the index
func (c RemoteConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != "" && c.Index != ""
}

type LocalConfig struct {
	DocumentsPath string `mapstructure:"documents_path"`
	IndexPath     string `mapstructure:"index_path"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
}

type FilesConfig struct {
	UploadDir        string        `mapstructure:"upload_dir"`
	MaxSize          int64         `mapstructure:"max_size"`
	MaxContextLength int           `mapstructure:"max_context_length"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type SessionConfig struct {
	MaxExchanges  int           `mapstructure:"max_exchanges"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PromptHistory int           `mapstructure:"prompt_history"`
}

type SecurityConfig struct {
	MaxMessageLength int             `mapstructure:"max_message_length"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type CleanupConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// LLM
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.system_prompt", DefaultSystemPrompt)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.restricted_models", []string{"o3-mini", "o3", "o4-mini"})
	v.SetDefault("llm.embedding.provider", "openai")
	v.SetDefault("llm.embedding.model", "text-embedding-ada-002")
	v.SetDefault("llm.embedding.cache_ttl", "24h")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.api_version", "2024-02-01")
	v.SetDefault("llm.anthropic.model", "claude-3-5-sonnet-latest")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "llama3")
	v.SetDefault("llm.deepseek.model", "deepseek-chat")

	// Search
	v.SetDefault("search.default_k", 15)
	v.SetDefault("search.max_context_length", 3000)
	v.SetDefault("search.remote.api_version", "2024-07-01")
	v.SetDefault("search.remote.timeout", "30s")
	v.SetDefault("search.remote.use_vector", true)
	v.SetDefault("search.remote.use_hybrid", true)
	v.SetDefault("search.remote.vector_field", "content_embedding")
	v.SetDefault("search.local.documents_path", "./data/documents")
	v.SetDefault("search.local.index_path", "./data/vector_index.db")
	v.SetDefault("search.local.chunk_size", 1000)
	v.SetDefault("search.local.chunk_overlap", 200)

	// Files
	v.SetDefault("files.upload_dir", "./uploads")
	v.SetDefault("files.max_size", 10*1024*1024)
	v.SetDefault("files.max_context_length", 8000)
	v.SetDefault("files.max_age", "24h")

	// Session
	v.SetDefault("session.max_exchanges", 10)
	v.SetDefault("session.max_sessions", 100)
	v.SetDefault("session.timeout", "24h")
	v.SetDefault("session.prompt_history", 4)

	// Security
	v.SetDefault("security.max_message_length", 4000)
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Cleanup
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.schedule", "*/30 * * * *")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM API Keys
	v.BindEnv("llm.openai.api_key", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("llm.openai.api_version", "AZURE_OPENAI_API_VERSION")
	v.BindEnv("llm.openai.model", "AZURE_OPENAI_DEPLOYMENT_NAME")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
	v.BindEnv("llm.embedding.model", "AZURE_OPENAI_EMBEDDING_DEPLOYMENT")
	v.BindEnv("llm.max_tokens", "AZURE_OPENAI_MAX_COMPLETION_TOKENS")

	// Azure AI Search
	v.BindEnv("search.remote.endpoint", "AZURE_SEARCH_ENDPOINT")
	v.BindEnv("search.remote.api_key", "AZURE_SEARCH_KEY")
	v.BindEnv("search.remote.index", "AZURE_SEARCH_INDEX")
	v.BindEnv("search.remote.api_version", "AZURE_SEARCH_API_VERSION")
	v.BindEnv("search.remote.semantic_config", "AZURE_SEARCH_SEMANTIC_CONFIG")
	v.BindEnv("search.remote.vector_field", "AZURE_SEARCH_VECTOR_FIELD")
	v.BindEnv("search.remote.only", "AZURE_SEARCH_ONLY")
}

// DefaultSystemPrompt instructs the assistant how to use retrieved context
const DefaultSystemPrompt = `You are a helpful assistant that answers questions using the information provided to you.

Guidelines:
- When relevant information is provided, base your answer on it and say so when it does not cover the question.
- When no information is provided, answer from general knowledge and be clear about uncertainty.
- Keep answers concise, well structured and in the language of the question.
- Never invent document titles, figures or quotes.`
