package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	AuthToken  string `yaml:"auth_token"`
	NoAuth     bool   `yaml:"no_auth"`
	RateLimit  bool   `yaml:"rate_limit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Disabled bool   `yaml:"disabled"`
}

type QdrantConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	CollectionName string `yaml:"collection_name"`
	Distance       string `yaml:"distance"`
	APIKey         string `yaml:"api_key"`
	UseTLS         bool   `yaml:"use_tls"`
}

type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	Dimension      int    `yaml:"dimension"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
}

type IngestionConfig struct {
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	FAQChunkFactor int    `yaml:"faq_chunk_factor"`
	DataDir        string `yaml:"data_dir"`
}

type WebConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes"`
	UserAgent      string `yaml:"user_agent"`
}

type RetrieverConfig struct {
	SearchType     string  `yaml:"search_type"`
	SearchK        int     `yaml:"search_k"`
	ScoreThreshold float32 `yaml:"score_threshold"`
}

type RAGConfig struct {
	Retriever      RetrieverConfig `yaml:"retriever"`
	PromptTemplate string          `yaml:"prompt_template"`
}

type MemoryConfig struct {
	TTLSeconds       int `yaml:"ttl_seconds"`
	MaxHistoryLength int `yaml:"max_history_length"`
}

// Config is the root of config/config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Web       WebConfig       `yaml:"web"`
	RAG       RAGConfig       `yaml:"rag"`
	Memory    MemoryConfig    `yaml:"memory"`
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// Load reads the yaml file at path after loading .env into the environment.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandEnv replaces ${VAR} and ${VAR:default} with the environment value or the default.
func ExpandEnv(raw string) string {
	return envPattern.ReplaceAllStringFunc(raw, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		return groups[2]
	})
}

// Defaults presets the options where zero is meaningful or must be rejected.
// Load decodes over it so only absent keys keep these values; everything else
// is filled by ApplyDefaults after decoding.
func Defaults() *Config {
	cfg := &Config{}
	cfg.LLM.Temperature = DefaultTemperature
	cfg.Ingestion.ChunkOverlap = DefaultChunkOverlap
	cfg.Ingestion.FAQChunkFactor = DefaultFAQChunkFactor
	cfg.RAG.Retriever.ScoreThreshold = DefaultScoreThreshold
	return cfg
}

// ApplyDefaults fills options left empty. Zero counts as empty only where it
// is not a usable value.
func (c *Config) ApplyDefaults() {
	setString(&c.Server.ListenAddr, ServerListenAddr)
	setString(&c.Log.Level, DefaultLogLevel)
	setString(&c.Database.URL, DefaultDatabaseURL)
	setString(&c.Redis.Addr, RedisAddr)

	setString(&c.Qdrant.Host, QdrantHost)
	setInt(&c.Qdrant.Port, QdrantGrpcPort)
	setString(&c.Qdrant.CollectionName, DefaultCollectionName)
	setString(&c.Qdrant.Distance, DefaultDistance)

	setString(&c.Embedding.Provider, DefaultEmbeddingProvider)
	setString(&c.Embedding.Model, DefaultEmbeddingModel)
	setInt(&c.Embedding.Dimension, DefaultEmbeddingDimension)
	setInt(&c.Embedding.TimeoutSeconds, DefaultLLMTimeoutSecs)
	setInt(&c.Embedding.MaxRetries, DefaultLLMRetries)
	if c.Embedding.Provider == EmbeddingProviderLocal {
		setString(&c.Embedding.BaseURL, DefaultEmbeddingBaseURL)
	}

	setString(&c.LLM.Provider, DefaultLLMProvider)
	setString(&c.LLM.Model, DefaultLLMModel)
	setInt(&c.LLM.MaxTokens, DefaultMaxTokens)
	setInt(&c.LLM.TimeoutSeconds, DefaultLLMTimeoutSecs)
	setInt(&c.LLM.MaxRetries, DefaultLLMRetries)

	setInt(&c.Ingestion.ChunkSize, DefaultChunkSize)
	setString(&c.Ingestion.DataDir, DefaultDataDir)

	setInt(&c.Web.TimeoutSeconds, DefaultWebTimeoutSeconds)
	if c.Web.MaxBytes == 0 {
		c.Web.MaxBytes = DefaultWebMaxBytes
	}
	setString(&c.Web.UserAgent, DefaultWebUserAgent)

	setString(&c.RAG.Retriever.SearchType, DefaultSearchType)
	setInt(&c.RAG.Retriever.SearchK, DefaultSearchK)
	setString(&c.RAG.PromptTemplate, DefaultPromptTemplatePath)

	setInt(&c.Memory.TTLSeconds, DefaultSessionTTLSeconds)
	setInt(&c.Memory.MaxHistoryLength, DefaultMaxHistoryLength)
}

func (c *Config) Validate() error {
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion.chunk_overlap must be in [0, chunk_size), got %d", c.Ingestion.ChunkOverlap)
	}
	if c.Ingestion.FAQChunkFactor < 1 {
		return fmt.Errorf("ingestion.faq_chunk_factor must be at least 1, got %d", c.Ingestion.FAQChunkFactor)
	}
	switch c.RAG.Retriever.SearchType {
	case SearchTypeSimilarity, SearchTypeScoreThreshold:
	default:
		return fmt.Errorf("unsupported rag.retriever.search_type %q", c.RAG.Retriever.SearchType)
	}
	if c.RAG.Retriever.SearchK <= 0 {
		return fmt.Errorf("rag.retriever.search_k must be positive, got %d", c.RAG.Retriever.SearchK)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Memory.TTLSeconds <= 0 || c.Memory.MaxHistoryLength <= 0 {
		return errors.New("memory.ttl_seconds and memory.max_history_length must be positive")
	}
	return nil
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Memory.TTLSeconds) * time.Second
}

func (c *Config) WebTimeout() time.Duration {
	return time.Duration(c.Web.TimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

func setString(field *string, fallback string) {
	if *field == "" {
		*field = fallback
	}
}

func setInt(field *int, fallback int) {
	if *field == 0 {
		*field = fallback
	}
}
