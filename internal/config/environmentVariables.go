package config

import (
	"time"
)

const (
	TRACE_ID_KEY                = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//config file
	DefaultConfigPath = "config/config.yaml"
	ConfigPathEnv     = "KB_CONFIG"

	//logging
	DefaultLogLevel = "debug"

	//ingestion
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultFAQChunkFactor = 2 //structured sections may grow to twice the chunk size before they are split
	DefaultDataDir        = "data"
	FileServingPrefix     = "/files/"
	EmbedBatchSize        = 100
	UpsertBatchSize       = 100
	PageExtractTimeout    = 10 * time.Second

	//retrieval
	SearchTypeSimilarity          = "similarity"
	SearchTypeScoreThreshold      = "similarity_score_threshold"
	DefaultSearchType             = SearchTypeSimilarity
	DefaultSearchK                = 4
	DefaultScoreThreshold float32 = 0.5
	DefaultPromptTemplatePath     = "config/prompt_template.txt"

	//session memory
	DefaultSessionTTLSeconds = 3600
	DefaultMaxHistoryLength  = 10

	//web extraction
	DefaultWebTimeoutSeconds = 30
	DefaultWebMaxBytes       = 10 * 1024 * 1024
	DefaultWebUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	//embeddings
	EmbeddingProviderGemini = "gemini"
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderLocal  = "local"

	DefaultEmbeddingProvider  = EmbeddingProviderLocal
	DefaultEmbeddingModel     = "BAAI/bge-small-en-v1.5"
	DefaultEmbeddingDimension = 384
	DefaultEmbeddingBaseURL   = "http://localhost:8080/v1"
	GoogleEmbeddingModel      = "gemini-embedding-001"

	//llm
	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"
	LLMProviderLocal  = "local"

	DefaultLLMProvider            = LLMProviderOpenAI
	DefaultLLMModel               = "gpt-4o-mini"
	GeminiModelName               = "gemini-2.5-flash-lite-preview-09-2025"
	DefaultTemperature    float64 = 0.1
	DefaultMaxTokens              = 1000
	DefaultLLMTimeoutSecs         = 30
	DefaultLLMRetries             = 3

	//ingestion job workers
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobExecutionTimeout             = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 5 * time.Minute //synchronous ingestion holds the connection
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"
	MaxUploadSize    = 32 << 20

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1 //2-5 is preferred for prod according to documentation
	DefaultCollectionName   = "knowledge_base"
	DefaultDistance         = "cosine"

	//metadata store
	DefaultDatabaseURL = "sqlite://data/knowledge_base.db"

	//outgoing http pool
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore = 0

	//redis timeouts
	RedisJobStoreTTL = 24 * time.Hour
)
