package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or completions.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderGemini is Google's Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderAnthropic is Anthropic cloud API. Completions only.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderNone disables the service. Only valid for completions, where
	// it selects the offline deterministic report generator.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama, AIProviderGemini, AIProviderAnthropic, AIProviderNone:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOpenAI || p == AIProviderOllama || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderNone:
		return "None (offline)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions is the vector size. The vector store must match it exactly.
	Dimensions int

	// RequestsPerSecond paces API calls. Zero disables pacing.
	RequestsPerSecond float64

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds completion provider configuration.
type LLMSettings struct {
	// Provider is the completion service provider.
	Provider AIProvider

	// Model is the completion model name.
	Model string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// RequestsPerSecond paces API calls. Zero disables pacing.
	RequestsPerSecond float64

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
// The none provider is a valid, explicit configuration.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StorageBackend selects where projects, documents and reports live.
type StorageBackend string

// Storage backends.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageMemory StorageBackend = "memory"
)

// VectorBackend selects the chunk vector store.
type VectorBackend string

// Vector backends.
const (
	VectorSQLite   VectorBackend = "sqlite"
	VectorPostgres VectorBackend = "postgres"
	VectorMemory   VectorBackend = "memory"
)

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// Backend stores projects, documents and reports.
	Backend StorageBackend

	// DataDir holds the SQLite database and uploaded files.
	DataDir string

	// Vector selects the chunk store.
	Vector VectorBackend

	// PostgresDSN is used when Vector is postgres.
	PostgresDSN string
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	MaxTokens     int
	OverlapTokens int
	CharsPerToken int
	MinChunkChars int
}

// RetrievalSettings holds per-call-site similarity thresholds.
type RetrievalSettings struct {
	InteractiveThreshold float64
	ReportThreshold      float64
	DuplicateThreshold   float64
	MaxChunks            int
}

// IndexingSettings configures the indexing pipeline.
type IndexingSettings struct {
	// Workers bounds concurrent document indexing.
	Workers int

	// Timeout bounds a single document run. Zero disables it.
	Timeout time.Duration

	// RejectConcurrent rejects a second run on a busy document instead of waiting.
	RejectConcurrent bool

	// Lock selects the per-document lock: "memory" or "redis".
	Lock string

	// RecoveryInterval is how often stuck and failed documents are swept.
	RecoveryInterval time.Duration

	// StaleAfter is how long a document may stay pending before recovery.
	StaleAfter time.Duration

	// MaxRetries bounds recovery attempts for failed documents.
	MaxRetries int
}

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// ReportSettings configures report synthesis.
type ReportSettings struct {
	// Timeout bounds a full synthesis, after which the fallback is used.
	Timeout time.Duration

	// ContextChars bounds the merged retrieval context.
	ContextChars int

	// TemplateDir holds user-editable report templates.
	TemplateDir string
}

// QueueSettings configures the asynchronous indexing queue.
type QueueSettings struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr           string
	AllowedOrigins []string
}

// LogSettings configures logging output.
type LogSettings struct {
	// File enables rotation to a log file when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Storage   StorageSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Indexing  IndexingSettings
	Report    ReportSettings
	Queue     QueueSettings
	Server    ServerSettings
	Log       LogSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Credentials are never defaulted.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			Timeout:    60 * time.Second,
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
			Timeout:  120 * time.Second,
		},
		Storage: StorageSettings{
			Backend: StorageSQLite,
			Vector:  VectorSQLite,
		},
		Chunking: ChunkingSettings{
			MaxTokens:     1000,
			OverlapTokens: 200,
			CharsPerToken: 4,
			MinChunkChars: 50,
		},
		Retrieval: RetrievalSettings{
			InteractiveThreshold: InteractiveThreshold,
			ReportThreshold:      ReportThreshold,
			DuplicateThreshold:   DuplicateThreshold,
			MaxChunks:            DefaultMaxChunks,
		},
		Indexing: IndexingSettings{
			Workers:          3,
			Timeout:          5 * time.Minute,
			Lock:             LockMemory,
			RecoveryInterval: time.Minute,
			StaleAfter:       10 * time.Minute,
			MaxRetries:       3,
		},
		Report: ReportSettings{
			Timeout:      90 * time.Second,
			ContextChars: 4000,
		},
		Queue: QueueSettings{
			RedisAddr:   "127.0.0.1:6379",
			Concurrency: 3,
		},
		Server: ServerSettings{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Log: LogSettings{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama, AIProviderGemini}
}

// AllLLMProviders returns providers that support completions.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama, AIProviderGemini, AIProviderAnthropic, AIProviderNone}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderOllama: "nomic-embed-text",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each completion provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderOllama:    "llama3.2",
		AIProviderGemini:    "gemini-1.5-flash-latest",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}
