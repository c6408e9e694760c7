package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyEmbedTimeout    = "embedding.timeout"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMRPS          = "llm.requests_per_second"
	keyLLMTimeout      = "llm.timeout"
	keyStorageBackend  = "storage.backend"
	keyStorageDataDir  = "storage.data_dir"
	keyStorageVector   = "storage.vector"
	keyStoragePG       = "storage.postgres_dsn"
	keyChunkMax        = "chunking.max_tokens"
	keyChunkOverlap    = "chunking.overlap_tokens"
	keyChunkCPT        = "chunking.chars_per_token"
	keyChunkMin        = "chunking.min_chunk_chars"
	keyRetrInteractive = "retrieval.interactive_threshold"
	keyRetrReport      = "retrieval.report_threshold"
	keyRetrDuplicate   = "retrieval.duplicate_threshold"
	keyRetrMaxChunks   = "retrieval.max_chunks"
	keyIdxWorkers      = "indexing.workers"
	keyIdxTimeout      = "indexing.timeout"
	keyIdxReject       = "indexing.reject_concurrent"
	keyIdxLock         = "indexing.lock"
	keyIdxRecovery     = "indexing.recovery_interval"
	keyIdxStale        = "indexing.stale_after"
	keyIdxRetries      = "indexing.max_retries"
	keyReportTimeout   = "report.timeout"
	keyReportChars     = "report.context_chars"
	keyReportTemplates = "report.template_dir"
	keyQueueAddr       = "queue.redis_addr"
	keyQueuePassword   = "queue.redis_password"
	keyQueueDB         = "queue.redis_db"
	keyQueueConc       = "queue.concurrency"
	keyServerAddr      = "server.addr"
	keyServerOrigins   = "server.allowed_origins"
	keyLogFile         = "log.file"
	keyLogMaxSize      = "log.max_size_mb"
	keyLogMaxBackups   = "log.max_backups"
	keyLogMaxAge       = "log.max_age_days"
	keyLogJSON         = "log.json"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// settingKinds lists every key Set accepts and how its value is parsed.
var settingKinds = map[string]valueKind{
	keyEmbedProvider: kindString, keyEmbedModel: kindString, keyEmbedBaseURL: kindString,
	keyEmbedAPIKey: kindString, keyEmbedDims: kindInt, keyEmbedRPS: kindFloat, keyEmbedTimeout: kindDuration,
	keyLLMProvider: kindString, keyLLMModel: kindString, keyLLMBaseURL: kindString, keyLLMAPIKey: kindString,
	keyLLMRPS: kindFloat, keyLLMTimeout: kindDuration,
	keyStorageBackend: kindString, keyStorageDataDir: kindString, keyStorageVector: kindString, keyStoragePG: kindString,
	keyChunkMax: kindInt, keyChunkOverlap: kindInt, keyChunkCPT: kindInt, keyChunkMin: kindInt,
	keyRetrInteractive: kindFloat, keyRetrReport: kindFloat, keyRetrDuplicate: kindFloat, keyRetrMaxChunks: kindInt,
	keyIdxWorkers: kindInt, keyIdxTimeout: kindDuration, keyIdxReject: kindBool,
	keyIdxLock: kindString, keyIdxRecovery: kindDuration, keyIdxStale: kindDuration, keyIdxRetries: kindInt,
	keyReportTimeout: kindDuration, keyReportChars: kindInt, keyReportTemplates: kindString,
	keyQueueAddr: kindString, keyQueuePassword: kindString, keyQueueDB: kindInt, keyQueueConc: kindInt,
	keyServerAddr: kindString, keyServerOrigins: kindList,
	keyLogFile: kindString, keyLogMaxSize: kindInt, keyLogMaxBackups: kindInt, keyLogMaxAge: kindInt, keyLogJSON: kindBool,
}

// SettingKeys returns every configurable key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// providerKeyEnv names the conventional environment variable holding each
// provider's credential.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderGemini:    "GEMINI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings, filling unset keys from
// the defaults and missing credentials from the provider's usual
// environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, ""),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // empty selects the provider default
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDims, 0),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
			Timeout:           s.getDuration(keyEmbedTimeout, d.Embedding.Timeout),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:             s.getString(keyLLMModel, ""),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerSecond: s.getFloat(keyLLMRPS, d.LLM.RequestsPerSecond),
			Timeout:           s.getDuration(keyLLMTimeout, d.LLM.Timeout),
		},
		Storage: domain.StorageSettings{
			Backend:     domain.StorageBackend(s.getString(keyStorageBackend, string(d.Storage.Backend))),
			DataDir:     s.getString(keyStorageDataDir, d.Storage.DataDir),
			Vector:      domain.VectorBackend(s.getString(keyStorageVector, string(d.Storage.Vector))),
			PostgresDSN: s.configStore.GetString(keyStoragePG),
		},
		Chunking: domain.ChunkingSettings{
			MaxTokens:     s.getInt(keyChunkMax, d.Chunking.MaxTokens),
			OverlapTokens: s.getInt(keyChunkOverlap, d.Chunking.OverlapTokens),
			CharsPerToken: s.getInt(keyChunkCPT, d.Chunking.CharsPerToken),
			MinChunkChars: s.getInt(keyChunkMin, d.Chunking.MinChunkChars),
		},
		Retrieval: domain.RetrievalSettings{
			InteractiveThreshold: s.getFloat(keyRetrInteractive, d.Retrieval.InteractiveThreshold),
			ReportThreshold:      s.getFloat(keyRetrReport, d.Retrieval.ReportThreshold),
			DuplicateThreshold:   s.getFloat(keyRetrDuplicate, d.Retrieval.DuplicateThreshold),
			MaxChunks:            s.getInt(keyRetrMaxChunks, d.Retrieval.MaxChunks),
		},
		Indexing: domain.IndexingSettings{
			Workers:          s.getInt(keyIdxWorkers, d.Indexing.Workers),
			Timeout:          s.getDuration(keyIdxTimeout, d.Indexing.Timeout),
			RejectConcurrent: s.getBool(keyIdxReject, d.Indexing.RejectConcurrent),
			Lock:             s.getString(keyIdxLock, d.Indexing.Lock),
			RecoveryInterval: s.getDuration(keyIdxRecovery, d.Indexing.RecoveryInterval),
			StaleAfter:       s.getDuration(keyIdxStale, d.Indexing.StaleAfter),
			MaxRetries:       s.getInt(keyIdxRetries, d.Indexing.MaxRetries),
		},
		Report: domain.ReportSettings{
			Timeout:      s.getDuration(keyReportTimeout, d.Report.Timeout),
			ContextChars: s.getInt(keyReportChars, d.Report.ContextChars),
			TemplateDir:  s.getString(keyReportTemplates, d.Report.TemplateDir),
		},
		Queue: domain.QueueSettings{
			RedisAddr:     s.getString(keyQueueAddr, d.Queue.RedisAddr),
			RedisPassword: s.configStore.GetString(keyQueuePassword),
			RedisDB:       s.getInt(keyQueueDB, d.Queue.RedisDB),
			Concurrency:   s.getInt(keyQueueConc, d.Queue.Concurrency),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, d.Server.Addr),
			AllowedOrigins: s.getList(keyServerOrigins, d.Server.AllowedOrigins),
		},
		Log: domain.LogSettings{
			File:       s.configStore.GetString(keyLogFile),
			MaxSizeMB:  s.getInt(keyLogMaxSize, d.Log.MaxSizeMB),
			MaxBackups: s.getInt(keyLogMaxBackups, d.Log.MaxBackups),
			MaxAgeDays: s.getInt(keyLogMaxAge, d.Log.MaxAgeDays),
			JSON:       s.getBool(keyLogJSON, d.Log.JSON),
		},
	}

	// Models and sizes follow the provider unless set explicitly.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.providerKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.providerKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Set parses value for key's kind and persists it.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	switch key {
	case keyEmbedProvider:
		if p := domain.AIProvider(parsed.(string)); !p.SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
		}
	case keyLLMProvider:
		if p := domain.AIProvider(parsed.(string)); !p.IsValid() {
			return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, p)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks that the configured providers and stores can be built.
// Missing credentials wrap domain.ErrMissingAPIKey; anything else wraps
// domain.ErrConfiguration.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	emb := settings.Embedding
	if !emb.Provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %q does not support embeddings", domain.ErrConfiguration, emb.Provider)
	}
	if emb.Provider.RequiresAPIKey() && emb.APIKey == "" {
		return fmt.Errorf("%w: embedding provider %s (set %s or %s)",
			domain.ErrMissingAPIKey, emb.Provider, keyEmbedAPIKey, providerKeyEnv[emb.Provider])
	}

	llm := settings.LLM
	if !llm.Provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider %q", domain.ErrConfiguration, llm.Provider)
	}
	if llm.Provider.RequiresAPIKey() && llm.APIKey == "" {
		return fmt.Errorf("%w: LLM provider %s (set %s or %s, or use provider none)",
			domain.ErrMissingAPIKey, llm.Provider, keyLLMAPIKey, providerKeyEnv[llm.Provider])
	}

	switch settings.Storage.Backend {
	case domain.StorageSQLite, domain.StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfiguration, settings.Storage.Backend)
	}
	switch settings.Storage.Vector {
	case domain.VectorSQLite, domain.VectorMemory:
	case domain.VectorPostgres:
		if settings.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: %s is required for the postgres vector store", domain.ErrConfiguration, keyStoragePG)
		}
	default:
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrConfiguration, settings.Storage.Vector)
	}

	switch settings.Indexing.Lock {
	case domain.LockMemory, domain.LockRedis:
	default:
		return fmt.Errorf("%w: unknown lock backend %q", domain.ErrConfiguration, settings.Indexing.Lock)
	}

	r := settings.Retrieval
	for key, v := range map[string]float64{
		keyRetrInteractive: r.InteractiveThreshold,
		keyRetrReport:      r.ReportThreshold,
		keyRetrDuplicate:   r.DuplicateThreshold,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("%w: %s must be within [-1, 1], got %v", domain.ErrConfiguration, key, v)
		}
	}
	if settings.Chunking.MaxTokens <= 0 || settings.Chunking.CharsPerToken <= 0 {
		return fmt.Errorf("%w: chunking sizes must be positive", domain.ErrConfiguration)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (s *SettingsService) providerKey(p domain.AIProvider) string {
	if env, ok := providerKeyEnv[p]; ok {
		return s.getenv(env)
	}
	return ""
}

func parseSetting(kind valueKind, value any) (any, error) {
	str, isString := value.(string)
	if !isString {
		return value, nil
	}
	str = strings.TrimSpace(str)
	switch kind {
	case kindInt:
		return strconv.Atoi(str)
	case kindFloat:
		return strconv.ParseFloat(str, 64)
	case kindBool:
		return strconv.ParseBool(str)
	case kindDuration:
		if _, err := time.ParseDuration(str); err != nil {
			return nil, err
		}
		return str, nil
	case kindList:
		var items []string
		for _, item := range strings.Split(str, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return str, nil
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getList(key string, defaultVal []string) []string {
	if val := s.configStore.GetStringSlice(key); len(val) > 0 {
		return val
	}
	if val := s.configStore.GetString(key); val != "" {
		parsed, _ := parseSetting(kindList, val)
		return parsed.([]string)
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
