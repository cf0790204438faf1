package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edugo/edugen/core/common"
	"github.com/gogf/gf/v2/frame/g"
)

// ValidateConfiguration validates all required configuration items
func ValidateConfiguration(ctx context.Context) error {
	var missingConfigs []string
	var warnings []string

	// embedding service
	embeddingAPIKey := g.Cfg().MustGet(ctx, "embedding.apiKey", "").String()
	embeddingBaseURL := g.Cfg().MustGet(ctx, "embedding.baseURL", "").String()
	embeddingModel := g.Cfg().MustGet(ctx, "embedding.model", "").String()

	if embeddingAPIKey == "" {
		warnings = append(warnings, "embedding.apiKey is not set, embedding calls will run degraded")
	}
	if embeddingBaseURL == "" {
		warnings = append(warnings, "embedding.baseURL is not set, embedding calls will run degraded")
	}
	if embeddingModel == "" {
		missingConfigs = append(missingConfigs, "embedding.model")
	}

	// completion service
	chatAPIKey := g.Cfg().MustGet(ctx, "chat.apiKey", "").String()
	chatModel := g.Cfg().MustGet(ctx, "chat.model", "").String()

	if chatAPIKey == "" {
		warnings = append(warnings, "chat.apiKey is not set, generation calls will run degraded")
	}
	if chatModel == "" {
		missingConfigs = append(missingConfigs, "chat.model")
	}

	// vector store backend
	storeType := g.Cfg().MustGet(ctx, "vectorStore.type", "memory").String()
	switch storeType {
	case "memory":
		// nothing external to check
	case "milvus":
		if g.Cfg().MustGet(ctx, "milvus.address", "").String() == "" {
			missingConfigs = append(missingConfigs, "milvus.address")
		}
	case "pgvector":
		for _, key := range []string{"postgres.host", "postgres.user", "postgres.database"} {
			if g.Cfg().MustGet(ctx, key, "").String() == "" {
				missingConfigs = append(missingConfigs, key)
			}
		}
	default:
		missingConfigs = append(missingConfigs, fmt.Sprintf("vectorStore.type (unsupported value %q)", storeType))
	}

	if len(warnings) > 0 {
		g.Log().Warningf(ctx, "Configuration warnings:\n- %s", strings.Join(warnings, "\n- "))
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configuration items:\n- %s\n\nPlease check your config.yaml file and ensure all required settings are properly configured", strings.Join(missingConfigs, "\n- "))
	}

	g.Log().Info(ctx, "All required configuration items are present")

	return nil
}

// EmbeddingConfig exposes the settings the embedding client needs
type EmbeddingConfig interface {
	GetAPIKey() string
	GetBaseURL() string
	GetEmbeddingModel() string
	GetDimension() int
	GetEmbeddingTimeout() time.Duration
}

// Config engine-level configuration shared by every component
type Config struct {
	// embedding service
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimension      int // embedding vector dimension, default 1536
	// completion service
	ChatAPIKey  string
	ChatBaseURL string
	ChatModel   string
	Temperature float32
	// timeouts per provider call
	EmbeddingTimeout  time.Duration
	CompletionTimeout time.Duration
}

// RetrieverConfig retriever-specific configuration
type RetrieverConfig struct {
	IndexName        string // default index queried when a request names none
	TopK             int    // default result count (default 5)
	MaxContextTokens int    // default context budget (default 1000)
}

// IndexerConfig ingestion-specific configuration
type IndexerConfig struct {
	IndexName    string // default target index
	ChunkSize    int    // words per chunk (default 500)
	ChunkOverlap int    // overlapping words between neighbors (default 100)
	BatchSize    int    // texts per embedding call (default 5)
}

// Config implements the embedding config interface
func (c *Config) GetAPIKey() string         { return c.APIKey }
func (c *Config) GetBaseURL() string        { return c.BaseURL }
func (c *Config) GetEmbeddingModel() string { return c.EmbeddingModel }
func (c *Config) GetDimension() int {
	if c.Dimension > 0 {
		return c.Dimension
	}
	return common.DefaultDimension
}
func (c *Config) GetEmbeddingTimeout() time.Duration { return c.EmbeddingTimeout }

// Load reads the engine configuration from config.yaml
func Load(ctx context.Context) *Config {
	return &Config{
		APIKey:            g.Cfg().MustGet(ctx, "embedding.apiKey", "").String(),
		BaseURL:           g.Cfg().MustGet(ctx, "embedding.baseURL", "").String(),
		EmbeddingModel:    g.Cfg().MustGet(ctx, "embedding.model", "").String(),
		Dimension:         g.Cfg().MustGet(ctx, "embedding.dim", common.DefaultDimension).Int(),
		ChatAPIKey:        g.Cfg().MustGet(ctx, "chat.apiKey", "").String(),
		ChatBaseURL:       g.Cfg().MustGet(ctx, "chat.baseURL", "").String(),
		ChatModel:         g.Cfg().MustGet(ctx, "chat.model", "").String(),
		Temperature:       float32(g.Cfg().MustGet(ctx, "chat.temperature", 0.7).Float64()),
		EmbeddingTimeout:  g.Cfg().MustGet(ctx, "embedding.timeout", "15s").Duration(),
		CompletionTimeout: g.Cfg().MustGet(ctx, "chat.timeout", "30s").Duration(),
	}
}

// LoadRetriever reads the retriever configuration from config.yaml
func LoadRetriever(ctx context.Context) *RetrieverConfig {
	return &RetrieverConfig{
		IndexName:        g.Cfg().MustGet(ctx, "retriever.indexName", common.DefaultIndexName).String(),
		TopK:             g.Cfg().MustGet(ctx, "retriever.topK", 5).Int(),
		MaxContextTokens: g.Cfg().MustGet(ctx, "retriever.maxContextTokens", 1000).Int(),
	}
}

// LoadIndexer reads the ingestion configuration from config.yaml
func LoadIndexer(ctx context.Context) *IndexerConfig {
	return &IndexerConfig{
		IndexName:    g.Cfg().MustGet(ctx, "indexer.indexName", common.DefaultIndexName).String(),
		ChunkSize:    g.Cfg().MustGet(ctx, "indexer.chunkSize", 500).Int(),
		ChunkOverlap: g.Cfg().MustGet(ctx, "indexer.chunkOverlap", 100).Int(),
		BatchSize:    g.Cfg().MustGet(ctx, "indexer.batchSize", 5).Int(),
	}
}
