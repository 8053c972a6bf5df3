package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	SplitterBoundary  = "boundary"
	SplitterRecursive = "recursive"

	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

type Config struct {
	Source       SourceConfig `yaml:"source"`
	Store        StoreConfig  `yaml:"store"`
	EmbedLLM     LLMConfig    `yaml:"embed_llm"`
	InferenceLLM LLMConfig    `yaml:"inference_llm"`
	RAG          RAGConfig    `yaml:"rag"`
	Server       ServerConfig `yaml:"server"`
	Log          LogConfig    `yaml:"log"`
}

type SourceConfig struct {
	Path string `yaml:"path"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`

	// pgvector only
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	Driver     string `yaml:"driver"`
	Debug      bool   `yaml:"debug"`
	VectorSize int    `yaml:"vector_size"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Key            string  `yaml:"key"`
	Temperature    float64 `yaml:"temperature"`
	StripReasoning bool    `yaml:"strip_reasoning"`
}

type RAGConfig struct {
	ChunkSize             int    `yaml:"chunk_size"`
	ChunkOverlap          int    `yaml:"chunk_overlap"`
	Splitter              string `yaml:"splitter"`
	MergePages            bool   `yaml:"merge_pages"`
	TopK                  int    `yaml:"top_k"`
	EnforceEmbeddingModel bool   `yaml:"enforce_embedding_model"`
	EncryptionKey         string `yaml:"encryption_key"`
}

type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Title string `yaml:"title"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings the pipeline runs with when no file is given.
func Default() *Config {
	return &Config{
		Source: SourceConfig{Path: "Constitution_of_Pakistan.pdf"},
		Store: StoreConfig{
			Backend:    BackendChromem,
			Path:       "constitution_db",
			Collection: "constitution",
			Driver:     DriverPgdriver,
			VectorSize: 768,
		},
		EmbedLLM: LLMConfig{
			Provider: ProviderOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		InferenceLLM: LLMConfig{
			Provider:       ProviderOllama,
			BaseURL:        "http://localhost:11434",
			Model:          "deepseek-r1:1.5b",
			Temperature:    0.2,
			StripReasoning: true,
		},
		RAG: RAGConfig{
			ChunkSize:    1000,
			ChunkOverlap: 150,
			Splitter:     SplitterBoundary,
			TopK:         3,
		},
		Server: ServerConfig{
			Addr:  ":8501",
			Title: "Ask about Pakistan's Constitution",
		},
		Log: LogConfig{Level: "debug"},
	}
}

// LoadConfig overlays the YAML file at path on top of Default. ${VAR} references
// in the file are expanded from the environment first.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Store.Backend != BackendChromem && c.Store.Backend != BackendPgvector {
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("config: store.collection is required")
	}
	switch c.Store.Backend {
	case BackendChromem:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the chromem backend")
		}
	case BackendPgvector:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the pgvector backend")
		}
		if c.Store.Driver != DriverPgdriver && c.Store.Driver != DriverPq {
			return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
		}
		if c.Store.VectorSize <= 0 {
			return fmt.Errorf("config: store.vector_size must be positive")
		}
	}

	if err := c.EmbedLLM.validate("embed_llm"); err != nil {
		return err
	}
	if err := c.InferenceLLM.validate("inference_llm"); err != nil {
		return err
	}

	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("config: rag.chunk_size must be positive")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("config: rag.chunk_overlap must be in [0, chunk_size)")
	}
	if c.RAG.Splitter != SplitterBoundary && c.RAG.Splitter != SplitterRecursive {
		return fmt.Errorf("config: unknown splitter %q", c.RAG.Splitter)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("config: rag.top_k must be positive")
	}
	// chromem uses AES-256
	if n := len(c.RAG.EncryptionKey); n != 0 && n != 32 {
		return fmt.Errorf("config: rag.encryption_key must be 32 bytes, got %d", n)
	}
	return nil
}

func (l LLMConfig) validate(section string) error {
	if l.Provider != ProviderOllama && l.Provider != ProviderOpenAI {
		return fmt.Errorf("config: %s.provider %q is not supported", section, l.Provider)
	}
	if l.Model == "" {
		return fmt.Errorf("config: %s.model is required", section)
	}
	return nil
}
