package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

store:
  backend: "pgvector"
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768

retrieval:
  k: 7
  score_threshold: 1.5

memory:
  window: 8

ingest:
  chunk_size: 500
  chunk_overlap: 50

server:
  port: "9090"
  streaming: false
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "pgvector", config.Store.Backend)
	assert.Equal(t, "postgres://localhost:5432/test", config.Store.URL)
	assert.Equal(t, 7, config.Retrieval.K)
	assert.Equal(t, 1.5, config.Retrieval.ScoreThreshold)
	assert.Equal(t, 8, config.Memory.Window)
	assert.Equal(t, 500, config.Ingest.ChunkSize)
	assert.Equal(t, "9090", config.Server.Port)
	assert.False(t, config.Server.Streaming)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  provider: ollama\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// The retrieval and memory defaults are the tuned policy constants.
	assert.Equal(t, 5, config.Retrieval.K)
	assert.Equal(t, 3, config.Retrieval.ExpandedK)
	assert.Equal(t, 1.0, config.Retrieval.WidenThreshold)
	assert.Equal(t, 1.2, config.Retrieval.ScoreThreshold)
	assert.Equal(t, 3, config.Retrieval.FallbackTop)
	assert.Equal(t, 6, config.Memory.Window)
	assert.Equal(t, 2000, config.Memory.MaxContext)
	assert.Equal(t, 1000, config.Memory.KeepTail)
	assert.Equal(t, "chromem", config.Store.Backend)
	assert.Equal(t, "chroma_db", config.Store.Path)
}

func TestConfigValidation(t *testing.T) {
	valid, err := getDefaultConfig()
	require.NoError(t, err)
	valid.LLM.Provider = "ollama"
	assert.Empty(t, valid.Validate())

	invalid, err := getDefaultConfig()
	require.NoError(t, err)
	invalid.LLM.Provider = "googleai"
	invalid.LLM.APIKey = ""
	invalid.LLM.MaxTokens = 50000
	invalid.LLM.Temperature = 3.0
	invalid.Store.Backend = "pgvector"
	invalid.Store.URL = ""
	invalid.Retrieval.K = 0
	invalid.Memory.Window = 1

	errs := invalid.Validate()
	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Error()
	}

	assert.Contains(t, messages, "llm.api_key: googleai provider requires GOOGLE_API_KEY or llm.api_key")
	assert.Contains(t, messages, "llm.max_tokens: max_tokens must be between 1 and 8192")
	assert.Contains(t, messages, "llm.temperature: temperature must be between 0 and 1")
	assert.Contains(t, messages, "store.url: pgvector backend requires DATABASE_URL or store.url")
	assert.Contains(t, messages, "retrieval.k: k must be positive")
	assert.Contains(t, messages, "memory.window: window must be at least 2")
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("GOOGLE_API_KEY", "env-key")
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	defer func() {
		os.Unsetenv("GOOGLE_API_KEY")
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.LLM.APIKey)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Store.URL)
}
