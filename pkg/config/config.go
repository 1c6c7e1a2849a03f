package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		Language    string  `yaml:"language"`
	} `yaml:"llm"`

	Embedding struct {
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"embedding"`

	Store struct {
		Backend    string `yaml:"backend"`
		Path       string `yaml:"path"`
		Collection string `yaml:"collection"`
		Compress   bool   `yaml:"compress"`
		URL        string `yaml:"url"`
		TableName  string `yaml:"table_name"`
		VectorDim  int    `yaml:"vector_dim"`
	} `yaml:"store"`

	Retrieval struct {
		K              int     `yaml:"k"`
		ExpandedK      int     `yaml:"expanded_k"`
		WidenThreshold float64 `yaml:"widen_threshold"`
		ScoreThreshold float64 `yaml:"score_threshold"`
		FallbackTop    int     `yaml:"fallback_top"`
	} `yaml:"retrieval"`

	Memory struct {
		Window     int `yaml:"window"`
		MaxContext int `yaml:"max_context"`
		KeepTail   int `yaml:"keep_tail"`
	} `yaml:"memory"`

	Ingest struct {
		ChunkSize    int     `yaml:"chunk_size"`
		ChunkOverlap int     `yaml:"chunk_overlap"`
		BatchSize    int     `yaml:"batch_size"`
		RateLimit    float64 `yaml:"rate_limit"`
	} `yaml:"ingest"`

	Server struct {
		Port      string `yaml:"port"`
		Streaming bool   `yaml:"streaming"`
	} `yaml:"server"`

	Debug bool `yaml:"debug"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/edurag/config.yaml"),
			"/etc/edurag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "googleai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "googleai" {
			config.LLM.Model = "gemini-1.0-pro"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "chromem"
	}
	if config.Store.Path == "" {
		config.Store.Path = "chroma_db"
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "edurag"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "chunks"
	}
	if config.Store.VectorDim == 0 {
		config.Store.VectorDim = 768
	}

	if config.Retrieval.K == 0 {
		config.Retrieval.K = 5
	}
	if config.Retrieval.ExpandedK == 0 {
		config.Retrieval.ExpandedK = 3
	}
	if config.Retrieval.WidenThreshold == 0 {
		config.Retrieval.WidenThreshold = 1.0
	}
	if config.Retrieval.ScoreThreshold == 0 {
		config.Retrieval.ScoreThreshold = 1.2
	}
	if config.Retrieval.FallbackTop == 0 {
		config.Retrieval.FallbackTop = 3
	}

	if config.Memory.Window == 0 {
		config.Memory.Window = 6
	}
	if config.Memory.MaxContext == 0 {
		config.Memory.MaxContext = 2000
	}
	if config.Memory.KeepTail == 0 {
		config.Memory.KeepTail = 1000
	}

	if config.Ingest.ChunkSize == 0 {
		config.Ingest.ChunkSize = 1000
	}
	if config.Ingest.ChunkOverlap == 0 {
		config.Ingest.ChunkOverlap = 100
	}
	if config.Ingest.BatchSize == 0 {
		config.Ingest.BatchSize = 32
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
