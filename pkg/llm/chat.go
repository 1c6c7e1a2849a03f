package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ChatConfig configures the generation collaborator.
type ChatConfig struct {
	Provider    string // "googleai" or "ollama"
	Model       string
	APIKey      string // required for googleai
	BaseURL     string // Ollama server URL
	Temperature float64
	MaxTokens   int
	Language    string // optional answer language, e.g. "Hindi"
}

// ChatEngine generates grounded answers from retrieved context and the
// rendered conversation history.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewChatEngine creates a ChatEngine for the configured provider.
func NewChatEngine(ctx context.Context, config ChatConfig) (*ChatEngine, error) {
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}

	var model llms.Model
	var err error
	switch config.Provider {
	case "googleai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("googleai provider requires an API key")
		}
		if config.Model == "" {
			config.Model = "gemini-1.0-pro"
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(config.Model))
	case "ollama", "":
		config.Provider = "ollama"
		if config.Model == "" {
			config.Model = "mistral"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{config: config, llm: model}, nil
}

// Generate produces the answer for a question given the assembled context and
// conversation history. Synchronous, one round-trip, no retries.
func (ce *ChatEngine) Generate(ctx context.Context, history, docContext, question string) (string, error) {
	prompt := BuildPrompt(history, docContext, question, ce.config.Language)

	answer, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// GenerateStream is Generate with the answer also delivered incrementally
// through fn as it arrives.
func (ce *ChatEngine) GenerateStream(ctx context.Context, history, docContext, question string, fn func(chunk string)) (string, error) {
	prompt := BuildPrompt(history, docContext, question, ce.config.Language)

	answer, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			fn(string(chunk))
			return nil
		}))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// BuildPrompt renders the generation prompt. The wording follows the tutoring
// template the system was built around: answer only from the supplied
// textbook context, stay conversational, admit when the context has no
// answer.
func BuildPrompt(history, docContext, question, language string) string {
	var b strings.Builder

	b.WriteString("You are an expert educational assistant helping students with their textbooks. ")
	b.WriteString("You are having a conversation with a student and should respond in a helpful, conversational manner.\n")
	b.WriteString("Answer the student's question based only on the provided context. ")
	b.WriteString("If the information to answer the question is not in the context, you must state ")
	b.WriteString("\"I cannot find the answer in the provided text.\" ")
	b.WriteString("Do not add any information that is not present in the context.\n")
	if language != "" {
		fmt.Fprintf(&b, "Respond in %s.\n", language)
	}

	b.WriteString("\nPrevious conversation:\n")
	b.WriteString(history)
	b.WriteString("\n\nContext from textbook(s):\n")
	b.WriteString(docContext)
	b.WriteString("\n\nStudent's Question: ")
	b.WriteString(question)
	b.WriteString("\n\nYour Response:\n")

	return b.String()
}
