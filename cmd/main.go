package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
	"github.com/edurag/edurag/pkg/config"
	"github.com/edurag/edurag/pkg/engine"
	"github.com/edurag/edurag/pkg/ingest"
	"github.com/edurag/edurag/pkg/llm"
	"github.com/edurag/edurag/pkg/memory"
	"github.com/edurag/edurag/pkg/query"
	"github.com/edurag/edurag/pkg/retrieval"
	"github.com/edurag/edurag/pkg/store"
	"github.com/edurag/edurag/server"
)

func main() {
	var (
		configPath string
		ingestDir  string
		serve      bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&ingestDir, "ingest", "", "Directory of documents to index, then exit")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP server instead of the interactive chat")
	provider := flag.String("provider", "", "LLM provider (googleai or ollama)")
	model := flag.String("model", "", "LLM model to use")
	port := flag.String("port", "", "HTTP server port")
	stream := flag.Bool("stream", true, "Enable streaming responses")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Command line flags win over the config file, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.LLM.Provider = *provider
		case "model":
			cfg.LLM.Model = *model
		case "port":
			cfg.Server.Port = *port
		case "stream":
			cfg.Server.Streaming = *stream
		}
	})

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		os.Exit(1)
	}

	logger := buildLogger(cfg.Debug)
	defer logger.Sync()

	ctx := context.Background()

	var runErr error
	switch {
	case ingestDir != "":
		runErr = runIngest(ctx, cfg, logger, ingestDir)
	case serve:
		runErr = runServe(ctx, cfg, logger)
	default:
		runErr = runChat(ctx, cfg, logger)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}

func buildLogger(debug bool) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, requireIndex bool) (types.VectorStore, error) {
	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return store.New(ctx, store.Config{
		Backend:      cfg.Store.Backend,
		Path:         cfg.Store.Path,
		Collection:   cfg.Store.Collection,
		Compress:     cfg.Store.Compress,
		ConnString:   cfg.Store.URL,
		TableName:    cfg.Store.TableName,
		VectorDim:    cfg.Store.VectorDim,
		RequireIndex: requireIndex,
	}, embedder, logger)
}

func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger, st types.VectorStore) (*engine.Engine, error) {
	chatEngine, err := llm.NewChatEngine(ctx, llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Language:    cfg.LLM.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	controller := retrieval.NewController(
		query.NewPreprocessor(),
		retrieval.NewHybridRetriever(st, logger),
		st,
		retrieval.Params{
			K1:             cfg.Retrieval.K,
			K2:             cfg.Retrieval.ExpandedK,
			WidenThreshold: cfg.Retrieval.WidenThreshold,
			ScoreThreshold: cfg.Retrieval.ScoreThreshold,
			FallbackTop:    cfg.Retrieval.FallbackTop,
		},
		logger,
	)

	return engine.New(controller, chatEngine, logger), nil
}

func memoryConfig(cfg *config.Config) memory.Config {
	return memory.Config{
		Window:     cfg.Memory.Window,
		MaxContext: cfg.Memory.MaxContext,
		KeepTail:   cfg.Memory.KeepTail,
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func runIngest(ctx context.Context, cfg *config.Config, logger *zap.Logger, dir string) error {
	st, err := newStore(ctx, cfg, logger, false)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer st.Close()

	color.Blue("\nIndexing documents from %s\n", dir)

	var bar *progressbar.ProgressBar
	pipe := ingest.NewPipeline(ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		BatchSize:    cfg.Ingest.BatchSize,
		RateLimit:    cfg.Ingest.RateLimit,
		OnChunk: func(stored, total int) {
			if bar == nil {
				bar = getProgressBar(total, "Storing in vector database...")
			}
			bar.Set(stored)
		},
	}, st, logger)

	stored, err := pipe.Run(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if bar != nil {
		bar.Finish()
	}

	color.Green("\n✓ Indexed %d chunks\n", stored)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := newStore(ctx, cfg, logger, true)
	if err != nil {
		if errors.Is(err, store.ErrEmptyIndex) {
			return fmt.Errorf("no indexed documents found; run with -ingest <dir> first")
		}
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer st.Close()

	eng, err := newEngine(ctx, cfg, logger, st)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:      cfg.Server.Port,
		Streaming: cfg.Server.Streaming,
		Memory:    memoryConfig(cfg),
	}, eng, logger)

	color.Blue("Listening on port %s\n", cfg.Server.Port)
	return srv.ListenAndServe()
}

func runChat(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := newStore(ctx, cfg, logger, true)
	if err != nil {
		if errors.Is(err, store.ErrEmptyIndex) {
			return fmt.Errorf("no indexed documents found; run with -ingest <dir> first")
		}
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer st.Close()

	eng, err := newEngine(ctx, cfg, logger, st)
	if err != nil {
		return err
	}

	conv := memory.NewConversation(memoryConfig(cfg))

	color.Cyan("\nChat with your textbooks (type 'exit' to quit, '/reset' to clear memory)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			conv.Reset()
			color.Yellow("Conversation cleared.")
			continue
		}

		req := engine.Request{Query: input}

		var resp engine.Response
		if cfg.Server.Streaming {
			fmt.Print("\n")
			assistantPrompt("Assistant: ")
			resp, err = eng.AskStream(ctx, conv, req, func(chunk string) {
				assistantPrompt("%s", chunk)
			})
			fmt.Print("\n")
		} else {
			spinner := getSpinner("Generating response...")
			resp, err = eng.Ask(ctx, conv, req)
			spinner.Finish()
			fmt.Print("\r")
			if err == nil {
				fmt.Print("\n")
				assistantPrompt("Assistant: %s\n", resp.Answer)
			}
		}
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		printSources(resp.Citations)
	}

	return scanner.Err()
}

func printSources(citations []models.Citation) {
	if len(citations) == 0 {
		return
	}
	parts := make([]string, len(citations))
	for i, c := range citations {
		parts[i] = fmt.Sprintf("%s (Page %v)", c.Source, c.Page)
	}
	color.Yellow("Sources: %s\n", strings.Join(parts, ", "))
}
