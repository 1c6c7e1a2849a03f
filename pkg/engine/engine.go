// Package engine ties the retrieval pipeline to the generation collaborator:
// preprocess, retrieve, assemble context, generate, then fold the exchange
// into conversation memory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/internal/types"
	"github.com/edurag/edurag/pkg/assemble"
	"github.com/edurag/edurag/pkg/memory"
)

var (
	// ErrInvalidInput means the request was malformed; nothing was retrieved
	// or generated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneration means the generation collaborator failed. Retrieval
	// succeeded; memory was left untouched.
	ErrGeneration = errors.New("generation failed")
)

// Retriever returns the chunks relevant to a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.Chunk, error)
}

// StreamGenerator is implemented by generators that can also deliver the
// answer incrementally while producing it.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, history, docContext, question string, fn func(chunk string)) (string, error)
}

// Request is one question from one session.
type Request struct {
	Query    string
	HasImage bool
}

// Response is the generated answer with its supporting citations.
type Response struct {
	Answer    string
	Citations []models.Citation
}

// Engine handles one request at a time per session; sessions are independent.
type Engine struct {
	retriever Retriever
	assembler *assemble.Assembler
	generator types.Generator
	logger    *zap.Logger
}

func New(retriever Retriever, generator types.Generator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		retriever: retriever,
		assembler: assemble.New(),
		generator: generator,
		logger:    logger,
	}
}

// Ask answers a question against the corpus, using conv for conversation
// history. conv may be nil for stateless, single-shot requests. Memory is
// mutated only after generation succeeds; a failed request leaves conv
// exactly as it was.
func (e *Engine) Ask(ctx context.Context, conv *memory.Conversation, req Request) (Response, error) {
	return e.ask(ctx, conv, req, e.generator.Generate)
}

// AskStream is Ask with the answer also delivered incrementally through fn.
// When the generator cannot stream the answer arrives in one piece.
func (e *Engine) AskStream(ctx context.Context, conv *memory.Conversation, req Request, fn func(chunk string)) (Response, error) {
	sg, ok := e.generator.(StreamGenerator)
	if !ok {
		return e.ask(ctx, conv, req, e.generator.Generate)
	}
	return e.ask(ctx, conv, req, func(ctx context.Context, history, docContext, question string) (string, error) {
		return sg.GenerateStream(ctx, history, docContext, question, fn)
	})
}

func (e *Engine) ask(ctx context.Context, conv *memory.Conversation, req Request, generate func(ctx context.Context, history, docContext, question string) (string, error)) (Response, error) {
	queryText := strings.TrimSpace(req.Query)
	if queryText == "" {
		return Response{}, fmt.Errorf("%w: missing query", ErrInvalidInput)
	}

	chunks, err := e.retriever.Retrieve(ctx, queryText)
	if err != nil {
		e.logger.Error("retrieval failed", zap.String("query", queryText), zap.Error(err))
		return Response{}, fmt.Errorf("retrieving context: %w", err)
	}

	docContext, citations := e.assembler.Assemble(chunks)

	userTurn := memory.Turn{Role: memory.RoleUser, Content: queryText, HasImage: req.HasImage}
	history := ""
	if conv != nil {
		history = conv.HistoryFor(userTurn)
	}

	answer, err := generate(ctx, history, docContext, queryText)
	if err != nil {
		e.logger.Error("generation failed", zap.String("query", queryText), zap.Error(err))
		return Response{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if conv != nil {
		conv.AppendTurn(userTurn)
		conv.AppendTurn(memory.Turn{Role: memory.RoleAssistant, Content: answer})
		conv.RecordExchange(queryText, answer)
	}

	e.logger.Info("answered query",
		zap.String("query", queryText),
		zap.Int("chunks", len(chunks)),
		zap.Int("citations", len(citations)),
	)
	return Response{Answer: answer, Citations: citations}, nil
}
