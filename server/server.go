// Package server exposes the question-answering engine over HTTP: a JSON
// /ask endpoint for stateless single-shot questions and a /ws websocket for
// chat sessions that keep conversation memory for the life of the connection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/pkg/engine"
	"github.com/edurag/edurag/pkg/memory"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the websocket frame in both directions.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Port      string
	Streaming bool
	Memory    memory.Config
}

type Server struct {
	config Config
	engine *engine.Engine
	logger *zap.Logger
}

func New(config Config, eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{config: config, engine: eng, logger: logger}
}

// Handler returns the HTTP routes. Separate from ListenAndServe so tests can
// drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) ListenAndServe() error {
	addr := ":" + s.config.Port
	s.logger.Info("starting server", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

type askRequest struct {
	Query    string `json:"query"`
	HasImage bool   `json:"has_image,omitempty"`
}

type askResponse struct {
	Answer  string            `json:"answer"`
	Sources []models.Citation `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleAsk answers a single question with no conversation memory. Each
// request stands alone.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	resp, err := s.engine.Ask(r.Context(), nil, engine.Request{Query: req.Query, HasImage: req.HasImage})
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	sources := resp.Citations
	if sources == nil {
		sources = []models.Citation{}
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: resp.Answer, Sources: sources})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Client likely went away mid-response.
		return
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Each connection is its own session with its own memory.
	conv := memory.NewConversation(s.config.Memory)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}

		s.handleMessage(r.Context(), conn, conv, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, conn *websocket.Conn, conv *memory.Conversation, msg Message) {
	switch msg.Type {
	case "reset":
		conv.Reset()
		s.sendMessage(conn, "status", "conversation reset")
		return
	case "ask", "":
	default:
		s.sendMessage(conn, "error", fmt.Sprintf("unknown message type: %s", msg.Type))
		return
	}

	req := engine.Request{Query: msg.Content}

	var resp engine.Response
	var err error
	if s.config.Streaming {
		resp, err = s.engine.AskStream(ctx, conv, req, func(chunk string) {
			s.sendMessage(conn, "stream", chunk)
		})
	} else {
		resp, err = s.engine.Ask(ctx, conv, req)
	}
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		s.logger.Error("chat turn failed", zap.Error(err))
		s.sendMessage(conn, "error", "internal error")
		return
	}

	s.send(conn, Message{Type: "response", Content: resp.Answer, Data: resp.Citations})
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	s.send(conn, Message{Type: msgType, Content: content})
}

func (s *Server) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Error("websocket write failed", zap.Error(err))
	}
}
