// Package server exposes the game driver over a local HTTP API and streams
// state changes to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"chessgpt-local/autoplay"
	"chessgpt-local/engine"
	"chessgpt-local/game"
	"chessgpt-local/logging"
	"chessgpt-local/types"
)

// Experiments builds a fresh experiment director per run.
type Experiments func() autoplay.Director

// Server wires HTTP handlers to an orchestrator.
type Server struct {
	orch        *autoplay.Orchestrator
	hub         *Hub
	experiments Experiments
	logger      *log.Logger
	ctx         context.Context
}

// StatusResponse is the JSON view of the orchestrator state.
type StatusResponse struct {
	State       string            `json:"state"`
	White       string            `json:"white"`
	Black       string            `json:"black"`
	Retries     int               `json:"retries"`
	Status      string            `json:"status"`
	Experiments bool              `json:"experiments"`
	History     []string          `json:"history"`
	Board       *types.BoardState `json:"board"`
}

type moveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san,omitempty"`
}

type autoplayRequest struct {
	Enabled bool `json:"enabled"`
}

type pgnRequest struct {
	PGN string `json:"pgn"`
}

type playersRequest struct {
	White string `json:"white"`
	Black string `json:"black"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a server and subscribes it to o's notifications.
// experiments may be nil, which disables the experiments endpoint.
func New(o *autoplay.Orchestrator, experiments Experiments, logger *log.Logger) *Server {
	s := &Server{
		orch:        o,
		hub:         NewHub(),
		experiments: experiments,
		logger:      logging.OrDiscard(logger),
		ctx:         context.Background(),
	}
	o.OnMove(func(color game.Color, move game.Move, _ *types.BoardState) {
		s.hub.Publish("move", map[string]any{"color": color.String(), "move": move})
		s.hub.Publish("status", s.status())
	})
	o.OnGameEnd(func(outcome string, winner game.Winner) {
		s.hub.Publish("game_over", map[string]string{"outcome": outcome, "winner": string(winner)})
	})
	o.OnStatus(func(string) {
		s.hub.Publish("status", s.status())
	})
	return s
}

func (s *Server) status() StatusResponse {
	snap := s.orch.Snapshot()
	return StatusResponse{
		State:       snap.State.String(),
		White:       snap.Players.White.String(),
		Black:       snap.Players.Black.String(),
		Retries:     snap.Retries,
		Status:      snap.Status,
		Experiments: snap.Experiments,
		History:     snap.History,
		Board:       snap.Board,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/state", s.handleState)
	r.Get("/api/sources", s.handleSources)
	r.Post("/api/autoplay", s.handleAutoplay)
	r.Post("/api/move", s.handleMove)
	r.Post("/api/force", s.handleForce)
	r.Post("/api/reset", s.handleReset)
	r.Post("/api/pgn", s.handlePGN)
	r.Post("/api/players", s.handlePlayers)
	r.Post("/api/experiments", s.handleExperiments)
	r.Get("/ws", s.serveWS)
	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	type source struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	var out []source
	for _, d := range engine.Options() {
		out = append(out, source{ID: d.String(), Label: d.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	var req autoplayRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Enabled {
		s.orch.Start(s.ctx)
	} else {
		s.orch.Stop()
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	move := game.Move{From: req.From, To: req.To, Promotion: req.Promotion, SAN: req.SAN}
	if err := s.orch.PlayMove(s.ctx, move); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleForce(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.ForceMove(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.orch.Reset()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	var req pgnRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.orch.LoadPGN(req.PGN); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: autoplay.StatusInvalidPGN})
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	var req playersRequest
	if !decode(w, r, &req) {
		return
	}
	white, err := engine.ParseDescriptor(req.White)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	black, err := engine.ParseDescriptor(req.Black)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.orch.SetPlayers(engine.Pair{White: white, Black: black})
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	var req autoplayRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Enabled {
		s.orch.StopExperiments()
		writeJSON(w, http.StatusOK, s.status())
		return
	}
	if s.experiments == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "experiments are not configured"})
		return
	}
	s.orch.StartExperiments(s.ctx, s.experiments())
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{hub: s.hub, send: make(chan []byte, 16)}
	s.hub.Register(client)
	client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(s.status())})

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			return
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "request_status" {
			client.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(s.status())})
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.ctx = ctx
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx.Done())
		return nil
	})
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.orch.Stop()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
