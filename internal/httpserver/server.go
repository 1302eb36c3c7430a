// internal/httpserver/server.go
//
// HTTP wiring for the bingo backend — the thin service layer over the engine.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", auth signup/login/logout.
//   - Game endpoints (require auth): current game + board, progress submit,
//     per-game board reads, personal stats.
//   - Admin endpoints (require admin): start a new game, optionally declaring
//     a victor for the one being closed.
//
// The engine owns all game semantics; handlers only parse requests, map the
// engine's error kinds onto status codes, and render JSON.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/bitbingo/go-server/internal/bingo"
)

// Server bundles the router, game engine, and DB handle (users/auth only).
type Server struct {
	r   *chi.Mux
	eng *bingo.Engine
	db  *sql.DB
}

// New constructs a Server, installs middleware, and registers routes.
func New(eng *bingo.Engine, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), eng: eng, db: db}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(corsFromEnv)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"bitbingo-go","endpoints":["/health","/auth/*","GET /game","POST /game/progress","GET /stats/me"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Auth
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)
	s.r.With(s.requireAuth()).Get("/auth/me", s.handleMe)

	// Game (gated)
	s.r.With(s.requireAuth()).Get("/game", s.handleCurrentGame)
	s.r.With(s.requireAuth()).Post("/game/progress", s.handleProgress)
	s.r.With(s.requireAuth()).Get("/game/{id}/board", s.handleBoard)
	s.r.With(s.requireAuth()).Get("/stats/me", s.handleStats)

	// Admin (gated harder)
	s.r.With(s.requireAuth(), s.requireAdmin()).Post("/admin/newgame", s.handleNewGame)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin (CLIENT_ORIGIN).
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// handleCurrentGame returns the open game, its board, and the caller's progress.
func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)

	g, err := s.eng.OpenGame(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	board, err := s.eng.Board(r.Context(), g.ID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	completed, err := s.eng.CompletedIndices(r.Context(), g.ID, me.ID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"game":      g,
		"board":     board,
		"completed": completed,
	})
}

// progressReq/Res payloads for POST /game/progress.
type progressReq struct {
	GameID  int64 `json:"gameId"`
	Indices []int `json:"indices"`
}
type progressRes struct {
	Win bool `json:"win"`
}

// handleProgress replaces the caller's completed-cell set and reports whether
// this submission won them the game.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)

	var req progressReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	gameID := req.GameID
	if gameID == 0 {
		g, err := s.eng.OpenGame(r.Context())
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		gameID = g.ID
	}

	win, err := s.eng.SetCompleted(r.Context(), gameID, me.ID, req.Indices)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(progressRes{Win: win})
}

// handleBoard returns the ordered cells for any game, open or closed.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"bad_game_id"}`, http.StatusBadRequest)
		return
	}
	board, err := s.eng.Board(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(board)
}

// handleStats returns the caller's points and won-games count.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	u, err := s.findUserByID(me.ID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"points":   u.Points,
		"gamesWon": u.GamesWon,
	})
}

// ------------------------------ ADMIN --------------------------------------

type newGameReq struct {
	WinnerID *int64 `json:"winnerId"` // optional operator-declared victor
	Size     int    `json:"size"`     // 0 keeps the current board size
}

// handleNewGame closes the current game and opens the next one.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
			return
		}
	}
	g, err := s.eng.StartNewGame(r.Context(), req.WinnerID, req.Size)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(g)
}

// ------------------------------ errors -------------------------------------

// writeEngineError maps the engine's error kinds onto HTTP statuses.
// Invariant violations are logged with full context and become opaque 500s.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bingo.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	case errors.Is(err, bingo.ErrInvalidIndex):
		http.Error(w, `{"error":"invalid_index"}`, http.StatusBadRequest)
	case errors.Is(err, bingo.ErrPoolExhausted):
		http.Error(w, `{"error":"prompt_pool_exhausted"}`, http.StatusBadRequest)
	case errors.Is(err, bingo.ErrGameClosed):
		http.Error(w, `{"error":"game_closed"}`, http.StatusConflict)
	case errors.Is(err, bingo.ErrConflict):
		http.Error(w, `{"error":"conflict_retry"}`, http.StatusConflict)
	default:
		if errors.Is(err, bingo.ErrInvariant) {
			log.Error().Err(err).Msg("engine invariant violation")
		} else {
			log.Error().Err(err).Msg("engine error")
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
}
