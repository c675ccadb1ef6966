// internal/httpserver/server.go
//
// HTTP server wiring for the hosted match store.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Match record endpoints (anon key required): mounted under /matches.
//   - Debug endpoint: /debug/words.
//
// Notes:
//   - CORS is origin‑aware so a browser client on another port can call in.
//   - The server stamps updated_at on every write; clients never set it.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/youme-word/internal/game"
	"github.com/robalobadob/youme-word/internal/store"
	"github.com/robalobadob/youme-word/internal/words"
)

// Options configures a Server.
type Options struct {
	JWTSecret      string
	ClientOrigin   string
	HandlerTimeout time.Duration
}

// Server bundles router, match store and word lists.
type Server struct {
	r      *chi.Mux
	store  store.Store
	words  *words.Lists
	secret []byte
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, lists *words.Lists, opts Options) *Server {
	s := &Server{r: chi.NewRouter(), store: st, words: lists, secret: []byte(opts.JWTSecret)}

	timeout := opts.HandlerTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)            // honor or add X-Request-ID
	s.r.Use(chimw.RealIP)               // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)              // one zerolog line per request
	s.r.Use(chimw.Recoverer)            // recover from panics
	s.r.Use(chimw.Timeout(timeout))     // bound handler time
	s.r.Use(jsonContentType)            // default JSON responses
	s.r.Use(corsFor(opts.ClientOrigin)) // browser clients

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"youme-word","endpoints":["/health","PUT /matches/{id}","GET /matches/{id}","GET /matches","DELETE /matches"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Match records (anon key required)
	s.r.Route("/matches", func(r chi.Router) {
		r.Use(s.requireAnonKey())
		r.Get("/", s.handleList)
		r.Delete("/", s.handleCleanup)
		r.Put("/{id}", s.handleUpsert)
		r.Get("/{id}", s.handleGet)
	})

	// Debug: word list counts
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		a, g := s.words.Stats()
		_ = json.NewEncoder(w).Encode(map[string]int{"answers": a, "allowed": g})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Handler exposes the router (used by http.Server and tests).
func (s *Server) Handler() http.Handler { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs method, path, status and latency at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------ MATCHES ------------------------------------

// handleUpsert replaces the record at {id}. The body's id must match.
func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rec store.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if rec.ID == "" {
		rec.ID = id
	}
	if rec.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch")
		return
	}
	if rec.GameCode >= s.words.Len() {
		writeError(w, http.StatusBadRequest, "game_code_out_of_range")
		return
	}
	if err := s.store.Upsert(r.Context(), rec); err != nil {
		if errors.Is(err, store.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("match_id", id).Msg("upsert match")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGet returns the record at {id} or 404.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("match_id", id).Msg("get match")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(rec)
}

// handleList answers GET /matches?game_code=N[&limit=K] with the seats of
// that code. limit defaults to 2, the number of seats in a match.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.URL.Query().Get("game_code"))
	if err != nil || code < 0 {
		writeError(w, http.StatusBadRequest, "game_code")
		return
	}
	limit := 2
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit")
			return
		}
	}
	out, err := s.seats(r, code, limit)
	if err != nil {
		log.Error().Err(err).Int("game_code", code).Msg("list matches")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

// seats collects up to limit records for a code, host first.
func (s *Server) seats(r *http.Request, code, limit int) ([]store.Record, error) {
	out := []store.Record{}
	for _, role := range []game.Role{game.RoleHost, game.RoleGuest} {
		if len(out) >= limit {
			break
		}
		rec, err := s.store.Get(r.Context(), store.MatchID(code, role))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// handleCleanup deletes records older than the given RFC3339 instant.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	cutoff, err := time.Parse(time.RFC3339Nano, r.URL.Query().Get("older_than"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "older_than")
		return
	}
	n, err := s.store.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("cleanup matches")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("cleanup matches")
	_ = json.NewEncoder(w).Encode(map[string]int64{"deleted": n})
}

// writeError writes {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
