// Package server is the read-only HTTP JSON API over the engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"Seesaw/internal/engine"
	"Seesaw/internal/gearbox"
	"Seesaw/internal/trait"
)

// Server serves recompute results and metrics.
type Server struct {
	eng *engine.Engine
	srv *http.Server
}

// New builds a server listening on addr.
func New(addr string, eng *engine.Engine) *Server {
	s := &Server{eng: eng}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("healthz write failed")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/positions", func(r chi.Router) {
		r.Get("/", s.listPositions)
		r.Get("/{name}", s.showPosition)
		r.Get("/{name}/recommendation", s.recommend)
	})
	r.Get("/models", s.listModels)
	r.Get("/traits", s.listTraits)
	return r
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server crashed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	st, err := s.eng.Recompute(nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) showPosition(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.Show(chi.URLParam(r, "name"), toggles(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	rec, _, err := s.eng.Recommend(chi.URLParam(r, "name"), toggles(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type modelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	out := []modelInfo{}
	for _, m := range gearbox.Models() {
		out = append(out, modelInfo{ID: m.ID(), Name: m.Name()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTraits(w http.ResponseWriter, r *http.Request) {
	out := map[string][]*trait.Trait{}
	for _, c := range s.eng.Library().Categories() {
		out[c.Name] = c.Traits
	}
	writeJSON(w, http.StatusOK, out)
}

// toggles reads repeated ?toggle=id parameters.
func toggles(r *http.Request) trait.Toggles {
	ids := r.URL.Query()["toggle"]
	if len(ids) == 0 {
		return nil
	}
	t := make(trait.Toggles, len(ids))
	for _, id := range ids {
		t[id] = true
	}
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownPosition):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrCurrencyPosition):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", ww.Status()).
			Dur("took", time.Since(start)).Str("request_id", middleware.GetReqID(r.Context())).Msg("http request")
	})
}
