// Package web serves the single-page chat UI and a small JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/service"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Asker is the web-facing subset of the RAG service.
type Asker interface {
	Ask(ctx context.Context, query string) (*service.Answer, error)
}

// Server renders the chat page and answers queries.
type Server struct {
	asker    Asker
	overview string
	log      *slog.Logger
	mux      *http.ServeMux
}

type pageData struct {
	Overview string
	Query    string
	Answered bool
	Response string
	Error    string
}

type askRequest struct {
	Query string `json:"query"`
}

type askSource struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type askResponse struct {
	Answer  string      `json:"answer"`
	Sources []askSource `json:"sources"`
}

type errorBody struct {
	Error string `json:"error"`
}

// NewServer wires the routes. overview is shown under the page title.
func NewServer(asker Asker, overview string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{asker: asker, overview: overview, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("POST /api/ask", s.handleAPIAsk)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return s
}

// ServeHTTP tags every request with an id and logs it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := uuid.NewString()
	w.Header().Set("X-Request-Id", id)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info("http request",
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{Overview: s.overview})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	query := r.FormValue("query")
	data := pageData{Overview: s.overview, Query: query}
	if strings.TrimSpace(query) == "" {
		s.render(w, http.StatusOK, data)
		return
	}
	text, err := service.ResponseText(s.asker.Ask(r.Context(), query))
	if err != nil {
		s.log.Error("ask failed", "error", err)
		data.Error = err.Error()
		s.render(w, http.StatusInternalServerError, data)
		return
	}
	data.Answered = true
	data.Response = text
	s.render(w, http.StatusOK, data)
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	ans, err := s.asker.Ask(r.Context(), req.Query)
	text, err := service.ResponseText(ans, err)
	if err != nil {
		s.log.Error("ask failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	resp := askResponse{Answer: text, Sources: []askSource{}}
	if ans != nil {
		for _, src := range ans.Sources {
			resp.Sources = append(resp.Sources, askSource{ID: src.Document.ID, Text: src.Document.Text, Score: src.Score})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.log.Error("render page", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ListenAndServe runs the server on addr until ctx is cancelled, then shuts
// it down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("web UI listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
