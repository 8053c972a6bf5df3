// Package web serves the single page question form.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"constitution-rag/internal/models"
	"constitution-rag/internal/rag"
)

//go:embed templates/index.html
var templateFS embed.FS

const shutdownTimeout = 10 * time.Second

// Asker answers one question. rag.Querier satisfies it.
type Asker interface {
	Query(ctx context.Context, query string) (*models.PromptResponse, error)
}

type page struct {
	Title    string
	Question string
	Answer   template.HTML
	Sources  string
	Error    string
}

type Server struct {
	asker Asker
	title string
	tmpl  *template.Template
	md    goldmark.Markdown

	// one question is processed at a time
	mu sync.Mutex
}

func NewServer(asker Asker, title string) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		asker: asker,
		title: title,
		tmpl:  tmpl,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleAsk)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, page{Title: s.title})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		s.render(w, http.StatusOK, page{Title: s.title})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a submitted question runs to completion even if the browser goes away
	ctx := context.WithoutCancel(r.Context())
	start := time.Now()
	resp, err := s.asker.Query(ctx, question)
	if err != nil {
		log.Error().Err(err).Str("question", question).Msg("Error answering question")
		s.render(w, http.StatusInternalServerError, page{Title: s.title, Question: question, Error: err.Error()})
		return
	}
	log.Info().Str("question", question).Dur("elapsed", time.Since(start)).Msg("Answered question")

	answer, err := s.renderMarkdown(resp.Content)
	if err != nil {
		s.render(w, http.StatusInternalServerError, page{Title: s.title, Question: question, Error: err.Error()})
		return
	}
	s.render(w, http.StatusOK, page{
		Title:    s.title,
		Question: question,
		Answer:   answer,
		Sources:  rag.SourceSummary(resp.Sources),
	})
}

// renderMarkdown converts the answer to HTML. Raw HTML in the answer is
// omitted by goldmark's default renderer.
func (s *Server) renderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return template.HTML(strings.TrimSpace(buf.String())), nil
}

func (s *Server) render(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, p); err != nil {
		log.Error().Err(err).Msg("Error rendering page")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
