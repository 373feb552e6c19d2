// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/thywilljoshua/legal-agent/internal/legal"
	"github.com/thywilljoshua/legal-agent/internal/pipeline"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

type Extractor interface {
	Extract(ctx context.Context, data []byte) (legal.Document, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, doc legal.Document, in pipeline.AnalyzeInput) (legal.Report, error)
}

type Options struct {
	MaxUploadBytes int64
	// Rules is the rule set used when a request asks for rule checks. Nil
	// means pipeline.DefaultRules.
	Rules []string
}

type Server struct {
	extractor Extractor
	analyzer  Analyzer
	opts      Options
	log       *slog.Logger
}

func New(extractor Extractor, analyzer Analyzer, opts Options, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}
	if opts.Rules == nil {
		opts.Rules = pipeline.DefaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{extractor: extractor, analyzer: analyzer, opts: opts, log: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/analyze", s.handleAnalyze)
	return r
}

type ctxKey struct{}

// requestID tags each request with a uuid, echoed in X-Request-Id and
// attached to the request's logger.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		ctx := context.WithValue(r.Context(), ctxKey{}, s.log.With("req_id", rid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return s.log
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := s.logger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeInputError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d MB", s.opts.MaxUploadBytes>>20))
			return
		}
		writeInputError(w, http.StatusBadRequest, "expected a multipart form: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, hdr, err := r.FormFile("document")
	if err != nil {
		writeInputError(w, http.StatusBadRequest, "missing document file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeInputError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	in := pipeline.AnalyzeInput{Scenario: strings.TrimSpace(r.FormValue("scenario"))}
	if truthy(r.FormValue("rules")) {
		in.Rules = s.opts.Rules
	}
	log.Info("server.analyze.start",
		"filename", hdr.Filename,
		"bytes", len(data),
		"scenario", in.Scenario != "",
		"rules", len(in.Rules),
	)

	doc, err := s.extractor.Extract(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.analyzer.Analyze(r.Context(), doc, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if truthy(r.URL.Query().Get("download")) {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(hdr.Filename)))
	}
	log.Info("server.analyze.ok",
		"pages", doc.PageCount(),
		"sections", len(report.Sections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, report)
}

// reportFilename derives "<slug>_analysis.json" from the uploaded file name.
func reportFilename(upload string) string {
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	slug := strings.ReplaceAll(slugify(base), "-", "_")
	if slug == "" {
		slug = "legal"
	}
	return slug + "_analysis.json"
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
