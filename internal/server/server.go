// Package server exposes program assembly over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/stackload/pkg/assembler"
	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 5 * time.Minute

// maxBody caps request bodies.
const maxBody = 1 << 20

// Options configures a [Server].
type Options struct {
	Metrics http.Handler  // Served at /metrics when set
	Logger  *log.Logger   // (default: log.Default())
	Timeout time.Duration // Per-request timeout (default: DefaultTimeout)
}

// Server routes HTTP requests to an assembler. Each assemble request
// gets a fresh sandbox.
type Server struct {
	asm    *assembler.Assembler
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New builds the router.
func New(a *assembler.Assembler, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Server{asm: a, opts: opts, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/assemble", s.handleAssemble)
		r.Post("/provision", s.handleProvision)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// AssembleRequest is the body of POST /v1/assemble.
type AssembleRequest struct {
	URI string            `json:"uri"`
	Add []locator.Locator `json:"add,omitempty"`
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URI == "" {
		s.fail(w, errors.New(errors.ErrCodeInvalidInput, "uri is required"))
		return
	}

	summary, err := s.assemble(r.Context(), req.URI, req.Add)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) assemble(ctx context.Context, uri string, add []locator.Locator) (assembler.Summary, error) {
	sb := sandbox.New(sandbox.WithLogger(s.logger))
	prog, err := s.asm.AssembleProgram(ctx, sb, uri, assembler.AssembleOptions{})
	if err != nil {
		return assembler.Summary{}, err
	}
	for _, loc := range add {
		if _, _, err := s.asm.AddPackageToProgram(ctx, sb, prog, loc); err != nil {
			return assembler.Summary{}, err
		}
	}
	return assembler.Summarize(prog, sb), nil
}

// ProvisionRequest is the body of POST /v1/provision.
type ProvisionRequest struct {
	URL      string `json:"url"`
	Assemble bool   `json:"assemble,omitempty"`
}

// ProvisionResponse is returned by POST /v1/provision.
type ProvisionResponse struct {
	Path    string             `json:"path"`
	Summary *assembler.Summary `json:"summary,omitempty"`
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		s.fail(w, errors.New(errors.ErrCodeInvalidInput, "url is required"))
		return
	}

	path, err := s.asm.ProvisionProgramForURL(r.Context(), req.URL)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := ProvisionResponse{Path: path}
	if req.Assemble {
		summary, err := s.assemble(r.Context(), path, nil)
		if err != nil {
			s.fail(w, err)
			return
		}
		resp.Summary = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return false
	}
	return true
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, ErrorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	})
}

// StatusFor maps an error to an HTTP status by its outermost code.
func StatusFor(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return 499
	case stderrors.Is(err, assembler.ErrVetoed):
		return http.StatusForbidden
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidLocator, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidDescriptor, errors.ErrCodeInvalidArchive, errors.ErrCodeUnknownProvider:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeLocationNotFound:
		return http.StatusNotFound
	case errors.ErrCodeFetch, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeProgramConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
