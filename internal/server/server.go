// Package server exposes the counseling service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/canbcare/counselor/internal/catalog"
	"github.com/canbcare/counselor/internal/counsel"
	"github.com/canbcare/counselor/internal/dispatch"
	"github.com/canbcare/counselor/internal/feature"
	"github.com/canbcare/counselor/internal/intake"
)

const maxBodyBytes = 32 << 20

// Server serves the counseling API.
type Server struct {
	svc    *counsel.Service
	logger *zap.Logger
}

// New creates a server around svc.
func New(svc *counsel.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /catalog", s.catalog)
	mux.HandleFunc("POST /classify", s.classify)
	mux.HandleFunc("POST /counsel", s.counsel)
	mux.HandleFunc("POST /batch-counsel", s.batchCounsel)
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, giving in-flight batches up to grace to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

type catalogEntry struct {
	Code     string           `json:"code"`
	Category catalog.Category `json:"category"`
	Name     string           `json:"name"`
	Summary  string           `json:"summary"`
	Order    int              `json:"order"`
}

type catalogResponse struct {
	Version string         `json:"version"`
	Cases   []catalogEntry `json:"cases"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"catalog_version": s.svc.Engine().Catalog().Version(),
	})
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	c := s.svc.Engine().Catalog()
	resp := catalogResponse{Version: c.Version(), Cases: make([]catalogEntry, 0, c.Len())}
	for _, d := range c.Definitions() {
		resp.Cases = append(resp.Cases, catalogEntry{
			Code:     d.Code,
			Category: d.Category,
			Name:     d.Name,
			Summary:  d.Summary,
			Order:    d.Order,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := feature.DecodeRecord(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := rec.Snapshot()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, err := s.svc.Classify(snap)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) counsel(w http.ResponseWriter, r *http.Request) {
	var req intake.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.svc.Counsel(r.Context(), &req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) batchCounsel(w http.ResponseWriter, r *http.Request) {
	var batch intake.BatchRequest
	if err := decodeBody(w, r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.svc.CounselBatch(r.Context(), &batch)
	switch {
	case resp != nil && err != nil:
		// Aborted mid-batch: the response still lists every item.
		writeJSON(w, http.StatusServiceUnavailable, resp)
	case err != nil:
		writeError(w, statusFor(err), err)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *feature.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dispatch.ErrDispatchAborted), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}
