package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/chative-task-router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/agent/rating"
)

const attachmentNoteFormat = " The file to process is at %s."

// TurnHandler runs one conversation turn.
type TurnHandler interface {
	HandleMessage(ctx context.Context, req orchestratorx.Request) (orchestratorx.Reply, error)
}

// Server exposes the turn pipeline over HTTP.
type Server struct {
	turns   TurnHandler
	ratings rating.Store
	conf    Config

	server *http.Server
}

func NewServer(turns TurnHandler, ratings rating.Store, conf Config) (*Server, error) {
	if turns == nil {
		return nil, errors.New("turn handler is required")
	}
	if ratings == nil {
		return nil, errors.New("rating store is required")
	}
	if strings.TrimSpace(conf.UploadDir) == "" {
		conf.UploadDir = "uploads"
	}
	if conf.MaxUploadMB <= 0 {
		conf.MaxUploadMB = 32
	}
	return &Server{turns: turns, ratings: ratings, conf: conf}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /supervisor", s.supervisorHandler)
	mux.HandleFunc("POST /review", s.reviewHandler)
	mux.HandleFunc("GET /ratings", s.ratingsHandler)
	mux.HandleFunc("GET /healthz", s.healthCheckHandler)
	return mux
}

// ListenAndServe blocks until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.conf.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	s.server = &http.Server{
		Addr:         s.conf.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.conf.ReadTimeout,
		WriteTimeout: s.conf.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.conf.Addr).Msg("http server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := s.conf.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// supervisorHandler handles multipart POST /supervisor. An uploaded file
// lives only for the duration of the turn.
func (s *Server) supervisorHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.conf.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := orchestratorx.Request{
		SessionID: r.FormValue("session_id"),
		Text:      r.FormValue("content"),
		Route:     orchestratorx.RouteSupervisor,
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, orchestratorx.ErrInvalidMessage)
		return
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		path, err := s.saveUpload(file, header)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		defer func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", path).Msg("remove upload")
			}
		}()
		req.Text += fmt.Sprintf(attachmentNoteFormat, path)
		req.Attachment = path
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("read file: %w", err))
		return
	}

	s.runTurn(w, r, req)
}

type reviewRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

func (s *Server) reviewHandler(w http.ResponseWriter, r *http.Request) {
	var body reviewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	s.runTurn(w, r, orchestratorx.Request{
		SessionID: body.SessionID,
		Text:      body.UserInput,
		Route:     orchestratorx.RouteReview,
	})
}

func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, req orchestratorx.Request) {
	reply, err := s.turns.HandleMessage(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, orchestratorx.ErrInvalidMessage) || errors.Is(err, contractx.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// RatingsResponse is the body of GET /ratings.
type RatingsResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (s *Server) ratingsHandler(w http.ResponseWriter, r *http.Request) {
	avg, count, err := rating.Average(r.Context(), s.ratings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, RatingsResponse{Average: avg, Count: count})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Ratings string `json:"ratings,omitempty"`
	Error   string `json:"error,omitempty"`
}

// healthCheckHandler reports unhealthy when the rating store cannot be read.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.ratings.All(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "unhealthy",
			Ratings: "unavailable",
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Ratings: "ok"})
}

func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.conf.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	path := filepath.Join(s.conf.UploadDir, uuid.NewString()+"_"+name)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
