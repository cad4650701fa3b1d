package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/andresmejia3/biopass/internal/access"
	"github.com/andresmejia3/biopass/internal/match"
)

// Server exposes the live preview and the two flows over HTTP.
type Server struct {
	kiosk      *Kiosk
	router     *chi.Mux
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer wires the routes for k. Handlers wait for the task to finish.
func NewServer(k *Kiosk, addr string) *Server {
	r := chi.NewRouter()
	s := &Server{kiosk: k, router: r, log: k.log}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Get("/frame.jpg", s.handleFrame)
	r.Get("/status", s.handleStatus)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting kiosk web server", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

type statusResponse struct {
	Camera   string        `json:"camera"`
	Status   string        `json:"status"`
	Enrolled int           `json:"enrolled"`
	Last     *taskResponse `json:"last,omitempty"`
}

type taskResponse struct {
	TaskID  string  `json:"taskId"`
	Kind    string  `json:"kind"`
	Outcome string  `json:"outcome,omitempty"`
	Name    string  `json:"name,omitempty"`
	Score   float64 `json:"score,omitempty"`
	UserID  int64   `json:"userId,omitempty"`
	Message string  `json:"message"`
	Code    string  `json:"code,omitempty"`
}

func toTaskResponse(c Completion) taskResponse {
	r := taskResponse{TaskID: c.TaskID.String(), Kind: string(c.Kind), Message: c.Message()}
	var ae *access.Error
	switch {
	case errors.As(c.Err, &ae):
		r.Code = ae.Code
	case c.Err != nil:
		r.Code = "INTERNAL_ERROR"
	case c.Kind == TaskRegister:
		r.Name, r.UserID = c.Enrollment.Name, c.Enrollment.UserID
	default:
		r.Outcome, r.Name, r.Score = c.Result.Outcome.String(), c.Result.Name, c.Result.Score
	}
	return r
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.kiosk.frames == nil {
		http.Error(w, "no camera", http.StatusServiceUnavailable)
		return
	}
	f, ok := s.kiosk.frames.Snapshot()
	if !ok {
		http.Error(w, access.ErrCameraNotReady.Message, http.StatusServiceUnavailable)
		return
	}
	data, err := f.EncodeJPEG()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, last := s.kiosk.Status()
	resp := statusResponse{Status: status, Enrolled: s.kiosk.enrolled()}
	if s.kiosk.camera != nil {
		resp.Camera = s.kiosk.camera.State().String()
	}
	if last != nil {
		tr := toTaskResponse(*last)
		resp.Last = &tr
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, taskResponse{Code: "BAD_REQUEST", Message: "invalid JSON body"})
		return
	}
	_, done := s.kiosk.Register(r.Context(), req.Name)
	s.await(w, r, done)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	_, done := s.kiosk.Login(r.Context())
	s.await(w, r, done)
}

func (s *Server) await(w http.ResponseWriter, r *http.Request, done <-chan Completion) {
	select {
	case c := <-done:
		writeJSON(w, statusFor(c), toTaskResponse(c))
	case <-r.Context().Done():
		writeJSON(w, http.StatusGatewayTimeout, taskResponse{Code: "TIMEOUT", Message: "task did not finish in time"})
	}
}

func statusFor(c Completion) int {
	switch {
	case c.Err == nil && c.Kind == TaskRegister:
		return http.StatusCreated
	case c.Err == nil && c.Result.Outcome == match.Accepted:
		return http.StatusOK
	case c.Err == nil && c.Result.Outcome == match.Unknown:
		return http.StatusForbidden
	case c.Err == nil:
		// Nobody enrolled yet.
		return http.StatusConflict
	case errors.Is(c.Err, access.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(c.Err, access.ErrNoFaceDetected), errors.Is(c.Err, access.ErrEmbeddingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(c.Err, access.ErrCameraNotReady), errors.Is(c.Err, access.ErrModelUnavailable), errors.Is(c.Err, ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
