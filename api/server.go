// Package api exposes the draw pool operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	// UserIDHeader carries the authenticated participant
	UserIDHeader = "X-User-ID"
	// OperatorIDHeader carries the authenticated operator on admin routes
	OperatorIDHeader = "X-Operator-ID"

	maxBodyBytes = 1 << 20
)

// Participations is the allocation side of the application layer
type Participations interface {
	Allocate(ctx context.Context, req interfaces.AllocationRequest) (*interfaces.AllocationResult, error)
	OpenAccount(ctx context.Context, operatorID, userID string, initialBalance int64) (*entities.User, error)
	AllowanceStatus(ctx context.Context, userID string) (*interfaces.AllowanceStatus, error)
}

// Draws runs and verifies draws
type Draws interface {
	TriggerDraw(ctx context.Context, req interfaces.DrawRequest) (*interfaces.DrawResponse, error)
	VerifyDraw(ctx context.Context, roundID string) (*interfaces.DrawVerification, error)
}

// Rounds covers round administration and state
type Rounds interface {
	CreateRound(ctx context.Context, req interfaces.CreateRoundRequest) (*entities.Round, error)
	VoidRound(ctx context.Context, req interfaces.VoidRoundRequest) (*interfaces.VoidRoundResult, error)
	GetRound(ctx context.Context, id string) (*entities.Round, error)
	ListParticipations(ctx context.Context, roundID string) ([]*entities.Participation, error)
}

// Corrections applies and lists audited corrections
type Corrections interface {
	ApplyCorrection(ctx context.Context, req entities.CorrectionRequest) (*entities.CorrectionRecord, error)
	History(ctx context.Context, targetType entities.CorrectionTarget, targetID string) ([]*entities.CorrectionRecord, error)
}

// Consistency produces audit reports
type Consistency interface {
	Report(ctx context.Context, roundID string) (*entities.ConsistencyReport, error)
}

// Server routes HTTP requests to the application handlers
type Server struct {
	participations Participations
	draws          Draws
	rounds         Rounds
	corrections    Corrections
	consistency    Consistency
}

// NewServer creates a new HTTP server
func NewServer(participations Participations, draws Draws, rounds Rounds, corrections Corrections, consistency Consistency) *Server {
	return &Server{
		participations: participations,
		draws:          draws,
		rounds:         rounds,
		corrections:    corrections,
		consistency:    consistency,
	}
}

// Routes builds the router
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(logRequests)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/rounds/{roundId}", s.handleGetRound).Methods(http.MethodGet)
	router.HandleFunc("/rounds/{roundId}/participations", s.handleAllocate).Methods(http.MethodPost)
	router.HandleFunc("/rounds/{roundId}/verification", s.handleVerify).Methods(http.MethodGet)
	router.HandleFunc("/me/allowance", s.handleAllowance).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(requireOperator)
	admin.HandleFunc("/users", s.handleOpenAccount).Methods(http.MethodPost)
	admin.HandleFunc("/rounds", s.handleCreateRound).Methods(http.MethodPost)
	admin.HandleFunc("/rounds/{roundId}/participations", s.handleListParticipations).Methods(http.MethodGet)
	admin.HandleFunc("/rounds/{roundId}/draw", s.handleDraw).Methods(http.MethodPost)
	admin.HandleFunc("/rounds/{roundId}/void", s.handleVoid).Methods(http.MethodPost)
	admin.HandleFunc("/consistency", s.handleConsistency).Methods(http.MethodGet)
	admin.HandleFunc("/corrections", s.handleApplyCorrection).Methods(http.MethodPost)
	admin.HandleFunc("/corrections", s.handleCorrectionHistory).Methods(http.MethodGet)

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// writeError maps a domain error onto a status code. Internal failures are logged
// and their detail is not echoed to the caller.
func writeError(w http.ResponseWriter, err error) {
	kind := services.Classify(err)
	status := statusFor(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("kind", kind).Error("Request failed")
		message = http.StatusText(status)
	}

	writeJSON(w, status, errorResponse{
		Error:     message,
		Kind:      string(kind),
		Retryable: services.IsRetryable(err),
	})
}

func statusFor(err error) int {
	switch services.Classify(err) {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindInsufficientResource:
		if errors.Is(err, services.ErrCapacityExceeded) {
			return http.StatusConflict
		}
		return http.StatusPaymentRequired
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnauthorized:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Kind: string(services.KindValidation)})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(OperatorIDHeader) == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error: "missing " + OperatorIDHeader,
				Kind:  string(services.KindUnauthorized),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}
