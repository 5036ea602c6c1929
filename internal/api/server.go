package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clientbook/internal/config"
	"clientbook/internal/database"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
)

// HTTPServer exposes a read-only JSON API for the operator surface. All
// writes stay with the engine and editors; this layer only serves views.
type HTTPServer struct {
	cfg    config.APIConfig
	db     *database.DB
	server *http.Server
	auth   *HTTPAuth
	logger zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, db *database.DB, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:    cfg,
		db:     db,
		auth:   NewHTTPAuth(cfg),
		logger: logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingDetail)
	mux.HandleFunc("/api/v1/clients", srv.handleClients)
	mux.HandleFunc("/api/v1/safety-checks", srv.handleSafetyChecks)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(srv.auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 3, 0)

	var err error
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
			return
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
			return
		}
		// Inclusive end of day.
		to = to.AddDate(0, 0, 1)
	}

	bookings, err := s.db.ListBookingsInRange(r.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleBookingDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	booking, err := s.db.GetBooking(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Str("booking_id", id).Msg("get booking failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payments, err := s.db.ListPaymentsForBooking(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("list payments failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	check, err := s.db.GetSafetyCheckForBooking(r.Context(), s.db.DB, id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("get safety check failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var paid models.Cents
	for _, p := range payments {
		paid += p.Amount
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"booking":      booking,
		"payments":     payments,
		"total_cents":  booking.Total(),
		"paid_cents":   paid,
		"safety_check": check,
	})
}

func (s *HTTPServer) handleClients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clients, err := s.db.ListClients(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list clients failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (s *HTTPServer) handleSafetyChecks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := models.SafetyCheckStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		status = models.SafetyPending
	}

	checks, err := s.db.ListSafetyChecksByStatus(r.Context(), status)
	if err != nil {
		s.logger.Error().Err(err).Msg("list safety checks failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"safety_checks": checks})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
