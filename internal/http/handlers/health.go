package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Pinger is satisfied by the pgx pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober is satisfied by the knowledge service client.
type Prober interface {
	Probe(ctx context.Context) error
}

// HealthHandler reports per-dependency status: the appointment store and
// the knowledge service are both required for the chat to function.
type HealthHandler struct {
	db      Pinger
	answers Prober
}

func NewHealthHandler(db Pinger, answers Prober) *HealthHandler {
	return &HealthHandler{
		db:      db,
		answers: answers,
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details"`
	Errors  []string          `json:"errors,omitempty"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var errs []string

	dbStatus := "ok"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "error"
		errs = append(errs, fmt.Sprintf("Database connection failed: %v", err))
	}

	answerStatus := "ok"
	if err := h.answers.Probe(ctx); err != nil {
		answerStatus = "error"
		errs = append(errs, fmt.Sprintf("Knowledge service connection failed: %v", err))
	}

	status, code := "healthy", http.StatusOK
	if len(errs) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status: status,
		Details: map[string]string{
			"database": dbStatus,
			"answerer": answerStatus,
		},
		Errors: errs,
	})
}
