package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CredentialVerifier is the verification pipeline as the HTTP layer sees it.
type CredentialVerifier interface {
	Verify(ctx context.Context, req schemas.VerificationRequest) schemas.VerificationOutcome
}

// OutcomeRecorder persists completed verifications. Optional; a nil recorder
// means the deployment runs without a database.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, platform schemas.Platform, username string, outcome schemas.VerificationOutcome) error
}

// Handlers owns the HTTP request handling for the verification API.
type Handlers struct {
	log      *zap.Logger
	verifier CredentialVerifier
	recorder OutcomeRecorder
}

// NewHandlers creates a Handlers instance. recorder may be nil.
func NewHandlers(logger *zap.Logger, verifier CredentialVerifier, recorder OutcomeRecorder) *Handlers {
	return &Handlers{
		log:      logger.Named("handlers"),
		verifier: verifier,
		recorder: recorder,
	}
}

// RegisterRoutes sets up the routing tree.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/verify", h.HandleVerify)
	})
}

// HandleHealthCheck confirms the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleVerify runs one verification. A completed verification is HTTP 200
// whatever its outcome; 4xx is reserved for requests the server could not
// even interpret, and 5xx for internal processing failures.
func (h *Handlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req schemas.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Platform.Valid() {
		h.respondWithError(w, http.StatusBadRequest, "unknown or missing platform")
		return
	}

	outcome := h.verifier.Verify(r.Context(), req)

	if h.recorder != nil {
		// Audit failure must not turn a completed verification into an
		// HTTP error; the caller still gets the outcome.
		if err := h.recorder.RecordOutcome(r.Context(), req.Platform, req.Username, outcome); err != nil {
			h.log.Error("Failed to record verification outcome.",
				zap.String("platform", string(req.Platform)),
				zap.String("username", req.Username),
				zap.Error(err))
		}
	}

	// An internal failure is the one outcome that is not a completed
	// verification; it surfaces as a server error.
	status := http.StatusOK
	if outcome.Code == schemas.CodeProcessingError {
		status = http.StatusInternalServerError
	}
	h.respondJSON(w, status, outcome.ToResponse())
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, errorResponse{Success: false, Message: message})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response.", zap.Error(err))
	}
}
