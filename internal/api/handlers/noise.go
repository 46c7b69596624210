package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dpkit/internal/accounting"
	"github.com/inferloop/dpkit/internal/mechanisms"
	"github.com/inferloop/dpkit/internal/observability/metrics"
	"github.com/inferloop/dpkit/pkg/constants"
	"github.com/inferloop/dpkit/pkg/errors"
	"github.com/inferloop/dpkit/pkg/models"
)

// NoiseHandler serves scalar perturbation requests against a single
// session accountant. The default sampler is not safe for concurrent
// use, so mechanism calls are serialized through the handler mutex; the
// accountant additionally guards its own state.
type NoiseHandler struct {
	logger     *logrus.Logger
	accountant *accounting.Accountant
	laplace    *mechanisms.LaplaceMechanism
	gaussian   *mechanisms.GaussianMechanism
	metrics    *metrics.PrometheusMetrics
	mu         sync.Mutex
}

// NewNoiseHandler creates a noise handler bound to the given accountant
func NewNoiseHandler(accountant *accounting.Accountant, pm *metrics.PrometheusMetrics, logger *logrus.Logger) *NoiseHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &NoiseHandler{
		logger:     logger,
		accountant: accountant,
		laplace:    mechanisms.NewLaplaceMechanism(nil, logger),
		gaussian:   mechanisms.NewGaussianMechanism(nil, logger),
		metrics:    pm,
	}
}

// RegisterRoutes attaches the noise endpoints to the router
func (h *NoiseHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix(constants.APIPrefix).Subrouter()
	api.HandleFunc("/noise", h.AddNoise).Methods("POST")
	api.HandleFunc("/budget", h.GetBudget).Methods("GET")
	api.HandleFunc("/budget/transactions", h.GetTransactions).Methods("GET")
}

// AddNoise perturbs a scalar value with the requested mechanism
func (h *NoiseHandler) AddNoise(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request models.NoiseRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := request.Validate(); err != nil {
		h.observe(request.Mechanism, "invalid", start)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if request.ID == "" {
		request.ID = uuid.New().String()
	}

	h.mu.Lock()
	var noisy float64
	var err error
	switch request.Mechanism {
	case constants.MechanismLaplace:
		noisy, err = h.laplace.Apply(request.Value, request.Sensitivity, request.Epsilon, h.accountant)
	case constants.MechanismGaussian:
		noisy, err = h.gaussian.Apply(request.Value, request.Sensitivity, request.Epsilon, request.Delta)
	}
	h.mu.Unlock()

	if err != nil {
		h.observe(request.Mechanism, "error", start)
		status := http.StatusInternalServerError
		if errors.IsValidationError(err) {
			status = http.StatusBadRequest
		} else if errors.IsNumericError(err) {
			status = http.StatusUnprocessableEntity
		}
		h.writeError(w, status, err.Error())
		return
	}

	totalEps, totalDelta := h.accountant.PrivacyLoss()
	if h.metrics != nil {
		if request.Mechanism == constants.MechanismLaplace {
			h.metrics.RecordPrivacySpend(request.Epsilon, 0, totalEps, totalDelta)
		}
	}
	h.observe(request.Mechanism, "success", start)

	h.writeJSON(w, http.StatusOK, models.NoiseResponse{
		ID:           request.ID,
		Mechanism:    request.Mechanism,
		NoisyValue:   noisy,
		TotalEpsilon: totalEps,
		TotalDelta:   totalDelta,
		ProcessedAt:  time.Now(),
	})
}

// GetBudget returns the accountant snapshot
func (h *NoiseHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.accountant.Snapshot())
}

// GetTransactions returns the accountant spend ledger
func (h *NoiseHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": h.accountant.Transactions(),
	})
}

func (h *NoiseHandler) observe(mechanism, status string, start time.Time) {
	if h.metrics == nil {
		return
	}
	if mechanism == "" {
		mechanism = "unknown"
	}
	h.metrics.RecordNoiseRequest(mechanism, status, time.Since(start))
}

func (h *NoiseHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *NoiseHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"status": "error",
		"error":  message,
	})
}
