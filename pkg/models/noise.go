package models

import (
	"math"
	"time"

	"github.com/inferloop/dpkit/pkg/constants"
	"github.com/inferloop/dpkit/pkg/errors"
)

// NoiseRequest describes a single scalar perturbation request
type NoiseRequest struct {
	ID          string  `json:"id,omitempty"`
	Mechanism   string  `json:"mechanism"`
	Value       float64 `json:"value"`
	Sensitivity float64 `json:"sensitivity"`
	Epsilon     float64 `json:"epsilon"`
	Delta       float64 `json:"delta,omitempty"`
}

// NoiseResponse contains the perturbed value and the privacy spend recorded
// for the request
type NoiseResponse struct {
	ID           string    `json:"id,omitempty"`
	Mechanism    string    `json:"mechanism"`
	NoisyValue   float64   `json:"noisy_value"`
	TotalEpsilon float64   `json:"total_epsilon"`
	TotalDelta   float64   `json:"total_delta"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// BudgetSnapshot is a read-only view of accountant state
type BudgetSnapshot struct {
	ConfiguredEpsilon float64 `json:"configured_epsilon"`
	ConfiguredDelta   float64 `json:"configured_delta"`
	TotalEpsilon      float64 `json:"total_epsilon"`
	TotalDelta        float64 `json:"total_delta"`
	RemainingEpsilon  float64 `json:"remaining_epsilon"`
	RemainingDelta    float64 `json:"remaining_delta"`
	Transactions      int     `json:"transactions"`
}

// Validate checks the request parameters at the API boundary. The
// mechanisms re-validate on their own boundaries; this keeps HTTP 400s
// cheap and early.
func (r *NoiseRequest) Validate() error {
	if !constants.IsValidMechanism(r.Mechanism) {
		return errors.NewValidationError("INVALID_MECHANISM", "mechanism must be one of: laplace, gaussian")
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return errors.NewValidationError("INVALID_PARAMETER", "value must be finite")
	}
	if r.Sensitivity <= 0 || math.IsNaN(r.Sensitivity) {
		return errors.NewValidationError("INVALID_PARAMETER", "sensitivity must be positive")
	}
	if r.Epsilon <= 0 || math.IsNaN(r.Epsilon) {
		return errors.NewValidationError("INVALID_PARAMETER", "epsilon must be positive")
	}
	if r.Mechanism == constants.MechanismGaussian {
		if r.Delta < 0 || r.Delta >= 1 || math.IsNaN(r.Delta) {
			return errors.NewValidationError("INVALID_PARAMETER", "delta must be in [0, 1)")
		}
	}
	return nil
}
