package mechanisms

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dpkit/pkg/constants"
	"github.com/inferloop/dpkit/pkg/errors"
	"github.com/inferloop/dpkit/pkg/interfaces"
)

// GaussianMechanism adds normally distributed noise with
// sigma = sqrt(2 * sensitivity^2 / |ln(epsilon)|).
//
// Note: this calibration ignores delta and differs from the analytic
// Gaussian mechanism, which requires
// sigma >= sqrt(2*ln(1.25/delta)) * sensitivity/epsilon for an
// (epsilon, delta)-DP guarantee. The formula is preserved for
// compatibility and should not be relied on for a verified
// (epsilon, delta)-DP bound. Unlike the Laplace mechanism it records
// nothing on a privacy accountant.
type GaussianMechanism struct {
	logger  *logrus.Logger
	sampler interfaces.Sampler
}

// NewGaussianMechanism creates a Gaussian mechanism. A nil sampler gets a
// clock-seeded default; a nil logger gets a fresh logrus instance.
func NewGaussianMechanism(sampler interfaces.Sampler, logger *logrus.Logger) *GaussianMechanism {
	if sampler == nil {
		sampler = NewRandSampler(0)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &GaussianMechanism{
		logger:  logger,
		sampler: sampler,
	}
}

// Name returns the mechanism type identifier
func (m *GaussianMechanism) Name() string {
	return constants.MechanismGaussian
}

// Apply adds Gaussian noise to value and returns the noisy result.
// epsilon == 1 makes ln(epsilon) zero and the calibration degenerate, so
// it is rejected along with the usual out-of-range parameters.
func (m *GaussianMechanism) Apply(value, sensitivity, epsilon, delta float64) (float64, error) {
	if err := validateCommon(value, sensitivity, epsilon); err != nil {
		return 0, err
	}
	if epsilon == 1.0 {
		return 0, errors.NewValidationError("INVALID_PARAMETER", "epsilon of 1.0 degenerates the log term")
	}
	if delta < 0 || delta >= 1 || math.IsNaN(delta) {
		return 0, errors.NewValidationError("INVALID_PARAMETER", "delta must be in [0, 1)")
	}

	sigma := math.Sqrt(2 * sensitivity * sensitivity / math.Abs(math.Log(epsilon)))
	noise := m.sampler.Normal(sigma)

	m.logger.WithFields(logrus.Fields{
		"mechanism": constants.MechanismGaussian,
		"sigma":     sigma,
		"epsilon":   epsilon,
		"delta":     delta,
	}).Debug("Applied Gaussian noise")

	return value + noise, nil
}

// ApplyToSeries perturbs each element of data independently with the
// same calibration. A cancelled context stops the loop.
func (m *GaussianMechanism) ApplyToSeries(ctx context.Context, data []float64, sensitivity, epsilon, delta float64) ([]float64, error) {
	if len(data) == 0 {
		return []float64{}, nil
	}

	result := make([]float64, len(data))
	for i, value := range data {
		noisy, err := m.Apply(value, sensitivity, epsilon, delta)
		if err != nil {
			return nil, fmt.Errorf("error adding noise at index %d: %w", i, err)
		}
		result[i] = noisy

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	return result, nil
}
