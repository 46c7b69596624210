package mechanisms

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dpkit/internal/accounting"
	"github.com/inferloop/dpkit/pkg/constants"
	"github.com/inferloop/dpkit/pkg/errors"
	"github.com/inferloop/dpkit/pkg/interfaces"
)

// LaplaceMechanism adds Laplace-distributed noise calibrated to
// sensitivity/epsilon, providing pure epsilon-differential privacy.
type LaplaceMechanism struct {
	logger  *logrus.Logger
	sampler interfaces.Sampler
}

// NewLaplaceMechanism creates a Laplace mechanism. A nil sampler gets a
// clock-seeded default; a nil logger gets a fresh logrus instance.
func NewLaplaceMechanism(sampler interfaces.Sampler, logger *logrus.Logger) *LaplaceMechanism {
	if sampler == nil {
		sampler = NewRandSampler(0)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &LaplaceMechanism{
		logger:  logger,
		sampler: sampler,
	}
}

// Name returns the mechanism type identifier
func (m *LaplaceMechanism) Name() string {
	return constants.MechanismLaplace
}

// Apply adds Laplace noise with scale sensitivity/epsilon to value and
// records the epsilon spend on the accountant. The accountant is updated
// exactly once per successful call, with zero delta contribution; on any
// validation failure it is left untouched.
func (m *LaplaceMechanism) Apply(value, sensitivity, epsilon float64, accountant *accounting.Accountant) (float64, error) {
	if err := validateCommon(value, sensitivity, epsilon); err != nil {
		return 0, err
	}
	if accountant == nil {
		return 0, errors.NewValidationError("INVALID_PARAMETER", "accountant is required")
	}

	scale := sensitivity / epsilon
	noise, err := m.sampleLaplace(scale)
	if err != nil {
		return 0, err
	}

	if err := accountant.Record(epsilon, 0.0, constants.MechanismLaplace); err != nil {
		return 0, err
	}

	m.logger.WithFields(logrus.Fields{
		"mechanism": constants.MechanismLaplace,
		"scale":     scale,
		"epsilon":   epsilon,
	}).Debug("Applied Laplace noise")

	return value + noise, nil
}

// ApplyToSeries perturbs each element of data independently. Every
// element is a separate query, so the accountant is charged epsilon per
// element under sequential composition. A cancelled context stops the
// loop; spends already recorded stay recorded.
func (m *LaplaceMechanism) ApplyToSeries(ctx context.Context, data []float64, sensitivity, epsilon float64, accountant *accounting.Accountant) ([]float64, error) {
	if len(data) == 0 {
		return []float64{}, nil
	}

	result := make([]float64, len(data))
	for i, value := range data {
		noisy, err := m.Apply(value, sensitivity, epsilon, accountant)
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

// sampleLaplace draws zero-centered Laplace noise with the given scale
// using the inverse-CDF transform of a uniform deviate in (-0.5, 0.5).
// The transform is exact, not an approximation.
func (m *LaplaceMechanism) sampleLaplace(scale float64) (float64, error) {
	u := m.sampler.Uniform()
	// The sampler contract keeps u strictly inside (-0.5, 0.5). An exact
	// endpoint would push ln(0) to -Inf, so reject rather than return it.
	if u <= -0.5 || u >= 0.5 {
		return 0, errors.NewNumericError("NUMERIC_DOMAIN", "uniform deviate outside open interval (-0.5, 0.5)")
	}
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u)), nil
}

// validateCommon checks the parameters shared by both mechanisms
func validateCommon(value, sensitivity, epsilon float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.NewValidationError("INVALID_PARAMETER", "value must be finite")
	}
	if sensitivity <= 0 || math.IsNaN(sensitivity) {
		return errors.NewValidationError("INVALID_PARAMETER", "sensitivity must be positive")
	}
	if epsilon <= 0 || math.IsNaN(epsilon) {
		return errors.NewValidationError("INVALID_PARAMETER", "epsilon must be positive")
	}
	return nil
}
