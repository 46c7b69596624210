package mechanisms

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/dpkit/internal/accounting"
	"github.com/inferloop/dpkit/pkg/errors"
)

// fixedSampler returns a canned sequence of uniform deviates for
// deterministic mechanism tests.
type fixedSampler struct {
	uniforms []float64
	normals  []float64
	ui, ni   int
}

func (s *fixedSampler) Uniform() float64 {
	u := s.uniforms[s.ui%len(s.uniforms)]
	s.ui++
	return u
}

func (s *fixedSampler) Normal(sigma float64) float64 {
	n := s.normals[s.ni%len(s.normals)]
	s.ni++
	return n * sigma
}

func (s *fixedSampler) Seed(seed int64) {}

func TestLaplaceMechanismAddsNoise(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(42), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	noisy, err := mech.Apply(10.0, 1.0, 0.5, acct)
	require.NoError(t, err)
	require.False(t, math.IsNaN(noisy))
	require.False(t, math.IsInf(noisy, 0))

	// Laplace tails decay exponentially; noise beyond a few scales is
	// vanishingly unlikely.
	noise := noisy - 10.0
	scale := 1.0 / 0.5
	assert.LessOrEqual(t, math.Abs(noise), 20*scale)
}

func TestLaplaceMechanismUpdatesAccountant(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(1), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	_, err := mech.Apply(20.0, 2.0, 1.0, acct)
	require.NoError(t, err)

	eps, delta := acct.PrivacyLoss()
	assert.Equal(t, 1.0, eps)
	assert.Equal(t, 0.0, delta)
}

func TestLaplaceMechanismComposition(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(1), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	for i := 0; i < 4; i++ {
		_, err := mech.Apply(100.0, 1.0, 0.25, acct)
		require.NoError(t, err)
	}

	eps, delta := acct.PrivacyLoss()
	assert.InDelta(t, 1.0, eps, 1e-12)
	assert.Equal(t, 0.0, delta)
}

func TestLaplaceMechanismInvalidParameters(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(1), nil)

	cases := []struct {
		name        string
		value       float64
		sensitivity float64
		epsilon     float64
	}{
		{"zero epsilon", 10.0, 1.0, 0.0},
		{"negative epsilon", 10.0, 1.0, -0.5},
		{"zero sensitivity", 10.0, 0.0, 1.0},
		{"negative sensitivity", 10.0, -1.0, 1.0},
		{"nan value", math.NaN(), 1.0, 1.0},
		{"infinite value", math.Inf(1), 1.0, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acct := accounting.NewAccountant(0.0, 0.0, nil)
			_, err := mech.Apply(tc.value, tc.sensitivity, tc.epsilon, acct)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))

			// Failed calls must not consume budget.
			eps, delta := acct.PrivacyLoss()
			assert.Equal(t, 0.0, eps)
			assert.Equal(t, 0.0, delta)
		})
	}
}

func TestLaplaceMechanismNilAccountant(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(1), nil)
	_, err := mech.Apply(10.0, 1.0, 1.0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestLaplaceMechanismDeterministicWithSeed(t *testing.T) {
	mechA := NewLaplaceMechanism(NewRandSampler(1234), nil)
	mechB := NewLaplaceMechanism(NewRandSampler(1234), nil)

	for i := 0; i < 10; i++ {
		acctA := accounting.NewAccountant(0.0, 0.0, nil)
		acctB := accounting.NewAccountant(0.0, 0.0, nil)
		a, err := mechA.Apply(50.0, 1.0, 0.5, acctA)
		require.NoError(t, err)
		b, err := mechB.Apply(50.0, 1.0, 0.5, acctB)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestLaplaceMechanismNearBoundaryDeviate(t *testing.T) {
	// Deviates arbitrarily close to the open-interval endpoints must
	// still produce finite noise.
	sampler := &fixedSampler{uniforms: []float64{
		0.5 - 1e-15, -0.5 + 1e-15, 0.49999999, -0.49999999,
	}}
	mech := NewLaplaceMechanism(sampler, nil)

	for i := 0; i < 4; i++ {
		acct := accounting.NewAccountant(0.0, 0.0, nil)
		noisy, err := mech.Apply(0.0, 1.0, 1.0, acct)
		require.NoError(t, err)
		assert.False(t, math.IsInf(noisy, 0))
		assert.False(t, math.IsNaN(noisy))
	}
}

func TestLaplaceMechanismEndpointDeviateRejected(t *testing.T) {
	sampler := &fixedSampler{uniforms: []float64{0.5}}
	mech := NewLaplaceMechanism(sampler, nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	_, err := mech.Apply(0.0, 1.0, 1.0, acct)
	require.Error(t, err)
	assert.True(t, errors.IsNumericError(err))

	eps, _ := acct.PrivacyLoss()
	assert.Equal(t, 0.0, eps)
}

func TestLaplaceNoiseDistribution(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(42), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	sensitivity, epsilon := 1.0, 1.0
	scale := sensitivity / epsilon

	n := 100000
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		noisy, err := mech.Apply(0.0, sensitivity, epsilon, acct)
		require.NoError(t, err)
		samples[i] = noisy
	}

	// Laplace(0, b) has mean 0 and variance 2b^2.
	assert.InDelta(t, 0.0, stat.Mean(samples, nil), 0.1)
	assert.InDelta(t, 2*scale*scale, stat.Variance(samples, nil), 0.1)

	// Every sample spent epsilon.
	eps, delta := acct.PrivacyLoss()
	assert.InDelta(t, float64(n)*epsilon, eps, 1e-6)
	assert.Equal(t, 0.0, delta)
}

func TestLaplaceApplyToSeries(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(7), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	data := []float64{1.0, 2.0, 3.0, 4.0}
	noisy, err := mech.ApplyToSeries(context.Background(), data, 1.0, 0.5, acct)
	require.NoError(t, err)
	require.Len(t, noisy, len(data))

	// One epsilon spend per element under sequential composition.
	eps, _ := acct.PrivacyLoss()
	assert.InDelta(t, 2.0, eps, 1e-12)
}

func TestLaplaceApplyToSeriesEmpty(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(7), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	noisy, err := mech.ApplyToSeries(context.Background(), nil, 1.0, 0.5, acct)
	require.NoError(t, err)
	assert.Empty(t, noisy)
}

func TestLaplaceApplyToSeriesCancelled(t *testing.T) {
	mech := NewLaplaceMechanism(NewRandSampler(7), nil)
	acct := accounting.NewAccountant(0.0, 0.0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mech.ApplyToSeries(ctx, []float64{1, 2, 3}, 1.0, 0.5, acct)
	require.ErrorIs(t, err, context.Canceled)
}
