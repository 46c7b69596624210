package interfaces

// Sampler defines the interface for random variate generation used by the
// noise mechanisms. Implementations are injectable so deterministic
// samplers can replace the default generator in tests.
type Sampler interface {
	// Uniform returns a uniform deviate in the open interval (-0.5, 0.5).
	// The endpoints are excluded; mechanisms rely on this to keep the
	// Laplace inverse-CDF log term in its domain.
	Uniform() float64

	// Normal returns a normal deviate with mean 0 and the given standard
	// deviation.
	Normal(sigma float64) float64

	// Seed reseeds the underlying generator, making subsequent draws
	// reproducible.
	Seed(seed int64)
}
