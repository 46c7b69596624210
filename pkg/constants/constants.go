package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "dpkit"
	AppDescription = "Differential Privacy Toolkit"
	AppVersion     = "0.1.0"

	// API constants
	APIVersion = "v1"
	APIPrefix  = "/api/v1"

	// Default server configuration
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultHost            = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Privacy defaults
	DefaultEpsilon     = 1.0
	DefaultDelta       = 1e-5
	DefaultSensitivity = 1.0

	// Metrics
	MetricsNamespace = "dpkit"
)

// Mechanism types
const (
	MechanismLaplace  = "laplace"
	MechanismGaussian = "gaussian"
)

// ValidMechanisms lists the supported noise mechanisms
var ValidMechanisms = []string{
	MechanismLaplace,
	MechanismGaussian,
}

// IsValidMechanism checks if a mechanism type is supported
func IsValidMechanism(mechanism string) bool {
	for _, m := range ValidMechanisms {
		if m == mechanism {
			return true
		}
	}
	return false
}
