package accounting

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dpkit/pkg/errors"
	"github.com/inferloop/dpkit/pkg/models"
)

// Accountant tracks cumulative privacy loss using basic sequential
// composition: each recorded spend adds linearly to the running totals.
// This is the simplest valid upper bound, not the tightest one.
//
// The configured budget is informational. Totals are never capped
// against it; callers that want enforcement compare Remaining
// themselves.
type Accountant struct {
	configuredEpsilon float64
	configuredDelta   float64
	totalEpsilon      float64
	totalDelta        float64
	transactions      []Transaction
	logger            *logrus.Logger
	mu                sync.RWMutex
}

// Transaction records a single privacy budget expenditure
type Transaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Epsilon   float64   `json:"epsilon"`
	Delta     float64   `json:"delta"`
	Mechanism string    `json:"mechanism,omitempty"`
}

// NewAccountant creates an accountant with the given configured budget.
// Cumulative totals start at zero. There is no reset; a fresh analysis
// session gets a fresh accountant.
func NewAccountant(epsilon, delta float64, logger *logrus.Logger) *Accountant {
	if logger == nil {
		logger = logrus.New()
	}
	return &Accountant{
		configuredEpsilon: epsilon,
		configuredDelta:   delta,
		logger:            logger,
	}
}

// Update records a privacy spend, adding epsilon and delta to the running
// totals. Inputs come from mechanisms and are trusted non-negative, but
// negative or NaN spends are rejected so totals stay monotone.
func (a *Accountant) Update(epsilon, delta float64) error {
	return a.Record(epsilon, delta, "")
}

// Record is Update with a mechanism label attached to the ledger entry.
func (a *Accountant) Record(epsilon, delta float64, mechanism string) error {
	if epsilon < 0 || delta < 0 || math.IsNaN(epsilon) || math.IsNaN(delta) {
		return errors.NewAccountingError("NEGATIVE_SPEND", "privacy spend must be non-negative")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalEpsilon += epsilon
	a.totalDelta += delta
	a.transactions = append(a.transactions, Transaction{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Epsilon:   epsilon,
		Delta:     delta,
		Mechanism: mechanism,
	})

	a.logger.WithFields(logrus.Fields{
		"epsilon":       epsilon,
		"delta":         delta,
		"total_epsilon": a.totalEpsilon,
		"total_delta":   a.totalDelta,
	}).Debug("Recorded privacy spend")

	return nil
}

// PrivacyLoss returns the cumulative (epsilon, delta) consumed so far.
// Pure read; calling it any number of times returns the same totals
// until the next Update.
func (a *Accountant) PrivacyLoss() (totalEpsilon, totalDelta float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalEpsilon, a.totalDelta
}

// ConfiguredBudget returns the budget the accountant was created with.
func (a *Accountant) ConfiguredBudget() (epsilon, delta float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.configuredEpsilon, a.configuredDelta
}

// Remaining returns configured-minus-consumed budget. Values can go
// negative; nothing enforces the configured budget as a ceiling.
func (a *Accountant) Remaining() (epsilon, delta float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.configuredEpsilon - a.totalEpsilon, a.configuredDelta - a.totalDelta
}

// Transactions returns a copy of the spend ledger.
func (a *Accountant) Transactions() []Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// Snapshot returns a read-only view of the accountant state for API
// responses.
func (a *Accountant) Snapshot() models.BudgetSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return models.BudgetSnapshot{
		ConfiguredEpsilon: a.configuredEpsilon,
		ConfiguredDelta:   a.configuredDelta,
		TotalEpsilon:      a.totalEpsilon,
		TotalDelta:        a.totalDelta,
		RemainingEpsilon:  a.configuredEpsilon - a.totalEpsilon,
		RemainingDelta:    a.configuredDelta - a.totalDelta,
		Transactions:      len(a.transactions),
	}
}
