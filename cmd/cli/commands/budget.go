package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/dpkit/internal/accounting"
)

type BudgetOptions struct {
	Epsilon float64
	Delta   float64
	Spends  []string
}

func NewBudgetCmd() *cobra.Command {
	opts := &BudgetOptions{}

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Replay privacy spends and report cumulative loss",
		Long: `Replay a sequence of (epsilon, delta) privacy spends through a fresh
accountant and print the sequentially composed totals.`,
		Example: `  # Two queries against a configured budget of (1.0, 1e-5)
  dpkit-cli budget --epsilon 1.0 --delta 1e-5 --spend 0.5,1e-6 --spend 0.3,2e-6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBudget(opts)
		},
	}

	cmd.Flags().Float64VarP(&opts.Epsilon, "epsilon", "e", 0, "Configured epsilon budget (informational)")
	cmd.Flags().Float64VarP(&opts.Delta, "delta", "d", 0, "Configured delta budget (informational)")
	cmd.Flags().StringArrayVar(&opts.Spends, "spend", nil, "Privacy spend as epsilon,delta (repeatable)")

	return cmd
}

func runBudget(opts *BudgetOptions) error {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	accountant := accounting.NewAccountant(opts.Epsilon, opts.Delta, logger)

	for _, spend := range opts.Spends {
		eps, delta, err := parseSpend(spend)
		if err != nil {
			return err
		}
		if err := accountant.Update(eps, delta); err != nil {
			return fmt.Errorf("recording spend %q: %w", spend, err)
		}
	}

	snap := accountant.Snapshot()
	fmt.Printf("Configured Budget: epsilon=%g delta=%g\n", snap.ConfiguredEpsilon, snap.ConfiguredDelta)
	fmt.Printf("Total Epsilon: %g\n", snap.TotalEpsilon)
	fmt.Printf("Total Delta: %g\n", snap.TotalDelta)
	fmt.Printf("Remaining: epsilon=%g delta=%g\n", snap.RemainingEpsilon, snap.RemainingDelta)
	fmt.Printf("Transactions: %d\n", snap.Transactions)

	return nil
}

func parseSpend(spend string) (float64, float64, error) {
	parts := strings.Split(spend, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid spend %q: want epsilon,delta", spend)
	}
	eps, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid epsilon in spend %q: %w", spend, err)
	}
	delta, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid delta in spend %q: %w", spend, err)
	}
	return eps, delta, nil
}
