// Package demo contains runnable contention scenarios against a live
// cluster. Each scenario exercises the retry executor under a workload
// shape borrowed from payment processing: many writers converging on a
// hot account row.
package demo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// Deps carries everything a scenario needs to run.
type Deps struct {
	Pool   *pgxpool.Pool
	Policy recommit.Policy
	Logger recommit.Logger
}

// Scenario is one self-contained demonstration. Run owns its schema reset
// and verification; it returns an error only when the demonstration itself
// failed, not when individual transactions were retried.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, deps Deps) error
}

// Scenarios returns all registered scenarios in presentation order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "transfers",
			Description: "Why whole-transaction retry beats savepoint rollback for serialization failures",
			Run:         RunTransfers,
		},
		{
			Name:        "deposits",
			Description: "Concurrent deposits to one merchant account, every conflict retried to success",
			Run:         RunDeposits,
		},
		{
			Name:        "scaling",
			Description: "Why adding writers to a hot row lowers throughput",
			Run:         RunScaling,
		},
	}
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%q: %w", name, recommit.ErrUnknownScenario)
}
