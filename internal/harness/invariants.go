package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
)

// CheckInvariants reads the whole ledger and reports every violated
// ledger invariant. An error means the ledger could not be read.
func CheckInvariants(ctx context.Context, st *store.Store) ([]string, error) {
	var out []string

	supply, err := st.CheckSupply(ctx)
	if err != nil {
		return nil, err
	}
	if !supply.Balanced() {
		out = append(out, fmt.Sprintf("supply: held %d, minted %d", supply.Held, supply.Minted))
	}

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if b := snap.Bank; b != nil && !b.Paused && b.PauseReason != model.PauseNone {
		out = append(out, fmt.Sprintf("bank: unpaused with reason %s", b.PauseReason))
	}
	for _, a := range snap.Agents {
		if a.CurrentPeriodSpend > a.SpendingLimit {
			out = append(out, fmt.Sprintf("agent %s: period spend %d over limit %d",
				a.Owner, a.CurrentPeriodSpend, a.SpendingLimit))
		}
		if a.StakedAmount > a.TotalDeposited {
			out = append(out, fmt.Sprintf("agent %s: staked %d over deposited %d",
				a.Owner, a.StakedAmount, a.TotalDeposited))
		}
	}
	for _, p := range snap.Proposals {
		if (p.Status == model.ProposalExecuted) != (p.ExecutedAt != 0) {
			out = append(out, fmt.Sprintf("proposal %d: status %s with executed_at %d",
				p.ID, p.Status, p.ExecutedAt))
		}
	}
	return out, nil
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is one failed scenario in a suite.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// RunDir loads and runs every *.yaml scenario in dir, in name order.
// A scenario that cannot be loaded or aborts counts as failed.
func RunDir(dir string, opts ...Option) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	sort.Strings(paths)

	suite := &SuiteResult{Failures: []ScenarioFailure{}}
	for _, path := range paths {
		suite.Total++
		failure := ScenarioFailure{Scenario: filepath.Base(path), Path: path}

		scenario, err := LoadScenario(path)
		if err != nil {
			failure.Errors = []string{err.Error()}
			suite.add(failure)
			continue
		}
		failure.Scenario = scenario.Name

		result, err := Run(scenario, opts...)
		switch {
		case err != nil:
			failure.Errors = []string{err.Error()}
		case !result.Pass:
			failure.Errors = result.Errors
		default:
			suite.Passed++
			continue
		}
		suite.add(failure)
	}
	return suite, nil
}

func (s *SuiteResult) add(f ScenarioFailure) {
	s.Failed++
	s.Failures = append(s.Failures, f)
}
