package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultStart is the clock reading a scenario starts at when it does not
// set one.
const DefaultStart int64 = 1_700_000_000

// Scenario is a scripted sequence of operations against a fresh ledger,
// followed by assertions on the audit log and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Start is the initial clock reading in Unix seconds.
	Start int64 `yaml:"start,omitempty"`

	// Steps run in order. A step whose expect clause is absent must
	// succeed.
	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation.
type Step struct {
	// Action names the operation, e.g. "withdraw" or "gov.vote".
	Action string `yaml:"action"`

	// Actor is the label of the calling identity. See Resolve.
	Actor string `yaml:"actor,omitempty"`

	Args map[string]any `yaml:"args,omitempty"`

	// Repeat runs the step this many times; zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect states the outcome a step must produce.
type Expect struct {
	// Code is "ok" or the expected error code.
	Code string `yaml:"code"`

	// Result is a subset match on the step's result fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the audit log or the final ledger state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the audit event kind (event_contains, event_count).
	Kind string `yaml:"kind,omitempty"`

	// Subject is an identity label or a literal subject such as "bank"
	// (event_contains, event_count).
	Subject string `yaml:"subject,omitempty"`

	// Kinds is the expected event order (event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Account is an identity label (balance).
	Account string `yaml:"account,omitempty"`

	Equals *uint64 `yaml:"equals,omitempty"`

	// Table is bank, agent, proposal or strategy (final_state).
	Table string `yaml:"table,omitempty"`

	// Key selects the record: an agent label or a proposal id (final_state).
	Key string `yaml:"key,omitempty"`

	// Expect is a subset match on the record's fields (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertEventContains  = "event_contains"
	AssertEventOrder     = "event_order"
	AssertEventCount     = "event_count"
	AssertBalance        = "balance"
	AssertFinalState     = "final_state"
	AssertSupplyBalanced = "supply_balanced"
)

// OutcomeOK is the outcome of a successful step.
const OutcomeOK = "ok"

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.Start == 0 {
		scenario.Start = DefaultStart
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Start < 0 {
		return fmt.Errorf("start must be non-negative")
	}

	for i, step := range s.Steps {
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if _, ok := actions[step.Action]; !ok {
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("steps[%d]: repeat must be non-negative", i)
		}
		if step.Expect != nil && step.Expect.Code == "" {
			return fmt.Errorf("steps[%d].expect: code is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertBalance:
		if a.Account == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: account and equals are required for balance", index)
		}
	case AssertFinalState:
		switch a.Table {
		case tableBank:
		case tableAgent, tableProposal, tableStrategy:
			if a.Key == "" {
				return fmt.Errorf("assertions[%d]: key is required for final_state on %s", index, a.Table)
			}
		case "":
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertSupplyBalanced:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
