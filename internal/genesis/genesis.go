// Package genesis bootstraps a ledger from a CUE document.
//
// A genesis document names the bank admin and fee, optionally the
// governance admins, treasury funding and a set of pre-registered agents.
// It is unified with an embedded schema before anything is written, so
// out-of-range fees, oversized admin sets and unreachable thresholds are
// rejected up front.
package genesis

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/governance"
	"github.com/roach88/neobank/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Error codes.
const (
	ErrCodeRead     = "E_GENESIS_READ"
	ErrCodeSchema   = "E_GENESIS_SCHEMA"
	ErrCodeCompile  = "E_GENESIS_COMPILE"
	ErrCodeValidate = "E_GENESIS_VALIDATE"
	ErrCodeDecode   = "E_GENESIS_DECODE"
)

// LoadError is a genesis document problem, positioned when CUE knows where.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func cueError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	if p, ok := err.(interface{ Position() token.Pos }); ok {
		le.Pos = p.Position()
	}
	return le
}

// Document is a decoded genesis file.
type Document struct {
	Admin              model.Identity `json:"admin"`
	FeeBps             uint16         `json:"fee_bps"`
	AutoPauseThreshold uint64         `json:"auto_pause_threshold"`
	TreasuryFunding    uint64         `json:"treasury_funding"`
	Governance         *Governance    `json:"governance,omitempty"`
	Agents             []Agent        `json:"agents"`
}

// Governance is the optional admin registry section.
type Governance struct {
	Admins    []model.Identity `json:"admins"`
	Threshold uint8            `json:"threshold"`
}

// Agent is a pre-registered agent.
type Agent struct {
	Owner          model.Identity `json:"owner"`
	Name           string         `json:"name"`
	SpendingLimit  uint64         `json:"spending_limit"`
	PeriodDuration int64          `json:"period_duration"`
	Airdrop        uint64         `json:"airdrop"`
	Deposit        uint64         `json:"deposit"`
}

// Load reads and parses a genesis file.
func Load(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(path, src)
}

// Parse unifies src with the genesis schema and decodes it.
func Parse(filename string, src []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Genesis"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeCompile, err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeValidate, err)
	}

	var doc Document
	if err := unified.Decode(&doc); err != nil {
		return nil, cueError(ErrCodeDecode, err)
	}
	return &doc, nil
}

// Services are the engines Apply writes through.
type Services struct {
	Accounts   *accounts.Service
	Engine     *engine.Engine
	Governance *governance.Engine
}

// Summary reports what Apply created.
type Summary struct {
	Admin           model.Identity `json:"admin"`
	FeeBps          uint16         `json:"fee_bps"`
	Governance      bool           `json:"governance"`
	TreasuryFunding uint64         `json:"treasury_funding"`
	Agents          int            `json:"agents"`
}

// Apply writes doc to an empty ledger. Each step is its own operation;
// a failure part-way leaves the earlier steps applied.
func Apply(ctx context.Context, svc Services, doc *Document) (Summary, error) {
	sum := Summary{Admin: doc.Admin, FeeBps: doc.FeeBps}

	if _, err := svc.Accounts.InitializeBank(ctx, doc.Admin, doc.FeeBps); err != nil {
		return sum, fmt.Errorf("initialize bank: %w", err)
	}
	if doc.AutoPauseThreshold != model.DefaultAutoPauseThreshold {
		if _, err := svc.Engine.UpdateAutoPauseThreshold(ctx, doc.Admin, doc.AutoPauseThreshold); err != nil {
			return sum, fmt.Errorf("set auto-pause threshold: %w", err)
		}
	}
	if doc.TreasuryFunding > 0 {
		if _, err := svc.Accounts.Airdrop(ctx, model.TreasuryAddress(), doc.TreasuryFunding); err != nil {
			return sum, fmt.Errorf("fund treasury: %w", err)
		}
		sum.TreasuryFunding = doc.TreasuryFunding
	}
	if g := doc.Governance; g != nil {
		if _, err := svc.Governance.Initialize(ctx, doc.Admin, g.Admins, g.Threshold); err != nil {
			return sum, fmt.Errorf("initialize governance: %w", err)
		}
		sum.Governance = true
	}

	for _, a := range doc.Agents {
		if _, err := svc.Accounts.RegisterAgent(ctx, accounts.Registration{
			Owner:          a.Owner,
			Name:           a.Name,
			SpendingLimit:  a.SpendingLimit,
			PeriodDuration: a.PeriodDuration,
		}); err != nil {
			return sum, fmt.Errorf("register agent %s: %w", a.Name, err)
		}
		if a.Airdrop > 0 {
			if _, err := svc.Accounts.Airdrop(ctx, a.Owner, a.Airdrop); err != nil {
				return sum, fmt.Errorf("airdrop agent %s: %w", a.Name, err)
			}
		}
		if a.Deposit > 0 {
			if _, err := svc.Accounts.Deposit(ctx, a.Owner, a.Deposit); err != nil {
				return sum, fmt.Errorf("deposit agent %s: %w", a.Name, err)
			}
		}
		sum.Agents++
	}
	return sum, nil
}
