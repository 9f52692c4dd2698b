package cli

import (
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
)

type bankView struct {
	Admin                   model.Identity `json:"admin"`
	FeeBps                  uint16         `json:"fee_bps"`
	Paused                  bool           `json:"paused"`
	PauseReason             string         `json:"pause_reason"`
	Breaker                 string         `json:"breaker"`
	SuspiciousActivityCount uint64         `json:"suspicious_activity_count"`
	AutoPauseThreshold      uint64         `json:"auto_pause_threshold"`
	TotalFeesCollected      uint64         `json:"total_fees_collected"`
	TreasuryBalance         uint64         `json:"treasury_balance"`
}

func newBankView(cfg model.BankConfig, treasury uint64) bankView {
	return bankView{
		Admin:                   cfg.Admin,
		FeeBps:                  cfg.FeeBps,
		Paused:                  cfg.Paused,
		PauseReason:             cfg.PauseReason.String(),
		Breaker:                 string(cfg.Breaker()),
		SuspiciousActivityCount: cfg.SuspiciousActivityCount,
		AutoPauseThreshold:      cfg.AutoPauseThreshold,
		TotalFeesCollected:      cfg.TotalFeesCollected,
		TreasuryBalance:         treasury,
	}
}

type agentView struct {
	Owner              model.Identity `json:"owner"`
	Vault              model.Identity `json:"vault"`
	Name               string         `json:"name"`
	SpendingLimit      uint64         `json:"spending_limit"`
	PeriodDuration     int64          `json:"period_duration"`
	CurrentPeriodStart int64          `json:"current_period_start"`
	CurrentPeriodSpend uint64         `json:"current_period_spend"`
	RemainingLimit     uint64         `json:"remaining_limit"`
	TotalDeposited     uint64         `json:"total_deposited"`
	StakedAmount       uint64         `json:"staked_amount"`
	LastYieldTimestamp int64          `json:"last_yield_timestamp"`
	VaultBalance       uint64         `json:"vault_balance"`
}

func newAgentView(a model.Agent, vault uint64) agentView {
	return agentView{
		Owner:              a.Owner,
		Vault:              a.Vault(),
		Name:               a.Name,
		SpendingLimit:      a.SpendingLimit,
		PeriodDuration:     a.PeriodDuration,
		CurrentPeriodStart: a.CurrentPeriodStart,
		CurrentPeriodSpend: a.CurrentPeriodSpend,
		RemainingLimit:     a.RemainingLimit(),
		TotalDeposited:     a.TotalDeposited,
		StakedAmount:       a.StakedAmount,
		LastYieldTimestamp: a.LastYieldTimestamp,
		VaultBalance:       vault,
	}
}

type delegateView struct {
	Agent          model.Identity `json:"agent"`
	Delegate       model.Identity `json:"delegate"`
	CanSpend       bool           `json:"can_spend"`
	CanManageYield bool           `json:"can_manage_yield"`
	ValidUntil     int64          `json:"valid_until"`
	CreatedAt      int64          `json:"created_at"`
}

func newDelegateView(d model.Delegate) delegateView {
	return delegateView{
		Agent:          d.Agent,
		Delegate:       d.Delegate,
		CanSpend:       d.CanSpend,
		CanManageYield: d.CanManageYield,
		ValidUntil:     d.ValidUntil,
		CreatedAt:      d.CreatedAt,
	}
}

type withdrawalView struct {
	OpID        string         `json:"op_id"`
	Agent       model.Identity `json:"agent"`
	Authority   model.Identity `json:"authority"`
	Destination model.Identity `json:"destination"`
	Amount      uint64         `json:"amount"`
	Fee         uint64         `json:"fee"`
	Net         uint64         `json:"net"`
	PeriodSpend uint64         `json:"period_spend"`
	PeriodStart int64          `json:"period_start"`
	PeriodReset bool           `json:"period_reset"`
	At          int64          `json:"at"`
}

func newWithdrawalView(r engine.WithdrawalReceipt) withdrawalView {
	return withdrawalView{
		OpID:        r.OpID,
		Agent:       r.Agent,
		Authority:   r.Authority,
		Destination: r.Destination,
		Amount:      r.Amount,
		Fee:         r.Fee,
		Net:         r.Net,
		PeriodSpend: r.PeriodSpend,
		PeriodStart: r.PeriodStart,
		PeriodReset: r.PeriodReset,
		At:          r.At,
	}
}

type registryView struct {
	Admins        []model.Identity `json:"admins"`
	Threshold     uint8            `json:"threshold"`
	ProposalCount uint64           `json:"proposal_count"`
	CreatedAt     int64            `json:"created_at"`
}

func newRegistryView(r model.AdminRegistry) registryView {
	return registryView{
		Admins:        r.Members(),
		Threshold:     r.Threshold,
		ProposalCount: r.ProposalCount,
		CreatedAt:     r.CreatedAt,
	}
}

type proposalView struct {
	ID           uint64         `json:"id"`
	Proposer     model.Identity `json:"proposer"`
	Destination  model.Identity `json:"destination"`
	Amount       uint64         `json:"amount"`
	Memo         string         `json:"memo"`
	Status       string         `json:"status"`
	VotesFor     uint8          `json:"votes_for"`
	VotesAgainst uint8          `json:"votes_against"`
	CreatedAt    int64          `json:"created_at"`
	ExpiresAt    int64          `json:"expires_at"`
	ExecutedAt   int64          `json:"executed_at"`
}

func newProposalView(p model.TreasuryProposal) proposalView {
	return proposalView{
		ID:           p.ID,
		Proposer:     p.Proposer,
		Destination:  p.Destination,
		Amount:       p.Amount,
		Memo:         p.Memo,
		Status:       p.Status.String(),
		VotesFor:     p.VotesFor,
		VotesAgainst: p.VotesAgainst,
		CreatedAt:    p.CreatedAt,
		ExpiresAt:    p.ExpiresAt,
		ExecutedAt:   p.ExecutedAt,
	}
}

type strategyView struct {
	Agent            model.Identity `json:"agent"`
	Condition        string         `json:"condition"`
	Param            uint64         `json:"param"`
	Protocol         string         `json:"protocol"`
	DeployPercentage uint8          `json:"deploy_percentage"`
	Enabled          bool           `json:"enabled"`
	TriggerCount     uint64         `json:"trigger_count"`
	LastTriggered    int64          `json:"last_triggered"`
}

func newStrategyView(s model.YieldStrategy) strategyView {
	return strategyView{
		Agent:            s.Agent,
		Condition:        string(s.Condition.Kind()),
		Param:            s.Condition.Param(),
		Protocol:         s.Protocol.String(),
		DeployPercentage: s.DeployPercentage,
		Enabled:          s.Enabled,
		TriggerCount:     s.TriggerCount,
		LastTriggered:    s.LastTriggered,
	}
}

type triggerView struct {
	Agent        model.Identity `json:"agent"`
	Protocol     string         `json:"protocol"`
	Amount       uint64         `json:"amount"`
	TriggerCount uint64         `json:"trigger_count"`
	At           int64          `json:"at"`
	Reason       string         `json:"reason"`
}

type balanceView struct {
	Account model.Identity `json:"account"`
	Balance uint64         `json:"balance"`
}
