package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/neobank/internal/hooks"
	"github.com/roach88/neobank/internal/model"
)

// NewHookCommand creates the yield hook command group.
func NewHookCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Configure and trigger yield deployment hooks",
	}

	var (
		authority string
		condition string
		param     uint64
		protocol  string
		percent   uint8
		disabled  bool
	)
	configure := &cobra.Command{
		Use:   "configure <owner>",
		Short: "Create or replace the agent's yield strategy",
		Long: `Create or replace the agent's single yield strategy. Replacing a strategy
resets its trigger history.

Conditions:
  balance_above  staked amount is at least --param
  time_elapsed   --param seconds since the last trigger
  yield_above    pending yield is at least --param`,
		Example: `  neobank hook configure <owner> --condition balance_above --param 10000 --protocol jitosol --percent 50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			auth := owner
			if authority != "" {
				if auth, err = parseIdentity("authority", authority); err != nil {
					return err
				}
			}
			cond, err := model.NewHookCondition(model.ConditionKind(condition), param)
			if err != nil {
				return formatter.Report(nil, err)
			}
			proto, err := model.ParseYieldProtocol(protocol)
			if err != nil {
				return formatter.Report(nil, err)
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				s, err := app.Hooks.Configure(ctx, owner, auth, hooks.Strategy{
					Condition:        cond,
					Protocol:         proto,
					DeployPercentage: percent,
					Enabled:          !disabled,
				})
				if err != nil {
					return formatter.Report(nil, err)
				}
				return formatter.Success(newStrategyView(s))
			})
		},
	}
	configure.Flags().StringVar(&authority, "authority", "", "signing identity when acting as a delegate (defaults to owner)")
	configure.Flags().StringVar(&condition, "condition", string(model.ConditionBalanceAbove), "trigger condition")
	configure.Flags().Uint64Var(&param, "param", 0, "condition threshold or interval")
	configure.Flags().StringVar(&protocol, "protocol", model.ProtocolInternal.String(), "yield protocol (internal|jupiter|meteora|marinade|jitosol)")
	configure.Flags().Uint8Var(&percent, "percent", 0, "share of the staked amount to deploy (1-100)")
	configure.Flags().BoolVar(&disabled, "disabled", false, "store the strategy without enabling it")
	_ = configure.MarkFlagRequired("percent")

	trigger := &cobra.Command{
		Use:   "trigger <owner>",
		Short: "Deploy funds if the agent's hook condition is met",
		Long: `Evaluate the agent's strategy and, when the condition holds, deploy the
configured share of the staked amount to the protocol. Anyone may trigger.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				res, err := app.Hooks.Trigger(ctx, owner)
				if err != nil {
					return formatter.Report(nil, err)
				}
				return formatter.Success(newTriggerView(res))
			})
		},
	}

	status := &cobra.Command{
		Use:           "status <owner>",
		Short:         "Show the agent's strategy and whether it would trigger now",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				st, err := app.Hooks.CheckStatus(ctx, owner)
				return formatter.Report(st, err)
			})
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List every configured strategy",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				ss, err := app.Hooks.Strategies(ctx)
				if err != nil {
					return formatter.Report(nil, err)
				}
				views := make([]strategyView, 0, len(ss))
				for _, s := range ss {
					views = append(views, newStrategyView(s))
				}
				return formatter.Success(views)
			})
		},
	}

	var withdrawAuthority string
	withdraw := &cobra.Command{
		Use:   "withdraw <owner> <amount>",
		Short: "Return deployed funds from the stake pool to the vault",
		Long: `Withdraw part of the agent's stake pool position back into its vault.
Only protocols that hold real funds (jitosol) support withdrawal, and an
agent can withdraw at most what it has deployed.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			auth := owner
			if withdrawAuthority != "" {
				if auth, err = parseIdentity("authority", withdrawAuthority); err != nil {
					return err
				}
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				res, err := app.Hooks.WithdrawStake(ctx, owner, auth, amount)
				return formatter.Report(res, err)
			})
		},
	}
	withdraw.Flags().StringVar(&withdrawAuthority, "authority", "", "signing identity when acting as a delegate (defaults to owner)")

	cmd.AddCommand(configure, trigger, status, list, withdraw)
	return cmd
}

func newTriggerView(r hooks.TriggerResult) triggerView {
	return triggerView{
		Agent:        r.Agent,
		Protocol:     r.Protocol.String(),
		Amount:       r.Amount,
		TriggerCount: r.TriggerCount,
		At:           r.At,
		Reason:       r.Reason,
	}
}
