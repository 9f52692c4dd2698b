package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/engine"
)

// NewAgentCommand creates the agent command group.
func NewAgentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Register and fund agents",
	}

	var (
		name   string
		limit  uint64
		period int64
	)
	register := &cobra.Command{
		Use:   "register <owner>",
		Short: "Register an agent with a periodic spending limit",
		Example: `  neobank agent register <base58> --name ops-bot --limit 5000
  neobank agent register <base58> --name payroll --limit 100000 --period 604800`,
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
				agent, err := app.Accounts.RegisterAgent(ctx, accounts.Registration{
					Owner:          owner,
					Name:           name,
					SpendingLimit:  limit,
					PeriodDuration: period,
				})
				return formatter.Report(newAgentView(agent, 0), err)
			})
		},
	}
	register.Flags().StringVar(&name, "name", "", "agent name (1-32 characters)")
	register.Flags().Uint64Var(&limit, "limit", 0, "spending limit per period")
	register.Flags().Int64Var(&period, "period", accounts.DefaultPeriodDuration, "period length in seconds")
	_ = register.MarkFlagRequired("name")
	_ = register.MarkFlagRequired("limit")

	deposit := &cobra.Command{
		Use:           "deposit <owner> <amount>",
		Short:         "Move funds from the owner into the agent's vault",
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
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				if _, err := app.Accounts.Deposit(ctx, owner, amount); err != nil {
					return formatter.Report(nil, err)
				}
				agent, vault, err := app.Accounts.Agent(ctx, owner)
				return formatter.Report(newAgentView(agent, vault), err)
			})
		},
	}

	accrue := &cobra.Command{
		Use:           "accrue <owner>",
		Short:         "Pay out pending staking yield from the treasury",
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
				accrual, err := app.Accounts.AccrueYield(ctx, owner)
				return formatter.Report(accrual, err)
			})
		},
	}

	show := &cobra.Command{
		Use:           "show <owner>",
		Short:         "Show an agent and its vault balance",
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
				agent, vault, err := app.Accounts.Agent(ctx, owner)
				return formatter.Report(newAgentView(agent, vault), err)
			})
		},
	}

	cmd.AddCommand(register, deposit, accrue, show)
	return cmd
}

// NewDelegateCommand creates the delegate command group.
func NewDelegateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Grant and revoke delegated authority over an agent",
	}

	var (
		canSpend, canManageYield bool
		validUntil               int64
	)
	add := &cobra.Command{
		Use:   "add <owner> <delegate>",
		Short: "Grant or replace a delegate",
		Long: `Grant a delegate permissions on the owner's agent. Adding an existing
delegate replaces its permissions and expiry.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			delegate, err := parseIdentity("delegate", args[1])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				d, err := app.Engine.AddDelegate(ctx, owner, engine.DelegateGrant{
					Delegate:       delegate,
					CanSpend:       canSpend,
					CanManageYield: canManageYield,
					ValidUntil:     validUntil,
				})
				return formatter.Report(newDelegateView(d), err)
			})
		},
	}
	add.Flags().BoolVar(&canSpend, "can-spend", false, "allow withdrawals")
	add.Flags().BoolVar(&canManageYield, "can-manage-yield", false, "allow yield hook configuration")
	add.Flags().Int64Var(&validUntil, "valid-until", 0, "expiry as unix seconds (0 = never)")

	revoke := &cobra.Command{
		Use:           "revoke <owner> <delegate>",
		Short:         "Remove a delegate",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			delegate, err := parseIdentity("delegate", args[1])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				err := app.Engine.RevokeDelegate(ctx, owner, delegate)
				return formatter.Report(map[string]any{"agent": owner, "revoked": delegate}, err)
			})
		},
	}

	list := &cobra.Command{
		Use:           "list <owner>",
		Short:         "List an agent's delegates",
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
				ds, err := app.Engine.ListDelegates(ctx, owner)
				views := make([]delegateView, 0, len(ds))
				for _, d := range ds {
					views = append(views, newDelegateView(d))
				}
				return formatter.Report(views, err)
			})
		},
	}

	cmd.AddCommand(add, revoke, list)
	return cmd
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	var authority string

	cmd := &cobra.Command{
		Use:   "withdraw <owner> <destination> <amount>",
		Short: "Withdraw from an agent's vault",
		Long: `Withdraw funds from an agent's vault to a destination.

The request is checked against pause state, delegate authority, the
spending limit for the current period and the destination risk screen.
A screened-out destination raises the suspicious activity count and may
trip the circuit breaker.`,
		Example: `  neobank withdraw <owner> <dest> 250
  neobank withdraw <owner> <dest> 250 --authority <delegate>`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseIdentity("owner", args[0])
			if err != nil {
				return err
			}
			dest, err := parseIdentity("destination", args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			auth := owner
			if authority != "" {
				if auth, err = parseIdentity("authority", authority); err != nil {
					return err
				}
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				receipt, err := app.Engine.RequestWithdrawal(ctx, engine.WithdrawalRequest{
					Agent:       owner,
					Authority:   auth,
					Destination: dest,
					Amount:      amount,
				})
				return formatter.Report(newWithdrawalView(receipt), err)
			})
		},
	}
	cmd.Flags().StringVar(&authority, "authority", "", "signing identity when acting as a delegate (defaults to owner)")

	return cmd
}

// NewIntentCommand creates the intent command.
func NewIntentCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		memo string
		at   int64
	)

	cmd := &cobra.Command{
		Use:   "intent <owner> <amount>",
		Short: "Check whether a withdrawal would fit the spending limit",
		Long: `Dry-run a withdrawal against the agent's spending limit and vault
balance without changing the ledger. --at evaluates the request as of a
future instant, accounting for a period rollover.`,
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
			req := engine.IntentRequest{Agent: owner, Amount: amount, Memo: memo}
			if cmd.Flags().Changed("at") {
				req.ExecutionTime = &at
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				v, err := app.Engine.ValidateIntent(ctx, req)
				if err != nil {
					return formatter.Report(nil, err)
				}
				if err := formatter.Success(v); err != nil {
					return err
				}
				if !v.Valid {
					exitErr := WrapExitError(ExitFailure, "intent rejected", v.Err())
					exitErr.Reported = true
					return exitErr
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&memo, "memo", "", "free-form note echoed in the result")
	cmd.Flags().Int64Var(&at, "at", 0, "evaluate as of this unix time")

	return cmd
}
