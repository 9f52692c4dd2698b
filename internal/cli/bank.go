package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/neobank/internal/genesis"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Genesis string
	Admin   string
	FeeBps  uint16
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the bank",
		Long: `Initialize the bank configuration, once per ledger.

Either name the admin and fee directly, or bootstrap the whole ledger
(governance, treasury funding, agents) from a CUE genesis document.

Example:
  neobank init --admin <base58> --fee-bps 50
  neobank init --genesis ./genesis.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Genesis, "genesis", "", "CUE genesis document")
	cmd.Flags().StringVar(&opts.Admin, "admin", "", "admin identity (base58)")
	cmd.Flags().Uint16Var(&opts.FeeBps, "fee-bps", 0, "withdrawal fee in basis points (max 10000)")
	cmd.MarkFlagsMutuallyExclusive("genesis", "admin")
	cmd.MarkFlagsOneRequired("genesis", "admin")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Genesis != "" {
		doc, err := genesis.Load(opts.Genesis)
		if err != nil {
			var loadErr *genesis.LoadError
			if errors.As(err, &loadErr) {
				_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
				exitErr := WrapExitError(ExitCommandError, "invalid genesis document", err)
				exitErr.Reported = true
				return exitErr
			}
			return WrapExitError(ExitCommandError, "failed to load genesis", err)
		}
		return withApp(opts.RootOptions, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
			sum, err := genesis.Apply(ctx, genesis.Services{
				Accounts:   app.Accounts,
				Engine:     app.Engine,
				Governance: app.Gov,
			}, doc)
			return formatter.Report(sum, err)
		})
	}

	admin, err := parseIdentity("admin", opts.Admin)
	if err != nil {
		return err
	}
	return withApp(opts.RootOptions, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
		cfg, err := app.Accounts.InitializeBank(ctx, admin, opts.FeeBps)
		return formatter.Report(newBankView(cfg, 0), err)
	})
}

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <account> <amount>",
		Short: "Mint test funds into an account",
		Long: `Mint funds into any account. This is the only way new funds enter the
ledger; use "treasury" to fund the treasury.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			to, err := parseIdentity("account", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				bal, err := app.Accounts.Airdrop(ctx, to, amount)
				return formatter.Report(balanceView{Account: to, Balance: bal}, err)
			})
		},
	}
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <account>",
		Short:         "Show an account balance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			addr, err := parseIdentity("account", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				bal, err := app.Accounts.Balance(ctx, addr)
				return formatter.Report(balanceView{Account: addr, Balance: bal}, err)
			})
		},
	}
}

// NewAdminCommand creates the admin command group: pause control and the
// circuit breaker.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Pause control and circuit breaker administration",
	}
	cmd.PersistentFlags().StringVar(&caller, "caller", "", "bank admin identity (base58)")

	adminRun := func(fn func(ctx context.Context, app *App, caller model.Identity) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseIdentity("caller", caller)
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				out, err := fn(ctx, app, id)
				return formatter.Report(out, err)
			})
		}
	}

	var reason string
	pause := &cobra.Command{
		Use:           "pause",
		Short:         "Pause the bank",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: adminRun(func(ctx context.Context, app *App, caller model.Identity) (any, error) {
			r, err := model.ParsePauseReason(reason)
			if err != nil {
				return nil, err
			}
			return app.Engine.SetPaused(ctx, caller, true, r)
		}),
	}
	pause.Flags().StringVar(&reason, "reason", model.PauseMaintenance.String(), "pause reason (security|maintenance|upgrade)")

	unpause := &cobra.Command{
		Use:           "unpause",
		Short:         "Resume the bank",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: adminRun(func(ctx context.Context, app *App, caller model.Identity) (any, error) {
			return app.Engine.SetPaused(ctx, caller, false, model.PauseNone)
		}),
	}

	reset := &cobra.Command{
		Use:           "reset-breaker",
		Short:         "Zero the suspicious activity counter",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: adminRun(func(ctx context.Context, app *App, caller model.Identity) (any, error) {
			return app.Engine.ResetSecurityCounter(ctx, caller)
		}),
	}

	setThreshold := &cobra.Command{
		Use:           "set-threshold <count>",
		Short:         "Set the auto-pause threshold (0 disables the breaker)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return adminRun(func(ctx context.Context, app *App, caller model.Identity) (any, error) {
				return app.Engine.UpdateAutoPauseThreshold(ctx, caller, threshold)
			})(cmd, args)
		},
	}

	status := &cobra.Command{
		Use:           "status",
		Short:         "Show the bank configuration and breaker state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				var view bankView
				err := app.Store.View(ctx, func(tx *store.Tx) error {
					cfg, err := tx.Bank()
					if err != nil {
						return err
					}
					treasury, err := tx.Balance(model.TreasuryAddress())
					if err != nil {
						return err
					}
					view = newBankView(cfg, treasury)
					return nil
				})
				return formatter.Report(view, err)
			})
		},
	}

	cmd.AddCommand(pause, unpause, reset, setThreshold, status)
	return cmd
}
