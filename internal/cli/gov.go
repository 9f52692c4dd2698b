package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewGovCommand creates the treasury governance command group.
func NewGovCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gov",
		Short: "Multi-admin treasury governance",
		Long: `Treasury funds move only through proposals approved by a threshold of
admins. Proposals expire three days after creation.`,
	}

	var (
		caller    string
		admins    []string
		threshold uint8
	)
	initCmd := &cobra.Command{
		Use:           "init",
		Short:         "Create the admin registry",
		Example:       `  neobank gov init --caller <bank-admin> --admins <a>,<b>,<c> --threshold 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseIdentity("caller", caller)
			if err != nil {
				return err
			}
			set, err := parseIdentities("admin", admins)
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				reg, err := app.Gov.Initialize(ctx, id, set, threshold)
				return formatter.Report(newRegistryView(reg), err)
			})
		},
	}
	initCmd.Flags().StringVar(&caller, "caller", "", "bank admin identity (base58)")
	initCmd.Flags().StringSliceVar(&admins, "admins", nil, "governance admins (comma separated, at most 5)")
	initCmd.Flags().Uint8Var(&threshold, "threshold", 1, "approvals required to execute")
	_ = initCmd.MarkFlagRequired("admins")

	var (
		proposer string
		memo     string
	)
	propose := &cobra.Command{
		Use:           "propose <destination> <amount>",
		Short:         "Propose a treasury transfer",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseIdentity("proposer", proposer)
			if err != nil {
				return err
			}
			dest, err := parseIdentity("destination", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				p, err := app.Gov.CreateProposal(ctx, id, dest, amount, memo)
				return formatter.Report(newProposalView(p), err)
			})
		},
	}
	propose.Flags().StringVar(&proposer, "proposer", "", "admin identity (base58)")
	propose.Flags().StringVar(&memo, "memo", "", "note, truncated to 64 characters")

	var (
		voter  string
		reject bool
	)
	vote := &cobra.Command{
		Use:           "vote <proposal-id>",
		Short:         "Vote on a pending proposal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			id, err := parseIdentity("voter", voter)
			if err != nil {
				return err
			}
			pid, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				p, err := app.Gov.VoteProposal(ctx, id, pid, !reject)
				return formatter.Report(newProposalView(p), err)
			})
		},
	}
	vote.Flags().StringVar(&voter, "voter", "", "admin identity (base58)")
	vote.Flags().BoolVar(&reject, "reject", false, "vote against")

	execute := &cobra.Command{
		Use:   "execute <proposal-id> <destination>",
		Short: "Execute an approved proposal",
		Long: `Transfer the proposal amount from the treasury. The destination must
match the one recorded on the proposal. Anyone may execute.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			pid, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			dest, err := parseIdentity("destination", args[1])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				p, err := app.Gov.ExecuteProposal(ctx, pid, dest)
				return formatter.Report(newProposalView(p), err)
			})
		},
	}

	show := &cobra.Command{
		Use:           "show <proposal-id>",
		Short:         "Show a proposal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			pid, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				p, err := app.Gov.Proposal(ctx, pid)
				return formatter.Report(newProposalView(p), err)
			})
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List proposals and the admin registry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				ps, err := app.Gov.Proposals(ctx)
				if err != nil {
					return formatter.Report(nil, err)
				}
				views := make([]proposalView, 0, len(ps))
				for _, p := range ps {
					views = append(views, newProposalView(p))
				}
				return formatter.Success(views)
			})
		},
	}

	registry := &cobra.Command{
		Use:           "registry",
		Short:         "Show the admin registry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withApp(rootOpts, cmd.ErrOrStderr(), func(ctx context.Context, app *App) error {
				reg, err := app.Gov.Registry(ctx)
				return formatter.Report(newRegistryView(reg), err)
			})
		},
	}

	cmd.AddCommand(initCmd, propose, vote, execute, show, list, registry)
	return cmd
}
