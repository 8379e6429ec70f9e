package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"drawpool/config"
	"drawpool/domain/entities"
	"drawpool/domain/interfaces"

	"github.com/spf13/cobra"
)

// withApp wires the service for a one-shot operator command
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd.Context(), config.Get())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func operatorFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "operator", os.Getenv("OPERATOR_ID"), "operator id checked against OPERATOR_IDS")
}

func newReportCommand() *cobra.Command {
	var roundID string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the consistency monitor and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				report, err := a.consistency.Report(ctx, roundID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&roundID, "round", "", "audit a single round")
	return cmd
}

func newCorrectCommand() *cobra.Command {
	var req entities.CorrectionRequest
	var targetType string
	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Overwrite one whitelisted field and record the before/after audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.TargetType = entities.CorrectionTarget(targetType)
			return withApp(cmd, func(ctx context.Context, a *app) error {
				record, err := a.corrections.ApplyCorrection(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	}
	cmd.Flags().StringVar(&targetType, "target-type", "", "round or participation")
	cmd.Flags().StringVar(&req.TargetID, "target-id", "", "id of the record to correct")
	cmd.Flags().StringVar(&req.Field, "field", "", "field to overwrite")
	cmd.Flags().StringVar(&req.NewValue, "value", "", "new value, empty clears a nullable field")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "why the correction is needed")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "print the before/after values without writing anything")
	operatorFlag(cmd, &req.OperatorID)
	_ = cmd.MarkFlagRequired("target-type")
	_ = cmd.MarkFlagRequired("target-id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("reason")

	cmd.AddCommand(&cobra.Command{
		Use:   "history <target-type> <target-id>",
		Short: "List the corrections applied to a record, oldest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				records, err := a.corrections.History(ctx, entities.CorrectionTarget(args[0]), args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), records)
			})
		},
	})
	return cmd
}

func newDrawCommand() *cobra.Command {
	var req interfaces.DrawRequest
	cmd := &cobra.Command{
		Use:   "draw <round-id>",
		Short: "Draw the winner of a full round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.RoundID = args[0]
			req.Trigger = entities.DrawTriggerManual
			if req.Forced {
				req.Trigger = entities.DrawTriggerForced
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.draws.TriggerDraw(ctx, req)
				if err != nil {
					return err
				}
				if !res.Executed {
					fmt.Fprintf(cmd.OutOrStdout(), "Round %s was already drawn\n", req.RoundID)
				}
				return printJSON(cmd.OutOrStdout(), res.Result)
			})
		},
	}
	cmd.Flags().BoolVar(&req.Forced, "forced", false, "bypass the draw window (requires an authorized operator and a reason)")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "why the draw is forced")
	operatorFlag(cmd, &req.OperatorID)
	return cmd
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <round-id>",
		Short: "Replay a completed draw and compare it with the stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				verification, err := a.draws.VerifyDraw(ctx, args[0])
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), verification); err != nil {
					return err
				}
				if !verification.Valid {
					return fmt.Errorf("draw for round %s does not verify", args[0])
				}
				return nil
			})
		},
	}
}

func newVoidCommand() *cobra.Command {
	var req interfaces.VoidRoundRequest
	cmd := &cobra.Command{
		Use:   "void <round-id>",
		Short: "Void an open or full round and refund paid participations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.RoundID = args[0]
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.rounds.VoidRound(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Round %s voided, refunded %d participations (%d total)\n",
					res.Round.ID, res.RefundedCount, res.RefundedAmount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Reason, "reason", "", "why the round is voided")
	operatorFlag(cmd, &req.OperatorID)
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newRoundCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Round administration",
	}

	var req interfaces.CreateRoundRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a new round for a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				round, err := a.rounds.CreateRound(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Round %s (#%d) open with %d shares at %d\n",
					round.ID, round.RoundNumber, round.TotalShares, round.SharePrice)
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.ProductID, "product", "", "product id")
	create.Flags().IntVar(&req.TotalShares, "shares", 0, "total shares")
	create.Flags().Int64Var(&req.SharePrice, "price", 0, "price per share")
	operatorFlag(create, &req.OperatorID)
	_ = create.MarkFlagRequired("product")
	_ = create.MarkFlagRequired("shares")

	cmd.AddCommand(create)
	return cmd
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Participant accounts",
	}

	var (
		balance  int64
		operator string
	)
	create := &cobra.Command{
		Use:   "create <user-id>",
		Short: "Open a wallet for a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.participations.OpenAccount(ctx, operator, args[0], balance)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s created with balance %d\n", user.ID, user.Balance)
				return nil
			})
		},
	}
	create.Flags().Int64Var(&balance, "balance", 0, "initial balance")
	operatorFlag(create, &operator)

	cmd.AddCommand(create)
	return cmd
}
