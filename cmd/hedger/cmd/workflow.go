package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/guard"
	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/rules"
	"github.com/rustyeddy/hedger/workflow"
)

// describe prints guard messages of a blocked action and passes err on.
func describe(w io.Writer, err error) error {
	var ve *workflow.ValidationError
	if errors.As(err, &ve) {
		for _, m := range ve.Messages {
			fmt.Fprintf(w, "  ✗ %s\n", m)
		}
	}
	return err
}

func newActionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions <id>",
		Short: "List the lifecycle actions offered for a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			rel, err := b.api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s is %s\n", rel.ID, rel.HedgeState)
			for _, o := range a.dispatcher(cmd, b.api).Available(rel) {
				mark := "✓"
				if !o.Enabled {
					mark = "-"
				}
				fmt.Fprintf(w, "  %s %s\n", mark, o.Action)
			}
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "check <id> <action>",
		Short: "Run the guards for an action without dispatching it",
		Long: `Evaluate the transition guards for an action and print every violation
and pending confirmation. Exits non-zero when the action is blocked.

Actions: Save, Regress, Backload, Designate, De-Designate, Re-Designate, Redraft`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := workflow.ParseAction(args[1])
			if err != nil {
				return err
			}

			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			rel, err := b.api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rel = rules.Normalize(rel)

			res := guard.Evaluate(guard.Transition(act), rel, guard.Inputs{
				Now:        time.Now(),
				WarnMonths: a.cfg.Rules.DedesignationWarnMonths,
				Reason:     hedge.DedesignationReason(reason),
			})

			w := cmd.OutOrStdout()
			for _, v := range res.Violations {
				fmt.Fprintf(w, "  ✗ %s: %s\n", v.Code, v.Msg)
			}
			for _, c := range res.Confirmations {
				fmt.Fprintf(w, "  ? %s: %s\n", c.Code, c.Msg)
			}
			if !res.OK() {
				return fmt.Errorf("%s blocked by %d rule(s)", act, len(res.Violations))
			}
			fmt.Fprintf(w, "✓ %s allowed\n", act)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "dedesignation reason for De-Designate")
	return cmd
}

func newDoCmd(a *app) *cobra.Command {
	var (
		reason string
		date   string
	)
	cmd := &cobra.Command{
		Use:   "do <id> <action>",
		Short: "Dispatch an action against a relationship",
		Long: `Run an action through its guards and the backend, asking for any
confirmation on the terminal unless --yes is set.

Examples:
  hedger do HR-01J... designate
  hedger do HR-01J... de-designate --reason Termination --date 2024-09-30
  hedger do HR-01J... backload`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := workflow.ParseAction(args[1])
			if err != nil {
				return err
			}
			var on *time.Time
			if date != "" {
				t, err := time.Parse(rules.DateLayout, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				on = &t
			}

			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			rel, err := b.api.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s := a.dispatcher(cmd, b.api).Open(rel)
			defer s.Close()

			switch {
			case act == workflow.DeDesignate:
				if _, err := s.BeginDeDesignation(ctx, hedge.DedesignationReason(reason)); err != nil {
					return describe(cmd.ErrOrStderr(), err)
				}
				if on != nil {
					if err := s.EditDeDesignation(func(p *hedge.DeDesignation) { p.DedesignationDate = *on }); err != nil {
						return err
					}
				}
			case act == workflow.ReDesignate && on != nil:
				if _, err := s.BeginReDesignation(ctx); err != nil {
					return describe(cmd.ErrOrStderr(), err)
				}
				if err := s.EditReDesignation(func(p *hedge.ReDesignation) { p.RedesignationDate = *on }); err != nil {
					return err
				}
			}

			if err := s.Dispatch(ctx, act); err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}

			out := s.Record()
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s: %s\n", act, out.ID, out.HedgeState)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "dedesignation reason (Termination, Sale, Ineffectiveness, Voluntary)")
	cmd.Flags().StringVar(&date, "date", "", "override the fetched de/re-designation date (YYYY-MM-DD)")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the transition journal of a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			if b.st == nil {
				return errLocalOnly
			}

			events, err := b.st.ListEvents(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tACTION\tFROM\tTO\tACTOR\tDETAIL")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.At.Format(time.RFC3339), e.Action, e.From, e.To, e.Actor, e.Detail)
			}
			return tw.Flush()
		},
	}
}
