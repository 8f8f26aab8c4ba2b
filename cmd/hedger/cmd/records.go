package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/rules"
	"github.com/rustyeddy/hedger/store"
	"github.com/rustyeddy/hedger/workflow"
)

// resolved is what show and resolve print.
type resolved struct {
	Record hedge.Relationship `json:"record"`
	View   *rules.View        `json:"view,omitempty"`
}

func parseChanges(args []string) ([]rules.Change, error) {
	out := make([]rules.Change, 0, len(args))
	for _, s := range args {
		c, err := rules.ParseChange(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new [field=value ...]",
		Short: "Create a draft relationship",
		Long: `Create a draft hedge relationship from field=value pairs and save it.

Example:
  hedger new bankEntity="First National" designationDate=2024-01-15 hedgeType=CashFlow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args)
			if err != nil {
				return err
			}

			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			s := a.dispatcher(cmd, b.api).Open(hedge.New(""))
			defer s.Close()
			for _, c := range changes {
				if err := s.Set(c); err != nil {
					return err
				}
			}
			if err := s.Dispatch(cmd.Context(), workflow.Save); err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), s.Record().ID)
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Save relationships from a JSON file",
		Long: `Save one relationship, or an array of them, from a JSON file. Each record
is normalized and must pass the Save checks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			rels, err := decodeRelationships(data)
			if err != nil {
				return err
			}

			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			d := a.dispatcher(cmd, b.api)
			for i, rel := range rels {
				out, err := d.Dispatch(cmd.Context(), workflow.Request{Action: workflow.Save, Record: rel})
				if err != nil {
					_ = describe(cmd.ErrOrStderr(), err)
					return fmt.Errorf("record %d: %w", i, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), out.Record.ID)
			}
			return nil
		},
	}
}

// decodeRelationships accepts a single object or an array. Fields left
// out keep the sentinel values of hedge.New.
func decodeRelationships(data []byte) ([]hedge.Relationship, error) {
	data = bytes.TrimSpace(data)
	docs := []json.RawMessage{data}
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode relationships: %w", err)
		}
	}

	rels := make([]hedge.Relationship, 0, len(docs))
	for i, doc := range docs {
		rel := hedge.New("")
		if err := json.Unmarshal(doc, &rel); err != nil {
			return nil, fmt.Errorf("decode relationship %d: %w", i, err)
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func newShowCmd(a *app) *cobra.Command {
	var withView bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a relationship as JSON",
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
			if !withView {
				return printJSON(cmd.OutOrStdout(), rel)
			}
			out := a.dispatcher(cmd, b.api).Resolve(rel)
			return printJSON(cmd.OutOrStdout(), resolved{Record: out.Record, View: &out.View})
		},
	}
	cmd.Flags().BoolVar(&withView, "view", false, "include the derived option lists")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var state, hedgeType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			if b.st == nil {
				return errLocalOnly
			}

			rels, err := b.st.List(cmd.Context(), store.Filter{
				State:     hedge.State(state),
				HedgeType: hedge.HedgeType(hedgeType),
			})
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), rels)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "filter by state (Draft, Designated, Dedesignated)")
	cmd.Flags().StringVar(&hedgeType, "type", "", "filter by hedge type")
	return cmd
}

func writeTable(w io.Writer, rels []hedge.Relationship) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tTYPE\tRISK\tBANK ENTITY")
	for _, r := range rels {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.HedgeState, r.HedgeType, r.HedgeRiskType, r.BankEntity)
	}
	return tw.Flush()
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> field=value [field=value ...]",
		Short: "Change fields and save",
		Long: `Apply field changes in order, resolving dependent fields after each one,
then save the relationship.

Example:
  hedger set HR-01J... isAnOptionHedge=false benchmark=SOFR`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args[1:])
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
			s := a.dispatcher(cmd, b.api).Open(rel)
			defer s.Close()
			for _, c := range changes {
				if err := s.Set(c); err != nil {
					return err
				}
			}
			if err := s.Dispatch(cmd.Context(), workflow.Save); err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}
			return printJSON(cmd.OutOrStdout(), s.Record())
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id> [field=value ...]",
		Short: "Preview a relationship after changes without saving",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseChanges(args[1:])
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
			s := a.dispatcher(cmd, b.api).Open(rel)
			defer s.Close()
			for _, c := range changes {
				if err := s.Set(c); err != nil {
					return err
				}
			}
			view := s.View()
			return printJSON(cmd.OutOrStdout(), resolved{Record: s.Record(), View: &view})
		},
	}
}

func newTemplateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "template <id> <name>",
		Short: "Attach a documentation template to a relationship",
		Long:  `Designation and re-designation need a documentation template on file.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()
			if b.st == nil {
				return errLocalOnly
			}
			if _, err := b.st.Get(cmd.Context(), args[0]); err != nil {
				return err
			}
			return b.st.SetTemplate(cmd.Context(), args[0], args[1])
		},
	}
}
