package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/hedger/client"
	"github.com/rustyeddy/hedger/config"
	"github.com/rustyeddy/hedger/internal/logging"
	"github.com/rustyeddy/hedger/metrics"
	"github.com/rustyeddy/hedger/sim"
	"github.com/rustyeddy/hedger/store"
	"github.com/rustyeddy/hedger/workflow"
)

// errLocalOnly is returned by commands that read the journal directly.
var errLocalOnly = errors.New("command needs the local store; unset api.base_url")

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgPath  string
	dbPath   string
	logLevel string
	yes      bool

	cfg *config.Config
	log *zap.Logger
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "hedger",
		Short: "Hedge relationship lifecycle workbench",
		Long: `Hedger edits hedge accounting relationships and runs them through
their lifecycle: Draft, Designated and Dedesignated.

It resolves dependent fields, checks transition guards and dispatches
Save, Regress, Backload, Designate, De-Designate, Re-Designate and
Redraft against a local SQLite store or a remote hedger service.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "hedger.yaml", "config file (YAML or JSON)")
	pf.StringVar(&a.dbPath, "db", "", "override store.db_path")
	pf.StringVar(&a.logLevel, "log-level", "", "override log.level")
	pf.BoolVarP(&a.yes, "yes", "y", false, "answer yes to every confirmation")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newNewCmd(a),
		newImportCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newSetCmd(a),
		newResolveCmd(a),
		newTemplateCmd(a),
		newActionsCmd(a),
		newCheckCmd(a),
		newDoCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
	)
	return root
}

// load reads the config file, falling back to defaults when the default
// path does not exist.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	var cfg *config.Config
	if _, err := os.Stat(a.cfgPath); err == nil {
		cfg, err = config.LoadFromFile(a.cfgPath)
		if err != nil {
			return err
		}
	} else if cmd.Flags().Changed("config") {
		return fmt.Errorf("config file: %w", err)
	} else {
		cfg = config.Default()
	}

	if a.dbPath != "" {
		cfg.Store.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// backend is the workflow.API the command runs against. st is nil when
// the backend is remote.
type backend struct {
	api workflow.API
	st  *store.SQLite
}

func (b *backend) Close() error {
	if b.st == nil {
		return nil
	}
	return b.st.Close()
}

func (a *app) open() (*backend, error) {
	if a.cfg.API.BaseURL != "" {
		timeout, _ := a.cfg.API.TimeoutDuration()
		retry, _ := a.cfg.API.RetryDuration()
		c := client.NewClient(a.cfg.API.BaseURL, a.cfg.API.Token, client.Options{
			Timeout:         timeout,
			RetryMaxElapsed: retry,
			Logger:          a.log.Named("client"),
		})
		return &backend{api: c}, nil
	}

	st, err := store.Open(a.cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	b := sim.New(st, sim.Options{Actor: a.cfg.Actor.Name, Logger: a.log.Named("sim")})
	return &backend{api: b, st: st}, nil
}

func (a *app) dispatcher(cmd *cobra.Command, api workflow.API) *workflow.Dispatcher {
	var m *metrics.Metrics
	if a.cfg.Metrics.Enabled {
		m = metrics.New()
	}
	return workflow.New(workflow.Config{
		API:        api,
		User:       a.cfg.User(),
		Confirmer:  a.confirmer(cmd),
		Methods:    a.cfg.EffectivenessMethods(),
		WarnMonths: a.cfg.Rules.DedesignationWarnMonths,
		Logger:     a.log.Named("workflow"),
		Metrics:    m,
	})
}

func (a *app) confirmer(cmd *cobra.Command) workflow.Confirmer {
	if a.yes {
		return workflow.AlwaysConfirm
	}
	return newPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
