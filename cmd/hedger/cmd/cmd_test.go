package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/hedger/config"
	"github.com/rustyeddy/hedger/guard"
)

const draftJSON = `{
  "bankEntity": "First National",
  "designationDate": "2024-01-15T00:00:00Z",
  "hedgeType": "CashFlow",
  "hedgeRiskType": "InterestRate",
  "benchmark": "SOFR",
  "hedgedItemType": "Forecasted",
  "assetLiability": "Liability",
  "reportCurrency": "USD",
  "prospectiveEffectivenessMethodId": 2,
  "retrospectiveEffectivenessMethodId": 2,
  "hedgedItems": [{"itemId": "D1", "securityType": "Debt", "notional": 1000000, "rate": 0.04, "itemStatus": "HA"}],
  "hedgingItems": [{"itemId": "S1", "securityType": "Swap", "notional": 1000000, "rate": 0.04, "itemStatus": "Validated"}]
}`

// workspace writes a config pointing at a fresh store and returns its path.
func workspace(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.DBPath = filepath.Join(dir, "hedger.db")
	cfg.Log.Level = "error"
	cfg.Metrics.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "hedger.yaml")
	require.NoError(t, cfg.SaveToFile(path))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func importDraft(t *testing.T, cfgPath string) string {
	t.Helper()

	file := filepath.Join(filepath.Dir(cfgPath), "draft.json")
	require.NoError(t, os.WriteFile(file, []byte(draftJSON), 0644))
	out, _, err := run(t, cfgPath, "", "import", file)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(id, "HR-"), id)
	return id
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "/nonexistent/hedger.yaml", "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hedger version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.yaml")
	_, _, err := run(t, "/nonexistent/hedger.yaml", "", "config", "init", "-o", path)
	require.NoError(t, err)

	out, _, err := run(t, "/nonexistent/hedger.yaml", "", "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "local store ./hedger.db")
}

func TestMissingExplicitConfig(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, "/nonexistent/hedger.yaml", "", "list")
	assert.Error(t, err)
}

func TestNewIsGuarded(t *testing.T) {
	t.Parallel()

	cfg := workspace(t, nil)

	_, stderr, err := run(t, cfg, "", "new", "bankEntity=First National")
	require.Error(t, err)
	assert.Contains(t, stderr, "Designation Date is required")

	out, _, err := run(t, cfg, "", "new", "bankEntity=First National", "designationDate=2024-01-15", "hedgeType=CashFlow")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, _, err = run(t, cfg, "", "list", "--state", "Draft")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "CashFlow")

	_, _, err = run(t, cfg, "", "new", "hedgeState=Designated")
	assert.Error(t, err)
}

func TestLifecycleFromTheCommandLine(t *testing.T) {
	t.Parallel()

	cfg := workspace(t, nil)
	id := importDraft(t, cfg)

	out, _, err := run(t, cfg, "", "actions", id)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Designate")

	_, stderr, err := run(t, cfg, "", "do", id, "designate")
	require.Error(t, err)
	assert.Contains(t, stderr, "documentation template")

	_, _, err = run(t, cfg, "", "template", id, "CF-standard")
	require.NoError(t, err)

	out, _, err = run(t, cfg, "", "do", id, "designate")
	require.NoError(t, err)
	assert.Contains(t, out, "Designated")

	out, _, err = run(t, cfg, "", "do", id, "de-designate", "--reason", "Sale", "--date", "2024-09-30")
	require.NoError(t, err)
	assert.Contains(t, out, "Dedesignated")

	out, _, err = run(t, cfg, "", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"dedesignationDate": "2024-09-30T00:00:00Z"`)

	out, _, err = run(t, cfg, "", "history", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Designate")
	assert.Contains(t, out, "De-Designate")
	assert.Contains(t, out, "admin")
}

func TestDeDesignateNearDesignationAsks(t *testing.T) {
	t.Parallel()

	cfg := workspace(t, nil)
	id := importDraft(t, cfg)
	_, _, err := run(t, cfg, "", "template", id, "CF")
	require.NoError(t, err)
	_, _, err = run(t, cfg, "", "do", id, "designate")
	require.NoError(t, err)

	_, stderr, err := run(t, cfg, "n\n", "do", id, "de-designate", "--reason", "Sale", "--date", "2024-02-01")
	require.Error(t, err)
	assert.Contains(t, stderr, "within 3 months")

	out, _, err := run(t, cfg, "", "--yes", "do", id, "de-designate", "--reason", "Sale", "--date", "2024-02-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Dedesignated")
}

func TestCheck(t *testing.T) {
	t.Parallel()

	cfg := workspace(t, nil)
	id := importDraft(t, cfg)

	out, _, err := run(t, cfg, "", "check", id, "designate")
	require.NoError(t, err)
	assert.Contains(t, out, "Designate allowed")

	_, _, err = run(t, cfg, "", "set", id, "isAnOptionHedge=true")
	require.Error(t, err)

	_, _, err = run(t, cfg, "", "check", id, "explode")
	assert.Error(t, err)
}

func TestSetAndResolve(t *testing.T) {
	t.Parallel()

	cfg := workspace(t, nil)
	id := importDraft(t, cfg)

	out, _, err := run(t, cfg, "", "resolve", id, "description=preview")
	require.NoError(t, err)
	assert.Contains(t, out, `"description": "preview"`)
	assert.Contains(t, out, `"benchmarkLabel"`)

	out, _, err = run(t, cfg, "", "show", id)
	require.NoError(t, err)
	assert.NotContains(t, out, "preview")

	_, _, err = run(t, cfg, "", "set", id, "description=kept")
	require.NoError(t, err)
	out, _, err = run(t, cfg, "", "show", id, "--view")
	require.NoError(t, err)
	assert.Contains(t, out, `"description": "kept"`)
	assert.Contains(t, out, `"effectivenessMethods"`)

	_, _, err = run(t, cfg, "", "set", id, "nonsense")
	assert.Error(t, err)
}

func TestJournalCommandsNeedLocalStore(t *testing.T) {
	t.Parallel()

	cfg := workspace(t, func(c *config.Config) { c.API.BaseURL = "http://127.0.0.1:1" })
	for _, args := range [][]string{{"list"}, {"history", "H1"}, {"template", "H1", "T"}} {
		_, _, err := run(t, cfg, "", args...)
		assert.ErrorIs(t, err, errLocalOnly, args)
	}
}

func TestPrompt(t *testing.T) {
	t.Parallel()

	c := guard.Confirmation{Code: "X", Msg: "Continue?"}
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := newPrompt(strings.NewReader(tt.in), &out)
		assert.Equal(t, tt.want, p.Confirm(context.Background(), c), "%q", tt.in)
		assert.Equal(t, "Continue? [y/N] ", out.String())
	}
}

func TestDecodeRelationships(t *testing.T) {
	t.Parallel()

	rels, err := decodeRelationships([]byte(`[{"bankEntity":"A"},{"bankEntity":"B"}]`))
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "B", rels[1].BankEntity)
	assert.Equal(t, "None", string(rels[1].Benchmark))

	_, err = decodeRelationships([]byte(`{`))
	assert.Error(t, err)
}
