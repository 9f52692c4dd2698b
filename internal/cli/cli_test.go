package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/testutil"
)

type response struct {
	Status string    `json:"status"`
	Data   any       `json:"data"`
	Error  *CLIError `json:"error"`
}

// run executes the CLI against db with JSON output.
func run(t *testing.T, db string, args ...string) (response, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", db, "--format", "json"}, args...))

	err := cmd.Execute()

	var resp response
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp), "output: %s", out.String())
	}
	return resp, err
}

func data(t *testing.T, resp response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestEndToEnd_Withdrawal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "neobank.db")
	admin := testutil.ID("admin").String()
	owner := testutil.ID("owner").String()
	dest := testutil.ID("dest").String()

	resp, err := run(t, db, "init", "--admin", admin, "--fee-bps", "100")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.EqualValues(t, 100, data(t, resp)["fee_bps"])

	_, err = run(t, db, "airdrop", owner, "1000")
	require.NoError(t, err)

	resp, err = run(t, db, "agent", "register", owner, "--name", "bot", "--limit", "600")
	require.NoError(t, err)
	assert.Equal(t, "bot", data(t, resp)["name"])
	assert.EqualValues(t, 86_400, data(t, resp)["period_duration"])

	resp, err = run(t, db, "agent", "deposit", owner, "1000")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, data(t, resp)["vault_balance"])
	assert.EqualValues(t, 800, data(t, resp)["staked_amount"])

	resp, err = run(t, db, "withdraw", owner, dest, "500")
	require.NoError(t, err)
	receipt := data(t, resp)
	assert.EqualValues(t, 5, receipt["fee"])
	assert.EqualValues(t, 495, receipt["net"])
	assert.EqualValues(t, 500, receipt["period_spend"])

	resp, err = run(t, db, "withdraw", owner, dest, "200")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SpendingLimitExceeded", resp.Error.Code)

	resp, err = run(t, db, "balance", dest)
	require.NoError(t, err)
	assert.EqualValues(t, 495, data(t, resp)["balance"])

	resp, err = run(t, db, "balance", "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 5, data(t, resp)["balance"])

	resp, err = run(t, db, "events", "--kind", "withdrawal")
	require.NoError(t, err)
	events, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, events, 1)
}

func TestEndToEnd_Intent(t *testing.T) {
	db := filepath.Join(t.TempDir(), "neobank.db")
	owner := testutil.ID("owner").String()

	_, err := run(t, db, "init", "--admin", testutil.ID("admin").String())
	require.NoError(t, err)
	_, err = run(t, db, "airdrop", owner, "300")
	require.NoError(t, err)
	_, err = run(t, db, "agent", "register", owner, "--name", "bot", "--limit", "1000")
	require.NoError(t, err)
	_, err = run(t, db, "agent", "deposit", owner, "300")
	require.NoError(t, err)

	resp, err := run(t, db, "intent", owner, "200", "--memo", "rent")
	require.NoError(t, err)
	v := data(t, resp)
	assert.Equal(t, true, v["valid"])
	assert.EqualValues(t, 1000, v["remaining_limit"])
	assert.Equal(t, "rent", v["memo"])

	resp, err = run(t, db, "intent", owner, "400")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, false, data(t, resp)["valid"])
}

func TestEndToEnd_PauseBlocksWithdrawal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "neobank.db")
	admin := testutil.ID("admin").String()
	owner := testutil.ID("owner").String()

	_, err := run(t, db, "init", "--admin", admin)
	require.NoError(t, err)
	_, err = run(t, db, "agent", "register", owner, "--name", "bot", "--limit", "10")
	require.NoError(t, err)

	_, err = run(t, db, "admin", "pause", "--caller", owner)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, err := run(t, db, "admin", "pause", "--caller", admin, "--reason", "upgrade")
	require.NoError(t, err)
	assert.Equal(t, true, data(t, resp)["paused"])
	assert.Equal(t, "upgrade", data(t, resp)["pause_reason"])
	assert.Equal(t, "armed", data(t, resp)["state"])

	resp, err = run(t, db, "withdraw", owner, testutil.ID("dest").String(), "0")
	require.Error(t, err)
	assert.Equal(t, "BankPaused", resp.Error.Code)

	resp, err = run(t, db, "admin", "status")
	require.NoError(t, err)
	assert.Equal(t, true, data(t, resp)["paused"])
	assert.Equal(t, "armed", data(t, resp)["breaker"])
}

func TestEndToEnd_Governance(t *testing.T) {
	db := filepath.Join(t.TempDir(), "neobank.db")
	admin := testutil.ID("admin").String()
	a1 := testutil.ID("gov-1").String()
	a2 := testutil.ID("gov-2").String()
	dest := testutil.ID("vendor").String()

	_, err := run(t, db, "init", "--admin", admin)
	require.NoError(t, err)
	_, err = run(t, db, "airdrop", "treasury", "1000")
	require.NoError(t, err)

	resp, err := run(t, db, "gov", "init", "--caller", admin, "--admins", a1+","+a2, "--threshold", "2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, data(t, resp)["threshold"])

	resp, err = run(t, db, "gov", "propose", dest, "400", "--proposer", a1, "--memo", "audit")
	require.NoError(t, err)
	assert.EqualValues(t, 0, data(t, resp)["id"])
	assert.Equal(t, "pending", data(t, resp)["status"])
	assert.EqualValues(t, 1, data(t, resp)["votes_for"])

	resp, err = run(t, db, "gov", "vote", "0", "--voter", a2)
	require.NoError(t, err)
	assert.Equal(t, "approved", data(t, resp)["status"])

	resp, err = run(t, db, "gov", "execute", "0", testutil.ID("other").String())
	require.Error(t, err)
	assert.Equal(t, "InvalidDestination", resp.Error.Code)

	resp, err = run(t, db, "gov", "execute", "0", dest)
	require.NoError(t, err)
	assert.Equal(t, "executed", data(t, resp)["status"])

	resp, err = run(t, db, "balance", dest)
	require.NoError(t, err)
	assert.EqualValues(t, 400, data(t, resp)["balance"])
}

func TestEndToEnd_GenesisAndCrank(t *testing.T) {
	db := filepath.Join(t.TempDir(), "neobank.db")
	genesisPath := filepath.Join("..", "genesis", "testdata", "bank.cue")

	resp, err := run(t, db, "validate", genesisPath)
	require.NoError(t, err)
	assert.Equal(t, true, data(t, resp)["valid"])

	resp, err = run(t, db, "init", "--genesis", genesisPath)
	require.NoError(t, err)
	sum := data(t, resp)
	assert.EqualValues(t, 2, sum["agents"])
	assert.Equal(t, true, sum["governance"])

	alice := "5S2vx1s2JFrYEGMedmqQWYzd519Esfk7mX13aKDjDKjv"
	resp, err = run(t, db, "hook", "configure", alice, "--condition", "balance_above", "--param", "1000", "--percent", "25")
	require.NoError(t, err)
	assert.Equal(t, "internal", data(t, resp)["protocol"])

	resp, err = run(t, db, "crank", "--once")
	require.NoError(t, err)
	rep := data(t, resp)
	triggered, ok := rep["triggered"].([]any)
	require.True(t, ok)
	require.Len(t, triggered, 1)
	// alice deposited 10000, so 8000 is staked and a quarter deploys.
	assert.EqualValues(t, 2000, triggered[0].(map[string]any)["amount"])

	resp, err = run(t, db, "hook", "status", alice)
	require.NoError(t, err)
	assert.EqualValues(t, 1, data(t, resp)["trigger_count"])
}

func TestEndToEnd_StakePoolRoundTrip(t *testing.T) {
	db := filepath.Join(t.TempDir(), "neobank.db")
	owner := testutil.ID("owner").String()

	_, err := run(t, db, "init", "--admin", testutil.ID("admin").String())
	require.NoError(t, err)
	_, err = run(t, db, "airdrop", owner, "1000")
	require.NoError(t, err)
	_, err = run(t, db, "agent", "register", owner, "--name", "bot", "--limit", "1000")
	require.NoError(t, err)
	_, err = run(t, db, "agent", "deposit", owner, "1000")
	require.NoError(t, err)
	_, err = run(t, db, "hook", "configure", owner, "--protocol", "jitosol", "--param", "0", "--percent", "50")
	require.NoError(t, err)

	resp, err := run(t, db, "hook", "trigger", owner)
	require.NoError(t, err)
	assert.EqualValues(t, 400, data(t, resp)["amount"])

	resp, err = run(t, db, "hook", "withdraw", owner, "100")
	require.NoError(t, err)
	assert.EqualValues(t, 100, data(t, resp)["amount"])

	resp, err = run(t, db, "balance", "stake-pool")
	require.NoError(t, err)
	assert.EqualValues(t, 300, data(t, resp)["balance"])

	resp, err = run(t, db, "hook", "withdraw", owner, "301")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "InsufficientFunds", resp.Error.Code)
}

func TestValidate_InvalidGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`admin: "C4k1bQUR145Spp3cfFzTtymVRuVBdZbzRaT4qHS9Zfsm"
fee_bps: 20000
agents: []
`), 0o644))

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "✗ Validation failed")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "unused.db"), "validate", "does-not-exist.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommand(t *testing.T) {
	resp, err := run(t, filepath.Join(t.TempDir(), "unused.db"), "scenario", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	suite := data(t, resp)
	assert.EqualValues(t, 5, suite["total"])
	assert.EqualValues(t, 0, suite["failed"])
}

func TestBadIdentity(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "neobank.db"), "balance", "not-base58!")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
