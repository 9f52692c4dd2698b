package genesis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/governance"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
	"github.com/roach88/neobank/internal/testutil"
)

func TestLoad_Example(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "bank.cue"))
	require.NoError(t, err)

	assert.Equal(t, testutil.ID("admin"), doc.Admin)
	assert.Equal(t, uint16(50), doc.FeeBps)
	assert.Equal(t, uint64(model.DefaultAutoPauseThreshold), doc.AutoPauseThreshold)
	assert.Equal(t, uint64(100_000), doc.TreasuryFunding)

	require.NotNil(t, doc.Governance)
	assert.Equal(t, []model.Identity{testutil.ID("admin-a"), testutil.ID("admin-b"), testutil.ID("admin-c")}, doc.Governance.Admins)
	assert.Equal(t, uint8(2), doc.Governance.Threshold)

	require.Len(t, doc.Agents, 2)
	assert.Equal(t, Agent{
		Owner:          testutil.ID("alice"),
		Name:           "alice",
		SpendingLimit:  5_000,
		PeriodDuration: 86_400,
		Airdrop:        20_000,
		Deposit:        10_000,
	}, doc.Agents[0])
	assert.Equal(t, int64(3_600), doc.Agents[1].PeriodDuration)
	assert.Equal(t, uint64(0), doc.Agents[1].Deposit)
}

func TestParse_SchemaViolations(t *testing.T) {
	admin := `admin: "` + testutil.ID("admin").String() + `"` + "\n"
	ids := func(n int) string {
		out := "["
		for i := 0; i < n; i++ {
			out += `"` + testutil.ID(string(rune('a'+i))).String() + `",`
		}
		return out + "]"
	}
	tests := []struct {
		name string
		src  string
	}{
		{"missing admin", "fee_bps: 10\n"},
		{"fee above denominator", admin + "fee_bps: 10001\n"},
		{"negative fee", admin + "fee_bps: -1\n"},
		{"bad identity", `admin: "not-base58-0OIl"` + "\nfee_bps: 0\n"},
		{"six admins", admin + "fee_bps: 0\ngovernance: {admins: " + ids(6) + ", threshold: 1}\n"},
		{"threshold above admins", admin + "fee_bps: 0\ngovernance: {admins: " + ids(2) + ", threshold: 3}\n"},
		{"zero threshold", admin + "fee_bps: 0\ngovernance: {admins: " + ids(2) + ", threshold: 0}\n"},
		{"unknown field", admin + "fee_bps: 0\nfees: 3\n"},
		{"long agent name", admin + `fee_bps: 0
agents: [{owner: "` + testutil.ID("x").String() + `", name: "abcdefghijabcdefghijabcdefghijabc", spending_limit: 1}]
`},
		{"deposit above airdrop", admin + `fee_bps: 0
agents: [{owner: "` + testutil.ID("x").String() + `", name: "x", spending_limit: 1, airdrop: 5, deposit: 6}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.cue", []byte(tt.src))
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, ErrCodeValidate, le.Code)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse("broken.cue", []byte("admin: {\n"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeCompile, le.Code)
}

func TestApply(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "bank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	env := engine.NewEnv(s, engine.WithClock(testutil.NewManualClock(1_700_000_000)))
	svc := Services{
		Accounts:   accounts.New(env),
		Engine:     engine.New(env),
		Governance: governance.New(env),
	}
	ctx := context.Background()

	doc, err := Load(filepath.Join("testdata", "bank.cue"))
	require.NoError(t, err)
	doc.AutoPauseThreshold = 3

	sum, err := Apply(ctx, svc, doc)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		Admin:           testutil.ID("admin"),
		FeeBps:          50,
		Governance:      true,
		TreasuryFunding: 100_000,
		Agents:          2,
	}, sum)

	status, err := svc.Engine.BreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), status.AutoPauseThreshold)

	reg, err := svc.Governance.Registry(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), reg.AdminCount)

	alice, vault, err := svc.Accounts.Agent(ctx, testutil.ID("alice"))
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), vault)
	assert.Equal(t, uint64(8_000), alice.StakedAmount)

	treasury, err := svc.Accounts.Balance(ctx, model.TreasuryAddress())
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), treasury)

	// A second genesis on the same ledger fails at the first step.
	_, err = Apply(ctx, svc, doc)
	require.ErrorIs(t, err, model.ErrAlreadyInitialized)
}
