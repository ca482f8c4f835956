package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-strategies/solana-validator-switch/internal/switcherr"
)

// fakeRunner answers RunCommand with canned output keyed by the command
// string.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
}

func (r fakeRunner) RunCommand(_ context.Context, _ string, command string) (string, string, error) {
	if err, ok := r.errs[command]; ok {
		return "", "", err
	}
	return r.outputs[command], "", nil
}

func TestDetect_Agave(t *testing.T) {
	runner := fakeRunner{outputs: map[string]string{
		"pgrep -x 'agave-validator'":                                              "1234\n",
		"agave-validator --ledger /ledger monitor 2>/dev/null | head -1 || agave-validator -l /ledger monitor": "5HashIdentity111111111111111111111111111111 12345",
		"agave-validator --version": "agave-validator 2.0.1 (src:abc)",
	}}

	result, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", AllKinds())

	require.NoError(t, err)
	assert.Equal(t, KindAgave, result.Kind)
	assert.Equal(t, "5HashIdentity111111111111111111111111111111", result.Identity)
	assert.Equal(t, "2.0.1", result.Version)
}

func TestDetect_NotFound(t *testing.T) {
	runner := fakeRunner{outputs: map[string]string{}}

	_, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", AllKinds())

	assert.Error(t, err)
	assert.True(t, switcherr.Is(err, switcherr.KindProbeNotFound))
}

func TestDetect_Ambiguous(t *testing.T) {
	// A real host running two genuinely distinct validators (e.g. Solana
	// and Firedancer side by side) has no shared disambiguation signal, so
	// this stays a hard error.
	runner := fakeRunner{outputs: map[string]string{
		"pgrep -x 'solana-validator'": "1234\n",
		"pgrep -x 'fdctl|firedancer'": "5678\n",
	}}

	_, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", []Kind{KindSolana, KindFiredancer})

	assert.Error(t, err)
	assert.True(t, switcherr.Is(err, switcherr.KindProbeAmbiguous))
}

// TestDetect_PlainAgaveDisambiguatesFromJito guards against the
// process-name overlap between KindAgave and KindJito: a Jito-patched
// build runs as the same "agave-validator" binary, so pgrep -x with Jito's
// alternation pattern also matches a plain Agave host's single process.
// Detect must resolve this via the version string, not error Ambiguous.
func TestDetect_PlainAgaveDisambiguatesFromJito(t *testing.T) {
	runner := fakeRunner{outputs: map[string]string{
		"pgrep -x 'agave-validator'":                       "1234\n",
		"pgrep -x 'jito-solana-validator|agave-validator'": "1234\n",
		"agave-validator --ledger /ledger monitor 2>/dev/null | head -1 || agave-validator -l /ledger monitor": "5HashIdentity111111111111111111111111111111 12345",
		"agave-validator --version": "agave-validator 2.0.1 (src:abc)",
	}}

	result, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", AllKinds())

	require.NoError(t, err)
	assert.Equal(t, KindAgave, result.Kind)
	assert.Equal(t, "2.0.1", result.Version)
}

// TestDetect_JitoBuildDisambiguatesFromAgave is the other side of the same
// overlap: the binary's --version output names "jito", so Detect must
// resolve to KindJito rather than Agave.
func TestDetect_JitoBuildDisambiguatesFromAgave(t *testing.T) {
	runner := fakeRunner{outputs: map[string]string{
		"pgrep -x 'agave-validator'":                       "1234\n",
		"pgrep -x 'jito-solana-validator|agave-validator'": "1234\n",
		"agave-validator --ledger /ledger monitor 2>/dev/null | head -1": "5HashIdentity111111111111111111111111111111 12345",
		"agave-validator --version": "agave-validator 2.0.1-jito (src:abc)",
	}}

	result, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", AllKinds())

	require.NoError(t, err)
	assert.Equal(t, KindJito, result.Kind)
	assert.Equal(t, "2.0.1-jito", result.Version)
}

func TestDetect_ParseErrorOnMissingIdentity(t *testing.T) {
	runner := fakeRunner{outputs: map[string]string{
		"pgrep -x 'agave-validator'": "1234\n",
		"agave-validator --ledger /ledger monitor 2>/dev/null | head -1 || agave-validator -l /ledger monitor": "",
	}}

	_, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", []Kind{KindAgave})

	assert.Error(t, err)
	assert.True(t, switcherr.Is(err, switcherr.KindProbeParse))
}

func TestDetect_PropagatesRunnerErrorAsParseError(t *testing.T) {
	runner := fakeRunner{
		outputs: map[string]string{"pgrep -x 'agave-validator'": "1234\n"},
		errs: map[string]error{
			"agave-validator --ledger /ledger monitor 2>/dev/null | head -1 || agave-validator -l /ledger monitor": errors.New("ssh: connection refused"),
		},
	}

	_, err := Detect(context.Background(), runner, "host-a", "agave-validator", "/ledger", []Kind{KindAgave})

	assert.Error(t, err)
	assert.True(t, switcherr.Is(err, switcherr.KindProbeParse))
}

func TestSpec_SetIdentityCommand_RequireTower(t *testing.T) {
	spec := Specs[KindAgave]

	withTower, err := spec.SetIdentityCommand(CommandParams{Bin: "agave-validator", LedgerDir: "/ledger", IdentityFile: "/id.json", RequireTower: true})
	require.NoError(t, err)
	assert.Contains(t, withTower, "--require-tower")

	withoutTower, err := spec.SetIdentityCommand(CommandParams{Bin: "agave-validator", LedgerDir: "/ledger", IdentityFile: "/id.json", RequireTower: false})
	require.NoError(t, err)
	assert.NotContains(t, withoutTower, "--require-tower")
}

func TestSpec_TowerFileName(t *testing.T) {
	cases := map[Kind]string{
		KindAgave:      "tower-1_9-abc123.bin",
		KindJito:       "tower-1_9-abc123.bin",
		KindSolana:     "tower-1_9-abc123.bin",
		KindFiredancer: "tower-1_9-abc123.bin.funk",
	}
	for kind, want := range cases {
		name, err := Specs[kind].TowerFileName(CommandParams{Identity: "abc123"})
		require.NoError(t, err)
		assert.Equal(t, want, name)
	}
}

func TestRequiresDistinctTowerFormat(t *testing.T) {
	assert.True(t, RequiresDistinctTowerFormat(KindFiredancer))
	assert.False(t, RequiresDistinctTowerFormat(KindAgave))
	assert.False(t, RequiresDistinctTowerFormat(KindJito))
	assert.False(t, RequiresDistinctTowerFormat(KindSolana))
}

func TestValidateCluster(t *testing.T) {
	assert.NoError(t, ValidateCluster("mainnet-beta"))
	assert.Error(t, ValidateCluster("not-a-cluster"))
}
