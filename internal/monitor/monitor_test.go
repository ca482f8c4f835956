package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-strategies/solana-validator-switch/internal/alert"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/solana"
	"github.com/sol-strategies/solana-validator-switch/internal/sshpool"
)

// fakeRunner answers RunCommand with a canned error per host.
type fakeRunner struct {
	errs map[string]error
}

func (r fakeRunner) RunCommand(_ context.Context, cfg sshpool.HostConfig, _ string) (string, string, error) {
	if err, ok := r.errs[cfg.Address]; ok {
		return "", "", err
	}
	return "", "", nil
}

type recordingTransport struct {
	sent []alert.Alert
}

func (t *recordingTransport) Send(a alert.Alert) error {
	t.sent = append(t.sent, a)
	return nil
}

func newTestPair() *sharedstate.ValidatorPair {
	return &sharedstate.ValidatorPair{
		Index:             1,
		VoteAccountPubkey: solanago.NewWallet().PublicKey().String(),
		NodeA:             &sharedstate.Node{Host: "host-a:22"},
		NodeB:             &sharedstate.Node{Host: "host-b:22"},
	}
}

func newTestMonitor(t *testing.T, pair *sharedstate.ValidatorPair, mockSolana *solana.MockClient, runner Runner, cfg Config) (*Monitor, *recordingTransport) {
	t.Helper()
	transport := &recordingTransport{}
	dispatcher := alert.NewDispatcher(time.Hour, transport)
	m := New(pair, mockSolana, runner, dispatcher, cfg)
	return m, transport
}

// deliverQueued runs m's dispatcher just long enough to deliver every alert
// queued so far to the test's recording transport.
func deliverQueued(m *Monitor) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	m.dispatcher.Run(ctx)
}

func TestMonitor_Tick_HealthyPairRaisesNoAlerts(t *testing.T) {
	pair := newTestPair()
	nodeIdentity := solanago.NewWallet().PublicKey().String()
	mockSolana := solana.NewMockClientBuilder().
		WithVoteAccountIdentity(pair.VoteAccountPubkey, nodeIdentity, 100).
		Build()
	mockSolana.WithIsLocalNodeHealthy(func() bool { return true })
	mockSolana.WithGetCurrentSlot(func() (uint64, error) { return 100, nil })

	m, transport := newTestMonitor(t, pair, mockSolana, fakeRunner{}, DefaultConfig())

	m.tick(context.Background())
	deliverQueued(m)

	assert.Empty(t, transport.sent)
}

func TestMonitor_CheckSSHLiveness_TracksPerHostFailures(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	runner := fakeRunner{errs: map[string]error{"host-a:22": errors.New("dial refused")}}
	m, _ := newTestMonitor(t, pair, mockSolana, runner, DefaultConfig())

	m.checkSSHLiveness(context.Background(), pair.NodeA)
	m.checkSSHLiveness(context.Background(), pair.NodeB)

	assert.Equal(t, 1, m.state.sshConsecutiveFailures["host-a:22"])
	assert.Equal(t, 0, m.state.sshConsecutiveFailures["host-b:22"])
	assert.False(t, m.state.sshFirstFailureAt["host-a:22"].IsZero())
}

func TestMonitor_EvaluateFailureAlert_FiresOnceThresholdCountReached(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	runner := fakeRunner{errs: map[string]error{"host-a:22": errors.New("dial refused")}}
	cfg := DefaultConfig()
	cfg.FailureAlertThresholdCount = 3
	m, transport := newTestMonitor(t, pair, mockSolana, runner, cfg)

	for i := 0; i < 2; i++ {
		m.checkSSHLiveness(context.Background(), pair.NodeA)
		m.evaluateAlerts()
	}
	deliverQueued(m)
	assert.Empty(t, transport.sent, "must not alert before threshold count is reached")

	m.checkSSHLiveness(context.Background(), pair.NodeA)
	m.evaluateAlerts()
	deliverQueued(m)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, alert.KindSSHFailure, transport.sent[0].Kind)
}

func TestMonitor_EvaluateFailureAlert_FiresOnAgeEvenBelowCountThreshold(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	runner := fakeRunner{errs: map[string]error{"host-a:22": errors.New("dial refused")}}
	cfg := DefaultConfig()
	cfg.FailureAlertThresholdCount = 1000
	cfg.FailureAlertThresholdAge = 0
	m, transport := newTestMonitor(t, pair, mockSolana, runner, cfg)

	m.checkSSHLiveness(context.Background(), pair.NodeA)
	m.evaluateAlerts()
	deliverQueued(m)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, alert.KindSSHFailure, transport.sent[0].Kind)
}

func TestMonitor_EvaluateDelinquency_SkippedWhenSSHUnhealthy(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	runner := fakeRunner{errs: map[string]error{"host-a:22": errors.New("dial refused")}}
	cfg := DefaultConfig()
	cfg.DelinquencyThreshold = 0
	m, transport := newTestMonitor(t, pair, mockSolana, runner, cfg)

	m.state.lastVoteObservedAt = time.Now().Add(-time.Hour)
	m.checkSSHLiveness(context.Background(), pair.NodeA)
	m.evaluateAlerts()
	deliverQueued(m)

	for _, a := range transport.sent {
		assert.NotEqual(t, alert.KindDelinquency, a.Kind, "delinquency must not fire while a host is SSH-unreachable")
	}
}

func TestMonitor_EvaluateDelinquency_FiresWhenStaleAndHealthy(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	cfg := DefaultConfig()
	cfg.DelinquencyThreshold = time.Millisecond
	m, transport := newTestMonitor(t, pair, mockSolana, fakeRunner{}, cfg)

	m.state.lastVoteObservedAt = time.Now().Add(-time.Hour)
	m.evaluateAlerts()
	deliverQueued(m)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, alert.KindDelinquency, transport.sent[0].Kind)
}

func TestMonitor_VoteAdvanced_TrueWithFewerThanTwoSamples(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	m, _ := newTestMonitor(t, pair, mockSolana, fakeRunner{}, DefaultConfig())

	assert.True(t, m.voteAdvanced())

	m.state.creditSamples = []CreditSample{{Credits: 100}}
	assert.True(t, m.voteAdvanced())
}

func TestMonitor_VoteAdvanced_FalseWhenCreditsStall(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	m, _ := newTestMonitor(t, pair, mockSolana, fakeRunner{}, DefaultConfig())

	m.state.creditSamples = []CreditSample{{Credits: 100}, {Credits: 100}}
	assert.False(t, m.voteAdvanced())

	m.state.creditSamples = []CreditSample{{Credits: 100}, {Credits: 101}}
	assert.True(t, m.voteAdvanced())
}

func TestMonitor_CheckVoteCredits_RecordsSampleAndAdvancesSlot(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	mockSolana.WithGetVoteAccountByVotePubkey(func(votePubkey string) (*rpc.VoteAccountsResult, error) {
		return &rpc.VoteAccountsResult{
			EpochCredits: [][]int64{{10, 500, 400}, {11, 520, 500}},
		}, nil
	})
	mockSolana.WithGetCurrentSlot(func() (uint64, error) { return 42, nil })

	m, _ := newTestMonitor(t, pair, mockSolana, fakeRunner{}, DefaultConfig())
	m.checkVoteCredits(context.Background())

	require.Len(t, m.state.creditSamples, 1)
	assert.Equal(t, int64(20), m.state.creditSamples[0].Credits)
	assert.Equal(t, uint64(42), m.state.lastVoteSlot)
	assert.False(t, m.state.lastVoteObservedAt.IsZero())
}

func TestMonitor_CheckVoteCredits_RecordsRPCFailure(t *testing.T) {
	pair := newTestPair()
	mockSolana := solana.NewMockClientBuilder().Build()
	mockSolana.WithGetVoteAccountByVotePubkey(func(votePubkey string) (*rpc.VoteAccountsResult, error) {
		return nil, errors.New("rpc unavailable")
	})

	m, _ := newTestMonitor(t, pair, mockSolana, fakeRunner{}, DefaultConfig())
	m.checkVoteCredits(context.Background())

	assert.Equal(t, 1, m.state.rpcConsecutiveFailures)
	assert.False(t, m.state.rpcFirstFailureAt.IsZero())
}
