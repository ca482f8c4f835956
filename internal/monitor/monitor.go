// Package monitor runs one long-lived polling loop per validator pair,
// tracking vote-credit freshness, RPC health, and SSH liveness, emitting
// debounced alerts through internal/alert.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sol-strategies/solana-validator-switch/internal/alert"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/solana"
	"github.com/sol-strategies/solana-validator-switch/internal/sshpool"
)

// Config tunes one Monitor's cadence and thresholds.
type Config struct {
	Interval                   time.Duration
	DelinquencyThreshold       time.Duration
	FailureAlertThresholdCount int
	FailureAlertThresholdAge   time.Duration
	CreditSampleCount          int
	CreditSampleInterval       time.Duration
}

// DefaultConfig returns the cadence and thresholds a monitor runs with
// when the config file leaves them unset.
func DefaultConfig() Config {
	return Config{
		Interval:                   time.Second,
		DelinquencyThreshold:       5 * time.Minute,
		FailureAlertThresholdCount: 100,
		FailureAlertThresholdAge:   30 * time.Minute,
		CreditSampleCount:          5,
		CreditSampleInterval:       5 * time.Second,
	}
}

// CreditSample is a single observation of a vote account's credited votes.
type CreditSample struct {
	Slot      uint64
	Credits   int64
	Timestamp time.Time
}

// pairState is the mutable counters and timestamps the monitor keeps for one
// pair. Counters reset on first success.
type pairState struct {
	sshConsecutiveFailures map[string]int
	sshFirstFailureAt      map[string]time.Time
	rpcConsecutiveFailures int
	rpcFirstFailureAt      time.Time
	lastVoteSlot           uint64
	lastVoteObservedAt     time.Time
	creditSamples          []CreditSample
}

func newPairState() *pairState {
	return &pairState{
		sshConsecutiveFailures: make(map[string]int),
		sshFirstFailureAt:      make(map[string]time.Time),
	}
}

// Runner is the subset of internal/sshpool.Pool's API the monitor needs for
// SSH liveness checks, narrowed to an interface so it can be faked in tests.
type Runner interface {
	RunCommand(ctx context.Context, cfg sshpool.HostConfig, command string) (stdout, stderr string, err error)
}

// Monitor polls one validator pair's health and feeds the alert dispatcher.
type Monitor struct {
	pair       *sharedstate.ValidatorPair
	solana     solana.ClientInterface
	pool       Runner
	dispatcher *alert.Dispatcher
	cfg        Config
	logger     zerolog.Logger

	state *pairState
}

// New creates a Monitor for pair, polling solanaClient and ssh pool.
func New(pair *sharedstate.ValidatorPair, solanaClient solana.ClientInterface, pool Runner, dispatcher *alert.Dispatcher, cfg Config) *Monitor {
	return &Monitor{
		pair:       pair,
		solana:     solanaClient,
		pool:       pool,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     log.With().Str("component", "monitor").Int("pair_index", pair.Index).Logger(),
		state:      newPairState(),
	}
}

// Run loops until ctx is cancelled, performing one iteration of work per
// cfg.Interval. Cancellation is observed between iterations: SSH liveness
// commands in flight are cancelled with ctx, but RPC calls in flight are
// not and run to completion before Run returns.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.checkVoteCredits(ctx)
	m.checkRPCHealth()
	for _, node := range m.pair.Nodes() {
		m.checkSSHLiveness(ctx, node)
	}
	m.evaluateAlerts()
}

func (m *Monitor) checkVoteCredits(ctx context.Context) {
	voteAccount, err := m.solana.GetVoteAccountByVotePubkey(m.pair.VoteAccountPubkey)
	if err != nil {
		m.recordRPCFailure(err)
		return
	}
	m.recordRPCSuccess()

	if len(voteAccount.EpochCredits) == 0 {
		return
	}
	last := voteAccount.EpochCredits[len(voteAccount.EpochCredits)-1]
	credits := last[1] - last[2]

	slot, err := m.solana.GetCurrentSlot()
	if err != nil {
		return
	}

	sample := CreditSample{Slot: slot, Credits: credits, Timestamp: time.Now().UTC()}
	m.state.creditSamples = append(m.state.creditSamples, sample)
	if len(m.state.creditSamples) > m.cfg.CreditSampleCount {
		m.state.creditSamples = m.state.creditSamples[len(m.state.creditSamples)-m.cfg.CreditSampleCount:]
	}

	if m.voteAdvanced() {
		m.state.lastVoteSlot = slot
		m.state.lastVoteObservedAt = sample.Timestamp
	}
}

// voteAdvanced reports whether the most recent credit samples show forward
// progress, i.e. the validator is still voting.
func (m *Monitor) voteAdvanced() bool {
	samples := m.state.creditSamples
	if len(samples) < 2 {
		return true
	}
	return samples[len(samples)-1].Credits > samples[len(samples)-2].Credits
}

func (m *Monitor) checkRPCHealth() {
	if m.solana.IsLocalNodeHealthy() {
		m.recordRPCSuccess()
		return
	}
	m.recordRPCFailure(nil)
}

func (m *Monitor) recordRPCFailure(err error) {
	if m.state.rpcConsecutiveFailures == 0 {
		m.state.rpcFirstFailureAt = time.Now().UTC()
	}
	m.state.rpcConsecutiveFailures++
	m.logger.Debug().Err(err).Int("consecutive_failures", m.state.rpcConsecutiveFailures).Msg("rpc check failed")
}

func (m *Monitor) recordRPCSuccess() {
	m.state.rpcConsecutiveFailures = 0
	m.state.rpcFirstFailureAt = time.Time{}
}

func (m *Monitor) checkSSHLiveness(ctx context.Context, node *sharedstate.Node) {
	_, _, err := m.pool.RunCommand(ctx, sshpool.HostConfig{Address: node.Host, User: node.SSHUser, KeyFile: node.SSHKeyFile}, "true")
	if err != nil {
		if m.state.sshConsecutiveFailures[node.Host] == 0 {
			m.state.sshFirstFailureAt[node.Host] = time.Now().UTC()
		}
		m.state.sshConsecutiveFailures[node.Host]++
		return
	}
	m.state.sshConsecutiveFailures[node.Host] = 0
	delete(m.state.sshFirstFailureAt, node.Host)
}

func (m *Monitor) evaluateAlerts() {
	m.evaluateDelinquency()
	m.evaluateFailureAlert(alert.KindRPCFailure, m.state.rpcConsecutiveFailures, m.state.rpcFirstFailureAt)
	for _, node := range m.pair.Nodes() {
		m.evaluateFailureAlert(alert.KindSSHFailure, m.state.sshConsecutiveFailures[node.Host], m.state.sshFirstFailureAt[node.Host])
	}
}

func (m *Monitor) evaluateDelinquency() {
	if m.state.lastVoteObservedAt.IsZero() {
		return
	}
	timeSinceLastVote := time.Since(m.state.lastVoteObservedAt)
	sshHealthy := true
	for _, node := range m.pair.Nodes() {
		if m.state.sshConsecutiveFailures[node.Host] > 0 {
			sshHealthy = false
		}
	}
	rpcHealthy := m.state.rpcConsecutiveFailures == 0

	// gate on both SSH and RPC currently healthy to avoid false positives
	// during network partitions on the monitoring host.
	if timeSinceLastVote >= m.cfg.DelinquencyThreshold && sshHealthy && rpcHealthy {
		m.dispatcher.Dispatch(alert.Alert{
			Kind:      alert.KindDelinquency,
			Severity:  alert.SeverityCritical,
			Message:   "vote account has not produced a credited vote within the delinquency threshold",
			Timestamp: time.Now().UTC(),
			PairIndex: m.pair.Index,
		})
	}
}

func (m *Monitor) evaluateFailureAlert(kind alert.Kind, consecutiveFailures int, firstFailureAt time.Time) {
	if consecutiveFailures == 0 {
		return
	}
	firstFailureAge := time.Since(firstFailureAt)
	if consecutiveFailures < m.cfg.FailureAlertThresholdCount && firstFailureAge < m.cfg.FailureAlertThresholdAge {
		return
	}

	m.dispatcher.Dispatch(alert.Alert{
		Kind:      kind,
		Severity:  alert.SeverityWarning,
		Message:   "sustained failures detected",
		Timestamp: time.Now().UTC(),
		PairIndex: m.pair.Index,
	})
}
