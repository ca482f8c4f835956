// Package orchestrator drives the switch state machine that moves the
// funded (voting) identity from one host in a validator pair to the other:
// plan -> arm the current active host to its unfunded identity -> stream
// the tower file to the standby -> activate the standby with the funded
// identity -> verify a new vote lands. All remote mutation is driven over
// persistent SSH channels through internal/sshpool.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sol-strategies/solana-validator-switch/internal/alert"
	"github.com/sol-strategies/solana-validator-switch/internal/constants"
	"github.com/sol-strategies/solana-validator-switch/internal/probe"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/solana"
	"github.com/sol-strategies/solana-validator-switch/internal/sshpool"
)

// Phase names the state the orchestrator is in, used both as state-machine
// labels and in switcherr.NewPhase for a failed switch.
type Phase string

const (
	// PhasePlanning resolves roles, probes both hosts, and builds the plan.
	PhasePlanning Phase = "planning"
	// PhaseArmingSource demotes the currently-active host to its unfunded identity.
	PhaseArmingSource Phase = "arming_source"
	// PhaseTransferringTower streams the tower file from source to destination.
	PhaseTransferringTower Phase = "transferring_tower"
	// PhaseActivatingDest promotes the destination host to the funded identity.
	PhaseActivatingDest Phase = "activating_dest"
	// PhaseVerifying polls for a new credited vote from the destination.
	PhaseVerifying Phase = "verifying"
)

// SwitchPlan is the immutable record produced by planning and consumed once
// by the remaining phases.
type SwitchPlan struct {
	PairIndex                  int
	SourceHost                 string
	DestHost                   string
	SourceTowerPath            string
	DestTowerPath              string
	DestFundedIdentityPath     string
	SourceUnfundedIdentityPath string
	SourceKind                 probe.Kind
	DestKind                   probe.Kind
	SourceSetIdentityCmd       string
	DestSetIdentityCmd         string
	PlannedAtVoteSlot          uint64
}

// Options tunes one Switch call.
type Options struct {
	// DryRun stops after Phase 1 and performs no remote mutation.
	DryRun bool
	// RequireTower controls whether set-identity commands carry
	// --require-tower. Defaults to true; disabling it voids the
	// double-vote safety property and should only ever be set from an
	// explicit, operator-visible CLI flag.
	RequireTower bool
	// VerifyTimeout bounds Phase 5's poll for a new credited vote.
	VerifyTimeout time.Duration
	// VerifyPollInterval is how often Phase 5 re-polls the vote account.
	VerifyPollInterval time.Duration
}

// DefaultOptions returns the options a plain switch runs with.
func DefaultOptions() Options {
	return Options{
		RequireTower:       true,
		VerifyTimeout:      30 * time.Second,
		VerifyPollInterval: time.Second,
	}
}

// Transport is the subset of *sshpool.Pool the orchestrator drives hosts
// through. Abstracted so tests can substitute a fake transport instead of
// dialing real SSH servers.
type Transport interface {
	RunCommand(ctx context.Context, cfg sshpool.HostConfig, command string) (stdout, stderr string, err error)
	StreamTowerFile(ctx context.Context, src, dst sshpool.HostConfig, srcPath, dstPath string) (sshpool.StreamResult, error)
}

// Orchestrator runs switches for validator pairs, holding a per-pair
// exclusive lock for the lifetime of each switch so that no two switches on
// the same pair run concurrently through this Orchestrator. Health monitors
// do not take this lock; they only read pair state and never change
// identities.
type Orchestrator struct {
	pool       Transport
	solana     solana.ClientInterface
	dispatcher *alert.Dispatcher

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// New creates an Orchestrator driving hosts through pool and pair state
// through solanaClient, dispatching switch-result alerts through dispatcher.
func New(pool Transport, solanaClient solana.ClientInterface, dispatcher *alert.Dispatcher) *Orchestrator {
	return &Orchestrator{
		pool:       pool,
		solana:     solanaClient,
		dispatcher: dispatcher,
		locks:      make(map[int]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(pairIndex int) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[pairIndex]
	if !ok {
		l = &sync.Mutex{}
		o.locks[pairIndex] = l
	}
	return l
}

// Switch runs the full Planning->...->Verifying state machine for pair. It
// holds pair's exclusive lock for the whole call. Only Planning honors ctx
// cancellation; once arming starts the switch runs to completion or to a
// Failed(phase) terminal state.
func (o *Orchestrator) Switch(ctx context.Context, pair *sharedstate.ValidatorPair, opts Options) (*SwitchPlan, error) {
	lock := o.lockFor(pair.Index)
	lock.Lock()
	defer lock.Unlock()

	logger := log.With().Str("component", "orchestrator").Int("pair_index", pair.Index).Logger()

	plan, active, standby, err := o.plan(ctx, pair, opts, logger)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		logger.Info().Interface("plan", plan).Msg("dry run: plan computed, no remote mutation performed")
		return plan, nil
	}

	// Phases 2-5 are not cancellable: the critical window is short and no
	// concurrent mutator for this pair can exist while the lock is held.
	runCtx := context.Background()

	if err := o.armSource(runCtx, active, plan, opts, logger); err != nil {
		o.dispatchFailure(pair.Index, PhaseArmingSource, err)
		return plan, err
	}

	if err := o.transferTower(runCtx, active, standby, plan, logger); err != nil {
		o.dispatchFailure(pair.Index, PhaseTransferringTower, err)
		return plan, err
	}

	if err := o.activateDest(runCtx, standby, plan, opts, logger); err != nil {
		o.dispatchFailure(pair.Index, PhaseActivatingDest, err)
		return plan, err
	}

	elapsed, err := o.verify(runCtx, pair, plan, opts, logger)
	if err != nil {
		o.dispatchFailure(pair.Index, PhaseVerifying, err)
		return plan, err
	}

	standby.Role = constants.NodeRoleActive
	active.Role = constants.NodeRoleStandby

	o.dispatcher.Dispatch(alert.Alert{
		Kind:      alert.KindSwitchSuccess,
		Severity:  alert.SeverityInfo,
		Message:   fmt.Sprintf("switch completed in %s, new active host %s", elapsed, plan.DestHost),
		Timestamp: time.Now().UTC(),
		PairIndex: pair.Index,
	})

	return plan, nil
}

func (o *Orchestrator) dispatchFailure(pairIndex int, phase Phase, err error) {
	o.dispatcher.Dispatch(alert.Alert{
		Kind:      alert.KindSwitchFailure,
		Severity:  alert.SeverityCritical,
		Message:   fmt.Sprintf("switch failed in phase %s: %v", phase, err),
		Timestamp: time.Now().UTC(),
		PairIndex: pairIndex,
	})
}

func towerPath(ledgerDir string, spec probe.Spec, identity string) (string, error) {
	name, err := spec.TowerFileName(probe.CommandParams{Identity: identity})
	if err != nil {
		return "", err
	}
	return filepath.Join(ledgerDir, name), nil
}

func hostConfigFor(n *sharedstate.Node) sshpool.HostConfig {
	return sshpool.HostConfig{Address: n.Host, User: n.SSHUser, KeyFile: n.SSHKeyFile}
}

// nodeRunner adapts a node's pool session to probe.Runner.
type nodeRunner struct {
	pool Transport
	cfg  sshpool.HostConfig
}

func (r nodeRunner) RunCommand(ctx context.Context, _ string, command string) (string, string, error) {
	return r.pool.RunCommand(ctx, r.cfg, command)
}

func hookEnv(plan *SwitchPlan, node *sharedstate.Node, role string) map[string]string {
	return map[string]string{
		"PAIR_INDEX": fmt.Sprintf("%d", plan.PairIndex),
		"HOST":       node.Host,
		"ROLE":       role,
		"LEDGER_DIR": node.LedgerDir,
	}
}
