package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sol-strategies/solana-validator-switch/internal/probe"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/state"
	"github.com/sol-strategies/solana-validator-switch/internal/switcherr"
)

// plan runs Phase 1: resolve roles, probe both hosts fresh, sanity-check
// filesystem preconditions, and build the immutable SwitchPlan. No remote
// mutation occurs in this phase.
func (o *Orchestrator) plan(ctx context.Context, pair *sharedstate.ValidatorPair, opts Options, logger zerolog.Logger) (*SwitchPlan, *sharedstate.Node, *sharedstate.Node, error) {
	voteAccount, err := o.solana.GetVoteAccountByVotePubkey(pair.VoteAccountPubkey)
	if err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), fmt.Errorf("resolve vote account: %w", err))
	}
	voteAccountIdentity := voteAccount.NodePubkey.String()

	for _, n := range pair.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
		}
		runner := nodeRunner{pool: o.pool, cfg: hostConfigFor(n)}
		result, err := probe.Detect(ctx, runner, n.Host, n.Bin, n.LedgerDir, probe.AllKinds())
		if err != nil {
			return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), fmt.Errorf("probe host %s: %w", n.Host, err))
		}
		n.Kind = result.Kind
		n.LastObservedIdentity = result.Identity
		n.LastObservedVersion = result.Version
	}

	active, standby, err := state.Resolve(pair, voteAccountIdentity)
	if err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
	}

	if probe.RequiresDistinctTowerFormat(active.Kind) != probe.RequiresDistinctTowerFormat(standby.Kind) {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), fmt.Errorf(
			"host %s (%s) and host %s (%s) use incompatible tower file formats",
			active.Host, active.Kind, standby.Host, standby.Kind,
		))
	}

	if err := o.preflightCheck(ctx, active, standby, logger); err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
	}

	activeSpec := probe.Specs[active.Kind]
	standbySpec := probe.Specs[standby.Kind]

	sourceTowerPath, err := towerPath(active.LedgerDir, activeSpec, active.FundedIdentity.PubKey())
	if err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
	}
	// the destination tower path is computed for the incoming funded
	// identity, not the destination's prior (unfunded) identity.
	destTowerPath, err := towerPath(standby.LedgerDir, standbySpec, standby.FundedIdentity.PubKey())
	if err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
	}
	active.TowerFile = sourceTowerPath
	standby.TowerFile = destTowerPath

	sourceSetIdentityCmd, err := activeSpec.SetIdentityCommand(probe.CommandParams{
		Bin:          active.Bin,
		LedgerDir:    active.LedgerDir,
		IdentityFile: active.UnfundedIdentity.KeyFile,
		RequireTower: opts.RequireTower,
	})
	if err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
	}

	destSetIdentityCmd, err := standbySpec.SetIdentityCommand(probe.CommandParams{
		Bin:          standby.Bin,
		LedgerDir:    standby.LedgerDir,
		IdentityFile: standby.FundedIdentity.KeyFile,
		RequireTower: opts.RequireTower,
	})
	if err != nil {
		return nil, nil, nil, switcherr.NewPhase(string(PhasePlanning), err)
	}

	plan := &SwitchPlan{
		PairIndex:                  pair.Index,
		SourceHost:                 active.Host,
		DestHost:                   standby.Host,
		SourceTowerPath:            sourceTowerPath,
		DestTowerPath:              destTowerPath,
		DestFundedIdentityPath:     standby.FundedIdentity.KeyFile,
		SourceUnfundedIdentityPath: active.UnfundedIdentity.KeyFile,
		SourceKind:                 active.Kind,
		DestKind:                   standby.Kind,
		SourceSetIdentityCmd:       sourceSetIdentityCmd,
		DestSetIdentityCmd:         destSetIdentityCmd,
		PlannedAtVoteSlot:          voteAccount.LastVote,
	}

	logger.Info().Interface("plan", plan).Msg("switch plan computed")

	return plan, active, standby, nil
}

// preflightCheck sanity-checks filesystem preconditions on both hosts with
// stat-like commands before any remote mutation is allowed.
func (o *Orchestrator) preflightCheck(ctx context.Context, active, standby *sharedstate.Node, logger zerolog.Logger) error {
	activeSpec := probe.Specs[active.Kind]
	sourceTowerPath, err := towerPath(active.LedgerDir, activeSpec, active.FundedIdentity.PubKey())
	if err != nil {
		return err
	}

	checks := []struct {
		node *sharedstate.Node
		cmd  string
		desc string
	}{
		{active, fmt.Sprintf("test -s %s", shellQuote(sourceTowerPath)), "source tower file exists and is non-empty"},
		{standby, fmt.Sprintf("test -r %s", shellQuote(standby.FundedIdentity.KeyFile)), "destination funded identity file exists and is readable"},
		{standby, fmt.Sprintf("test -w %s", shellQuote(standby.LedgerDir)), "destination ledger directory is writable"},
	}

	for _, c := range checks {
		_, stderr, err := o.pool.RunCommand(ctx, hostConfigFor(c.node), c.cmd)
		if err != nil {
			return fmt.Errorf("precondition failed (%s) on host %s: %s: %w", c.desc, c.node.Host, stderr, err)
		}
	}

	logger.Debug().Msg("preflight filesystem checks passed")
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// armSource runs Phase 2: demote the currently-active host to its unfunded
// identity with --require-tower. No rollback is attempted on failure: the
// source may now be non-voting with its tower still on disk, which is the
// safe terminal state.
func (o *Orchestrator) armSource(ctx context.Context, active *sharedstate.Node, plan *SwitchPlan, opts Options, logger zerolog.Logger) error {
	if !opts.RequireTower {
		logger.Warn().Msg("--require-tower disabled: double-vote safety property is void for this switch")
	}

	if err := active.Hooks.RunPreWhenStandby(hookEnv(plan, active, "standby")); err != nil {
		return fmt.Errorf("pre-standby hook on source host %s failed: %w", active.Host, err)
	}

	_, stderr, err := o.pool.RunCommand(ctx, hostConfigFor(active), plan.SourceSetIdentityCmd)
	if err != nil {
		return fmt.Errorf("set-identity on source host %s failed: %s: %w", active.Host, stderr, err)
	}

	active.Hooks.RunPostWhenStandby(hookEnv(plan, active, "standby"))

	logger.Info().Str("host", active.Host).Msg("source armed to unfunded identity")
	return nil
}

// transferTower runs Phase 3: stream the tower file from the source to the
// destination without buffering it on the orchestrating host. Neither host
// holds the funded identity at this point.
func (o *Orchestrator) transferTower(ctx context.Context, active, standby *sharedstate.Node, plan *SwitchPlan, logger zerolog.Logger) error {
	result, err := o.pool.StreamTowerFile(ctx, hostConfigFor(active), hostConfigFor(standby), plan.SourceTowerPath, plan.DestTowerPath)
	if err != nil {
		return fmt.Errorf("tower transfer %s:%s -> %s:%s failed: %w", active.Host, plan.SourceTowerPath, standby.Host, plan.DestTowerPath, err)
	}

	logger.Info().
		Int64("bytes_transferred", result.BytesTransferred).
		Str("fingerprint", result.Fingerprint).
		Msg("tower file transferred")
	return nil
}

// activateDest runs Phase 4: promote the destination to the funded identity
// with --require-tower so it resumes voting from the just-transferred tower.
func (o *Orchestrator) activateDest(ctx context.Context, standby *sharedstate.Node, plan *SwitchPlan, opts Options, logger zerolog.Logger) error {
	if err := standby.Hooks.RunPreWhenActive(hookEnv(plan, standby, "active")); err != nil {
		return fmt.Errorf("pre-active hook on destination host %s failed: %w", standby.Host, err)
	}

	_, stderr, err := o.pool.RunCommand(ctx, hostConfigFor(standby), plan.DestSetIdentityCmd)
	if err != nil {
		return fmt.Errorf("set-identity on destination host %s failed: %s: %w", standby.Host, stderr, err)
	}

	standby.Hooks.RunPostWhenActive(hookEnv(plan, standby, "active"))

	logger.Info().Str("host", standby.Host).Msg("destination activated with funded identity")
	return nil
}

// verify runs Phase 5: poll the pair's vote account for a new credited vote
// with a slot strictly greater than the slot recorded at plan time.
func (o *Orchestrator) verify(ctx context.Context, pair *sharedstate.ValidatorPair, plan *SwitchPlan, opts Options, logger zerolog.Logger) (time.Duration, error) {
	deadline := time.Now().Add(opts.VerifyTimeout)
	start := time.Now()
	ticker := time.NewTicker(opts.VerifyPollInterval)
	defer ticker.Stop()

	for {
		voteAccount, err := o.solana.GetVoteAccountByVotePubkey(pair.VoteAccountPubkey)
		if err == nil && voteAccount.LastVote > plan.PlannedAtVoteSlot {
			elapsed := time.Since(start)
			logger.Info().Dur("elapsed", elapsed).Uint64("slot", voteAccount.LastVote).Msg("new vote observed, switch verified")
			return elapsed, nil
		}

		if time.Now().After(deadline) {
			return 0, fmt.Errorf("verify timeout: no new credited vote observed within %s", opts.VerifyTimeout)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
