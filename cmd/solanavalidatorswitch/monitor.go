package solanavalidatorswitch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sol-strategies/solana-validator-switch/internal/constants"
	"github.com/sol-strategies/solana-validator-switch/internal/monitor"
	"github.com/sol-strategies/solana-validator-switch/internal/probe"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/sshpool"
	"github.com/sol-strategies/solana-validator-switch/internal/state"
)

var monitorCmd = &cobra.Command{
	Use:          "monitor",
	Short:        "run the health monitor loop for every configured pair until interrupted",
	SilenceUsage: true,
	RunE:         runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// runMonitor starts one monitor.Monitor per configured pair plus the shared
// alert dispatcher, and blocks until SIGINT/SIGTERM.
func runMonitor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer a.pool.Close()

	pairs := a.state.Pairs()
	if len(pairs) == 0 {
		return fmt.Errorf("no validator pairs configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitorCfg := a.cfg.Monitor.Resolve()

	for _, pair := range pairs {
		resolvePairRoles(ctx, a, pair)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.dispatcher.Run(ctx)
	}()

	for _, pair := range pairs {
		m := monitor.New(pair, a.solanaClientFor(pair), a.pool, a.dispatcher, monitorCfg)
		wg.Add(1)
		go func(pairIndex int) {
			defer wg.Done()
			log.Info().Int("pair_index", pairIndex).Msg("monitor started")
			m.Run(ctx)
			log.Info().Int("pair_index", pairIndex).Msg("monitor stopped")
		}(pair.Index)
	}

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, draining monitors and alert dispatcher")
	wg.Wait()

	return nil
}

// resolvePairRoles probes both hosts of pair once at startup and records the
// resolved roles in shared state, so monitor logs and alerts name roles
// rather than bare hosts. Resolution failures are non-fatal here: the
// monitor's whole job is to watch pairs that may be unhealthy.
func resolvePairRoles(ctx context.Context, a *app, pair *sharedstate.ValidatorPair) {
	voteAccount, err := a.solanaClientFor(pair).GetVoteAccountByVotePubkey(pair.VoteAccountPubkey)
	if err != nil {
		log.Warn().Err(err).Int("pair_index", pair.Index).Msg("failed to resolve vote account, roles left unknown")
		return
	}

	for _, n := range pair.Nodes() {
		runner := poolRunner{pool: a.pool, cfg: sshpool.HostConfig{Address: n.Host, User: n.SSHUser, KeyFile: n.SSHKeyFile}}
		result, err := probe.Detect(ctx, runner, n.Host, n.Bin, n.LedgerDir, probe.AllKinds())
		if err != nil {
			log.Warn().Err(err).Str("host", n.Host).Msg("probe failed, roles left unknown")
			return
		}
		n.Kind = result.Kind
		n.LastObservedIdentity = result.Identity
		n.LastObservedVersion = result.Version
	}

	active, standby, err := state.Resolve(pair, voteAccount.NodePubkey.String())
	if err != nil {
		log.Warn().Err(err).Int("pair_index", pair.Index).Msg("pair is in an unresolvable state")
		return
	}

	a.state.SetNodeRole(pair.Index, active.Host, constants.NodeRoleActive)
	a.state.SetNodeRole(pair.Index, standby.Host, constants.NodeRoleStandby)
	log.Info().
		Int("pair_index", pair.Index).
		Str("active", active.Host).
		Str("standby", standby.Host).
		Msg("pair roles resolved")
}
