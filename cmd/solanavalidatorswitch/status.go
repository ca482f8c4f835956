package solanavalidatorswitch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sol-strategies/solana-validator-switch/internal/constants"
	"github.com/sol-strategies/solana-validator-switch/internal/probe"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/sshpool"
	"github.com/sol-strategies/solana-validator-switch/internal/state"
	"github.com/sol-strategies/solana-validator-switch/internal/style"
)

var (
	statusValidatorIndex int
	statusCmd            = &cobra.Command{
		Use:          "status",
		Short:        "print resolved roles and probe data for all pairs, or one by index",
		SilenceUsage: true,
		RunE:         runStatus,
	}
)

func init() {
	statusCmd.Flags().IntVar(&statusValidatorIndex, "validator", -1, "only show the pair at this index (default: all pairs)")
	rootCmd.AddCommand(statusCmd)
}

// poolRunner adapts the SSH pool to probe.Runner for a fixed host config.
type poolRunner struct {
	pool *sshpool.Pool
	cfg  sshpool.HostConfig
}

func (r poolRunner) RunCommand(ctx context.Context, _ string, command string) (string, string, error) {
	return r.pool.RunCommand(ctx, r.cfg, command)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer a.pool.Close()

	var pairs []*sharedstate.ValidatorPair
	if statusValidatorIndex >= 0 {
		pair, err := a.state.Pair(statusValidatorIndex)
		if err != nil {
			return err
		}
		pairs = []*sharedstate.ValidatorPair{pair}
	} else {
		pairs = a.state.Pairs()
	}

	ctx := context.Background()
	headers := []string{"Pair", "Host", "Role", "Kind", "Identity", "Version", "Last Vote Slot", "Credit Rank"}
	rows := make([][]string, 0, len(pairs)*2)

	for _, pair := range pairs {
		client := a.solanaClientFor(pair)
		voteAccount, voteErr := client.GetVoteAccountByVotePubkey(pair.VoteAccountPubkey)
		var voteAccountIdentity, lastVoteSlot string
		creditRank := "-"
		if voteErr == nil {
			voteAccountIdentity = voteAccount.NodePubkey.String()
			lastVoteSlot = humanize.Comma(int64(voteAccount.LastVote))
			if _, rank, rankErr := client.GetCreditRankedVoteAccountFromPubkey(voteAccountIdentity); rankErr == nil {
				creditRank = humanize.Ordinal(rank)
			}
		}

		probeFailed := make(map[string]bool, 2)
		for _, n := range pair.Nodes() {
			runner := poolRunner{pool: a.pool, cfg: sshpool.HostConfig{Address: n.Host, User: n.SSHUser, KeyFile: n.SSHKeyFile}}
			result, err := probe.Detect(ctx, runner, n.Host, n.Bin, n.LedgerDir, probe.AllKinds())
			if err != nil {
				log.Error().Err(err).Str("host", n.Host).Msg("probe failed")
				probeFailed[n.Host] = true
				n.Role = constants.NodeRoleUnknown
				continue
			}
			n.Kind = result.Kind
			n.LastObservedIdentity = result.Identity
			n.LastObservedVersion = result.Version
		}

		// state.Resolve is the single source of truth for NodeRole
		// classification (Active/Standby/Unknown), so every row below
		// reuses whatever it assigned to n.Role rather than re-deriving a
		// looser "identity == vote account identity" check.
		switch {
		case voteErr != nil:
			log.Warn().Err(voteErr).Int("pair_index", pair.Index).Msg("failed to resolve vote account, role classification skipped")
			setUnresolvedRoles(pair, probeFailed)
		default:
			if _, _, resolveErr := state.Resolve(pair, voteAccountIdentity); resolveErr != nil {
				log.Warn().Err(resolveErr).Int("pair_index", pair.Index).Msg("pair is in an unresolvable state")
				setUnresolvedRoles(pair, probeFailed)
			}
		}

		for _, n := range pair.Nodes() {
			if probeFailed[n.Host] {
				rows = append(rows, []string{fmt.Sprintf("%d", pair.Index), n.Host, renderRole(constants.NodeRoleUnknown), "-", "-", "-", "-", "-"})
				continue
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", pair.Index),
				n.Host,
				renderRole(n.Role),
				string(n.Kind),
				n.LastObservedIdentity,
				n.LastObservedVersion,
				lastVoteSlot,
				creditRank,
			})
		}
	}

	fmt.Println(style.RenderTable(headers, rows, func(row, col int) lipgloss.Style {
		return style.TableCellStyle
	}))

	return nil
}

// setUnresolvedRoles marks every successfully-probed node of pair as
// NodeRoleUnknown, used when the pair's role couldn't be resolved at all
// (vote account lookup failed, or state.Resolve rejected the pair as
// DualActive/NoActive/IdentityMismatch).
func setUnresolvedRoles(pair *sharedstate.ValidatorPair, probeFailed map[string]bool) {
	for _, n := range pair.Nodes() {
		if !probeFailed[n.Host] {
			n.Role = constants.NodeRoleUnknown
		}
	}
}

func renderRole(role string) string {
	switch role {
	case constants.NodeRoleActive:
		return style.RenderActiveString(role, false)
	case constants.NodeRoleStandby:
		return style.RenderStandbyString(role, false)
	default:
		return style.RenderGreyString(constants.NodeRoleUnknown, false)
	}
}
