package solanavalidatorswitch

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sol-strategies/solana-validator-switch/internal/orchestrator"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/solana"
	"github.com/sol-strategies/solana-validator-switch/internal/style"
)

var (
	switchValidatorIndex int
	switchDryRun         bool
	switchForce          bool
	switchNoRequireTower bool
	switchCmd            = &cobra.Command{
		Use:          "switch",
		Short:        "run the orchestrator for a validator pair (or all if one pair configured)",
		SilenceUsage: true,
		RunE:         runSwitch,
	}
)

func init() {
	switchCmd.Flags().IntVar(&switchValidatorIndex, "validator", -1, "pair index to switch (default: the only configured pair)")
	switchCmd.Flags().BoolVar(&switchDryRun, "dry-run", false, "stop after planning and print the computed plan without mutating any host")
	switchCmd.Flags().BoolVarP(&switchForce, "force", "f", false, "skip the interactive confirmation prompt")
	switchCmd.Flags().BoolVar(&switchNoRequireTower, "no-require-tower", false, "disable --require-tower on set-identity commands, voiding the double-vote safety guarantee")
	rootCmd.AddCommand(switchCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer a.pool.Close()

	pairs, err := selectPairs(a, switchValidatorIndex)
	if err != nil {
		return err
	}

	opts := a.cfg.Switch.Resolve()
	opts.DryRun = switchDryRun
	if switchNoRequireTower {
		opts.RequireTower = false
	}

	dispatchCtx, cancel := context.WithCancel(context.Background())
	go a.dispatcher.Run(dispatchCtx)
	defer func() {
		// give the dispatcher a moment to flush the final switch_success/
		// switch_failure alert before the process exits.
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	for _, pair := range pairs {
		orch := orchestrator.New(a.pool, a.solanaClientFor(pair), a.dispatcher)

		// plan first without mutating anything, so the operator confirms the
		// concrete commands and paths the switch will use.
		planOpts := opts
		planOpts.DryRun = true
		plan, err := orch.Switch(context.Background(), pair, planOpts)
		if err != nil {
			return fmt.Errorf("switch planning failed for pair %d: %w", pair.Index, err)
		}

		if opts.DryRun {
			log.Info().Int("pair_index", pair.Index).Interface("plan", plan).Msg("dry run complete")
			continue
		}

		if !switchForce {
			if err := confirmSwitchPlan(plan, opts); err != nil {
				return err
			}
		}

		if err := waitMinTimeToLeaderSlot(a.solanaClientFor(pair), pair, a.cfg.Switch.MinTimeToLeaderSlot()); err != nil {
			return fmt.Errorf("switch aborted for pair %d: %w", pair.Index, err)
		}

		sp := spinner.New().
			TitleStyle(style.SpinnerTitleStyle).
			Title(fmt.Sprintf("Switching identity %s -> %s...", plan.SourceHost, plan.DestHost))
		sp.ActionWithErr(func(ctx context.Context) error {
			plan, err = orch.Switch(context.Background(), pair, opts)
			return err
		})
		if runErr := sp.Run(); runErr != nil {
			return fmt.Errorf("switch failed for pair %d: %w", pair.Index, runErr)
		}

		log.Info().Int("pair_index", pair.Index).Str("new_active_host", plan.DestHost).Msg("switch complete")
	}

	return nil
}

// confirmSwitchPlan prints the computed plan and asks the operator to
// confirm before any remote mutation happens.
func confirmSwitchPlan(plan *orchestrator.SwitchPlan, opts orchestrator.Options) error {
	tpl, err := template.New("confirmSwitchTpl").Funcs(style.TemplateFuncMap()).Parse(`
{{- if not .RequireTower -}}
{{ Warning "WARNING: --require-tower is disabled - the double-vote safety guarantee is void for this switch" }}
{{ end -}}
{{ Warning "WARNING: This is a real switch - identities will be changed on both hosts" }}

Switching will:
1. Set {{ Active .Plan.SourceHost false }} to {{ Standby "STANDBY" false }} with command:

    {{ .Plan.SourceSetIdentityCmd }}

2. Stream the tower file {{ .Plan.SourceTowerPath }} to {{ Standby .Plan.DestHost false }} at:

    {{ .Plan.DestTowerPath }}

3. Set {{ Standby .Plan.DestHost false }} to {{ Active "ACTIVE" false }} with command:

    {{ .Plan.DestSetIdentityCmd }}

4. Verify a new credited vote lands within {{ .VerifyTimeout }}
`)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, map[string]any{
		"Plan":          plan,
		"RequireTower":  opts.RequireTower,
		"VerifyTimeout": opts.VerifyTimeout,
	}); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	fmt.Println(style.RenderMessageString(buf.String()))

	var confirmSwitch bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Proceed with identity switch?").
				Value(&confirmSwitch),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("switch cancelled: %w", err)
	}
	if !confirmSwitch {
		return fmt.Errorf("switch cancelled by operator")
	}

	return nil
}

// waitMinTimeToLeaderSlot blocks until the pair's next leader slot is at
// least minTime away, so the switch's non-voting window never overlaps a
// leader slot. A pair not on the leader schedule passes immediately.
func waitMinTimeToLeaderSlot(client solana.ClientInterface, pair *sharedstate.ValidatorPair, minTime time.Duration) error {
	if minTime <= 0 {
		return nil
	}

	pubkey := pair.NodeA.FundedIdentity.Key.PublicKey()
	sp := spinner.New().TitleStyle(style.SpinnerTitleStyle).Title("Checking next leader slot...")
	sp.ActionWithErr(func(ctx context.Context) error {
		for {
			isOnLeaderSchedule, timeToNextLeaderSlot, err := client.GetTimeToNextLeaderSlotForPubkey(pubkey)
			if err != nil {
				return fmt.Errorf("failed to get time to next leader slot: %w", err)
			}

			if !isOnLeaderSchedule {
				sp.Title(style.RenderActiveString("validator is not on the leader schedule, proceeding", false))
				return nil
			}

			if timeToNextLeaderSlot >= minTime {
				sp.Title(style.RenderActiveStringf("next leader slot is %s away, proceeding", timeToNextLeaderSlot))
				return nil
			}

			sp.Title(style.RenderWarningString(fmt.Sprintf(
				"next leader slot is only %s away, waiting for it to pass...",
				timeToNextLeaderSlot,
			)))
			time.Sleep(2 * time.Second)
		}
	})
	return sp.Run()
}

// selectPairs resolves which pairs a command should operate on: the pair at
// index if given (index >= 0, since pair indices are user-declared and may
// legitimately start at 0), else the sole configured pair, erroring if more
// than one pair is configured and none was named.
func selectPairs(a *app, index int) ([]*sharedstate.ValidatorPair, error) {
	if index >= 0 {
		pair, err := a.state.Pair(index)
		if err != nil {
			return nil, err
		}
		return []*sharedstate.ValidatorPair{pair}, nil
	}

	pairs := a.state.Pairs()
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no validator pairs configured")
	}
	if len(pairs) > 1 {
		return nil, fmt.Errorf("%d validator pairs configured, specify --validator N", len(pairs))
	}
	return pairs, nil
}
