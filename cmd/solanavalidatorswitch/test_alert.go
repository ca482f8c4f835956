package solanavalidatorswitch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sol-strategies/solana-validator-switch/internal/alert"
)

var testAlertCmd = &cobra.Command{
	Use:          "test-alert",
	Short:        "send a test alert through the dispatcher",
	SilenceUsage: true,
	RunE:         runTestAlert,
}

func init() {
	rootCmd.AddCommand(testAlertCmd)
}

func runTestAlert(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer a.pool.Close()

	dispatchCtx, cancel := context.WithCancel(context.Background())
	go a.dispatcher.Run(dispatchCtx)
	defer cancel()

	a.dispatcher.Dispatch(alert.Alert{
		Kind:      alert.KindTest,
		Severity:  alert.SeverityInfo,
		Message:   "test alert dispatched via test-alert command",
		Timestamp: time.Now(),
	})

	// give the dispatcher a moment to deliver before the process exits.
	time.Sleep(200 * time.Millisecond)

	log.Info().Msg("test alert dispatched")
	return nil
}
