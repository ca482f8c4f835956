package solanavalidatorswitch

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sol-strategies/solana-validator-switch/internal/config"
	internalconstants "github.com/sol-strategies/solana-validator-switch/internal/constants"
	"github.com/sol-strategies/solana-validator-switch/internal/style"
	"github.com/sol-strategies/solana-validator-switch/pkg/constants"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	rootCmd    = &cobra.Command{
		Aliases: []string{},
		Use:     style.RenderPurpleString(constants.AppName),
		Version: constants.AppVersion,
		Short: fmt.Sprintf(
			"%s (%s) - ⚡ %s",
			style.RenderPurpleString(constants.AppName),
			style.RenderPurpleString(constants.AppVersion),
			style.RenderActiveString("solana validator identity switch orchestrator", false),
		),
		Long: fmt.Sprintf(`
%s - %s

Version:
    %s
`, style.RenderPurpleString(constants.AppName),
			style.RenderActiveString("⚡ solana validator identity switch orchestrator", false),
			style.RenderPurpleString(constants.AppVersion),
		),
		PersistentPreRunE: persistentPreRun,
	}
)

// Execute runs the root command, registering the global --config/--log-level
// flags. A bare invocation with no subcommand prints usage.
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("failed to execute command")
	}
}

func init() {
	cobra.OnInitialize(initLog)
}

func initLog() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:          os.Stderr,
		TimeLocation: time.UTC,
		NoColor:      false,
		TimeFormat:   time.RFC3339Nano,
		FormatLevel: func(i any) string {
			levelStr := i.(string)
			return style.LogLevels[levelStr].Bold(true).Width(5).Render(strings.ToUpper(levelStr))
		},
		FormatFieldName: func(i any) string {
			return style.RenderGreyString(i.(string)+"=", false)
		},
		FormatFieldValue: func(i any) string {
			value := fmt.Sprintf("%v", i)
			isStandby := strings.HasPrefix(value, internalconstants.NodeRoleStandby)
			isActive := strings.HasPrefix(value, internalconstants.NodeRoleActive)
			if isStandby {
				return style.RenderStandbyString(strings.TrimPrefix(value, internalconstants.NodeRoleStandby), false)
			}
			if isActive {
				return style.RenderActiveString(strings.TrimPrefix(value, internalconstants.NodeRoleActive), false)
			}
			return value
		},
		FormatMessageFromEvent: func(evt map[string]any) zerolog.Formatter {
			return func(i any) string {
				levelStr := evt[zerolog.LevelFieldName].(string)
				return style.LogLevels[levelStr].Render(i.(string))
			}
		},
	}).With().Timestamp().Logger()
}

func persistentPreRun(cmd *cobra.Command, args []string) (err error) {
	parsed, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(parsed)

	return nil
}
