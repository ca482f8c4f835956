package hooks

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	pkgconstants "github.com/sol-strategies/solana-validator-switch/pkg/constants"

	"github.com/sol-strategies/solana-validator-switch/internal/utils"
)

// Hook is a hook that is called before or after a switch
type Hook struct {
	Name        string   `mapstructure:"name"`
	Command     string   `mapstructure:"command"`
	Args        []string `mapstructure:"args"`
	MustSucceed bool     `mapstructure:"must_succeed"`
}

// Hooks is a collection of hooks
type Hooks []Hook

// PreHooks is a collection of pre hooks
type PreHooks struct {
	WhenStandby Hooks `mapstructure:"when_standby"`
	WhenActive  Hooks `mapstructure:"when_active"`
}

// PostHooks is a collection of post hooks
type PostHooks struct {
	WhenStandby Hooks `mapstructure:"when_standby"`
	WhenActive  Hooks `mapstructure:"when_active"`
}

// SwitchHooks is a collection of hooks for pre and post identity switch
type SwitchHooks struct {
	Pre  PreHooks  `mapstructure:"pre"`
	Post PostHooks `mapstructure:"post"`
}

// HasPreHooksWhenActive returns true if there are any pre hooks for becoming active
func (h SwitchHooks) HasPreHooksWhenActive() bool {
	return len(h.Pre.WhenActive) > 0
}

// HasPreHooksWhenStandby returns true if there are any pre hooks for becoming standby
func (h SwitchHooks) HasPreHooksWhenStandby() bool {
	return len(h.Pre.WhenStandby) > 0
}

// Run runs the hook
func (h Hook) Run(envMap map[string]string) error {
	hookLogger := log.With().Str("hook", h.Name).Logger()

	if err := utils.EnsureBins(h.Command); err != nil {
		return fmt.Errorf("hook %s: %w", h.Name, err)
	}

	// run the command passing in custom env variables about the state using os.exec
	cmd := exec.Command(h.Command, h.Args...)
	for k, v := range utils.SortStringMap(envMap) {
		// Trim newlines and whitespace from the value
		cleanValue := strings.TrimSpace(v)
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s_%s=%s", pkgconstants.AppEnvVarPrefix, k, cleanValue))
	}

	hookLogger.Debug().
		Str("command", h.Command).
		Str("args", fmt.Sprintf("[%s]", strings.Join(h.Args, ", "))).
		Str("env", fmt.Sprintf("[%s]", strings.Join(cmd.Env, ", "))).
		Msg("running hook")

	// Capture stdout and stderr separately
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("hook %s failed to create stdout pipe: %v", h.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("hook %s failed to create stderr pipe: %v", h.Name, err)
	}

	// Start the command
	hookLogger.Info().
		Str("command", h.Command).
		Str("args", fmt.Sprintf("[%s]", strings.Join(h.Args, ", "))).
		Msg("🪝  Running hook")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("hook %s failed to start: %v", h.Name, err)
	}

	// Use WaitGroup to ensure goroutines complete before we return
	var wg sync.WaitGroup
	wg.Add(2)

	// Stream stdout and stderr in real-time using hookLogger
	go func() {
		defer wg.Done()
		streamOutput(hookLogger, stdout, "stdout")
	}()
	go func() {
		defer wg.Done()
		streamOutput(hookLogger, stderr, "stderr")
	}()

	// Wait for the command to complete
	err = cmd.Wait()

	// Wait for streaming goroutines to finish
	wg.Wait()

	if err != nil {
		return fmt.Errorf("🪝 🔴 hook %s failed: %v", h.Name, err)
	}

	hookLogger.Info().Msg("🪝  Hook completed successfully")
	return nil
}

// streamOutput streams output from a pipe to the logger in real-time
func streamOutput(logger zerolog.Logger, pipe io.ReadCloser, streamType string) {
	defer pipe.Close()

	scanner := bufio.NewScanner(pipe)
	baseLogger := logger.With().Str("stream", streamType).Logger()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if streamType == "stdout" {
				baseLogger.Info().Msgf("🪝  %s", line)
			} else {
				baseLogger.Error().Msgf("🪝  %s", line)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// Only log if it's not a "file already closed" error, which is expected
		if !strings.Contains(err.Error(), "file already closed") {
			logger.Error().Err(err).Msg("error reading hook output")
		}
	}
}

// RunPreWhenStandby runs the pre hooks for becoming standby
func (h SwitchHooks) RunPreWhenStandby(envMap map[string]string) error {
	for _, hook := range h.Pre.WhenStandby {
		err := hook.Run(envMap)
		if err != nil && hook.MustSucceed {
			return err
		}
		if err != nil {
			log.Error().Err(err).Msgf("pre hook %s failed - must_succeed is false, continuing...", hook.Name)
		}
	}
	return nil
}

// RunPreWhenActive runs the pre hooks for becoming active
func (h SwitchHooks) RunPreWhenActive(envMap map[string]string) error {
	for _, hook := range h.Pre.WhenActive {
		err := hook.Run(envMap)
		if err != nil && hook.MustSucceed {
			return err
		}
		if err != nil {
			log.Error().Err(err).Msgf("pre hook %s failed - must_succeed is false, continuing...", hook.Name)
			continue
		}
	}
	return nil
}

// RunPostWhenStandby runs the post hooks for becoming standby
func (h SwitchHooks) RunPostWhenStandby(envMap map[string]string) {
	for _, hook := range h.Post.WhenStandby {
		err := hook.Run(envMap)
		if err != nil {
			log.Error().Err(err).Msgf("post hook %s failed", hook.Name)
		}
	}
}

// RunPostWhenActive runs the post hooks for becoming active
func (h SwitchHooks) RunPostWhenActive(envMap map[string]string) {
	for _, hook := range h.Post.WhenActive {
		err := hook.Run(envMap)
		if err != nil {
			log.Error().Err(err).Msgf("post hook %s failed", hook.Name)
		}
	}
}
