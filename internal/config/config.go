// Package config loads the single YAML file describing every configured
// validator pair, alerting transport, and monitor/switch tuning, resolving
// it into the internal/sharedstate types the rest of the program consumes.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/sol-strategies/solana-validator-switch/internal/alert"
	"github.com/sol-strategies/solana-validator-switch/internal/hooks"
	"github.com/sol-strategies/solana-validator-switch/internal/identities"
	"github.com/sol-strategies/solana-validator-switch/internal/monitor"
	"github.com/sol-strategies/solana-validator-switch/internal/orchestrator"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/switcherr"
	"github.com/sol-strategies/solana-validator-switch/internal/utils"
	"github.com/sol-strategies/solana-validator-switch/pkg/constants"
)

const (
	// DefaultBin is the default validator binary name.
	DefaultBin = "agave-validator"

	// DefaultLocalRPCURL is the default local (per-host) RPC endpoint.
	DefaultLocalRPCURL = "http://127.0.0.1:8899"

	// DefaultNetworkRPCURL is the default network-wide RPC endpoint.
	DefaultNetworkRPCURL = "https://api.mainnet-beta.solana.com"

	// DefaultMonitorIntervalSeconds is the monitor's poll cadence.
	DefaultMonitorIntervalSeconds = 1

	// DefaultDelinquencyThresholdSeconds is how long without a credited vote
	// before a delinquency alert fires.
	DefaultDelinquencyThresholdSeconds = 300

	// DefaultFailureAlertThresholdCount is the consecutive-failure count that
	// triggers an SSH/RPC failure alert.
	DefaultFailureAlertThresholdCount = 100

	// DefaultFailureAlertThresholdAgeSeconds is the failure-window age that
	// alone also triggers an SSH/RPC failure alert.
	DefaultFailureAlertThresholdAgeSeconds = 1800

	// DefaultCreditSampleCount is the rolling window size for vote-credit
	// trend detection.
	DefaultCreditSampleCount = 5

	// DefaultCreditSampleIntervalSeconds is the spacing between credit samples.
	DefaultCreditSampleIntervalSeconds = 5

	// DefaultVerifyTimeoutSeconds bounds Phase 5's poll for a new credited vote.
	DefaultVerifyTimeoutSeconds = 30

	// DefaultVerifyPollIntervalSeconds is how often Phase 5 re-polls.
	DefaultVerifyPollIntervalSeconds = 1

	// DefaultMinTimeToLeaderSlotSeconds is how far away the next leader slot
	// must be before a switch is allowed to start. 0 disables the check.
	DefaultMinTimeToLeaderSlotSeconds = 5

	// DefaultRequireTower is whether set-identity commands carry
	// --require-tower by default. Disabling it voids the double-vote
	// safety guarantee; it is disabled by switch.require_tower: false in
	// the config file or by the --no-require-tower CLI flag.
	DefaultRequireTower = true
)

// DefaultConfigPath is the default path to the config file.
var DefaultConfigPath = filepath.Join("~", "."+constants.AppName, constants.AppName+".yaml")

// RPCConfig names the local and network-wide RPC endpoints shared by every
// configured pair's probing and health checks.
type RPCConfig struct {
	LocalURL   string `mapstructure:"local_url"`
	NetworkURL string `mapstructure:"network_url"`
}

// MonitorConfig is the operator-tunable subset of monitor.Config, expressed
// in plain seconds/counts for readable YAML.
type MonitorConfig struct {
	IntervalSeconds                 int `mapstructure:"interval_seconds"`
	DelinquencyThresholdSeconds     int `mapstructure:"delinquency_threshold_seconds"`
	FailureAlertThresholdCount      int `mapstructure:"failure_alert_threshold_count"`
	FailureAlertThresholdAgeSeconds int `mapstructure:"failure_alert_threshold_age_seconds"`
	CreditSampleCount               int `mapstructure:"credit_sample_count"`
	CreditSampleIntervalSeconds     int `mapstructure:"credit_sample_interval_seconds"`
}

// Resolve converts MonitorConfig into the internal/monitor.Config the
// monitor package consumes.
func (m MonitorConfig) Resolve() monitor.Config {
	return monitor.Config{
		Interval:                   time.Duration(m.IntervalSeconds) * time.Second,
		DelinquencyThreshold:       time.Duration(m.DelinquencyThresholdSeconds) * time.Second,
		FailureAlertThresholdCount: m.FailureAlertThresholdCount,
		FailureAlertThresholdAge:   time.Duration(m.FailureAlertThresholdAgeSeconds) * time.Second,
		CreditSampleCount:          m.CreditSampleCount,
		CreditSampleInterval:       time.Duration(m.CreditSampleIntervalSeconds) * time.Second,
	}
}

// SwitchConfig is the operator-tunable subset of orchestrator.Options.
type SwitchConfig struct {
	RequireTower               bool `mapstructure:"require_tower"`
	VerifyTimeoutSeconds       int  `mapstructure:"verify_timeout_seconds"`
	VerifyPollIntervalSeconds  int  `mapstructure:"verify_poll_interval_seconds"`
	MinTimeToLeaderSlotSeconds int  `mapstructure:"min_time_to_leader_slot_seconds"`
}

// MinTimeToLeaderSlot returns the configured leader-slot clearance as a
// duration. Zero disables the pre-switch leader-slot check.
func (s SwitchConfig) MinTimeToLeaderSlot() time.Duration {
	return time.Duration(s.MinTimeToLeaderSlotSeconds) * time.Second
}

// Resolve converts SwitchConfig into orchestrator.Options.
func (s SwitchConfig) Resolve() orchestrator.Options {
	return orchestrator.Options{
		RequireTower:       s.RequireTower,
		VerifyTimeout:      time.Duration(s.VerifyTimeoutSeconds) * time.Second,
		VerifyPollInterval: time.Duration(s.VerifyPollIntervalSeconds) * time.Second,
	}
}

// NodeConfig describes one physical validator host within a pair.
type NodeConfig struct {
	Host       string            `mapstructure:"host"`
	SSHUser    string            `mapstructure:"ssh_user"`
	SSHKeyFile string            `mapstructure:"ssh_key_file"`
	Bin        string            `mapstructure:"bin"`
	LedgerDir  string            `mapstructure:"ledger_dir"`
	Identities identities.Config `mapstructure:"identities"`
	Hooks      hooks.SwitchHooks `mapstructure:"hooks"`
}

// Resolve loads this node's identity key files and builds the
// sharedstate.Node the rest of the program operates on. Identity and SSH
// key paths are local to the orchestrating host and are tilde-resolved;
// the ledger dir is a path on the remote host and is passed through as-is.
func (n NodeConfig) Resolve() (*sharedstate.Node, error) {
	ids, err := identities.NewFromConfig(&n.Identities)
	if err != nil {
		return nil, fmt.Errorf("host %s: failed to load identities: %w", n.Host, err)
	}

	sshKeyFile := n.SSHKeyFile
	if sshKeyFile != "" {
		sshKeyFile, err = utils.ResolvePath(sshKeyFile)
		if err != nil {
			return nil, fmt.Errorf("host %s: failed to resolve ssh_key_file: %w", n.Host, err)
		}
		if !utils.FileExists(sshKeyFile) {
			return nil, switcherr.Newf(switcherr.KindConfigInvalid, "host %s: ssh_key_file %s does not exist", n.Host, sshKeyFile)
		}
	}

	return &sharedstate.Node{
		Host:             n.Host,
		SSHUser:          n.SSHUser,
		SSHKeyFile:       sshKeyFile,
		Bin:              n.Bin,
		LedgerDir:        n.LedgerDir,
		FundedIdentity:   ids.Active,
		UnfundedIdentity: ids.Standby,
		Hooks:            n.Hooks,
	}, nil
}

// ValidatorPairConfig is one user-declared pair of hosts backing a single
// on-chain vote account. RPCURL overrides the shared network RPC endpoint
// for this pair's on-chain queries.
type ValidatorPairConfig struct {
	Index             int        `mapstructure:"index"`
	VoteAccountPubkey string     `mapstructure:"vote_account_pubkey"`
	RPCURL            string     `mapstructure:"rpc_url"`
	NodeA             NodeConfig `mapstructure:"node_a"`
	NodeB             NodeConfig `mapstructure:"node_b"`
}

// Resolve builds the sharedstate.ValidatorPair for this configured pair.
func (p ValidatorPairConfig) Resolve() (*sharedstate.ValidatorPair, error) {
	nodeA, err := p.NodeA.Resolve()
	if err != nil {
		return nil, fmt.Errorf("pair %d node_a: %w", p.Index, err)
	}
	nodeB, err := p.NodeB.Resolve()
	if err != nil {
		return nil, fmt.Errorf("pair %d node_b: %w", p.Index, err)
	}

	return &sharedstate.ValidatorPair{
		Index:             p.Index,
		VoteAccountPubkey: p.VoteAccountPubkey,
		RPCAddress:        p.RPCURL,
		NodeA:             nodeA,
		NodeB:             nodeB,
	}, nil
}

// Config is the full, unmarshalled program configuration.
type Config struct {
	LogLevel       string                `mapstructure:"log_level"`
	RPC            RPCConfig             `mapstructure:"rpc"`
	Alert          alert.Config          `mapstructure:"alert"`
	Monitor        MonitorConfig         `mapstructure:"monitor"`
	Switch         SwitchConfig          `mapstructure:"switch"`
	ValidatorPairs []ValidatorPairConfig `mapstructure:"validator_pairs"`
}

// NewFromFile creates a new Config from a config file.
func NewFromFile(configPath string) (c *Config, err error) {
	c = &Config{}

	err = c.LoadFromConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	return
}

// LoadFromConfigFile loads the config from a config file, filling in
// defaults for every tunable before unmarshalling.
func (c *Config) LoadFromConfigFile(configPath string) (err error) {
	logger := log.With().Str("component", "config").Logger()
	v := viper.New()

	loadConfigPath := DefaultConfigPath
	if configPath != "" {
		loadConfigPath = configPath
	}

	loadConfigPath, err = utils.ResolvePath(loadConfigPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	v.SetConfigFile(loadConfigPath)

	v.SetDefault("log_level", "info")
	v.SetDefault("rpc.local_url", DefaultLocalRPCURL)
	v.SetDefault("rpc.network_url", DefaultNetworkRPCURL)
	v.SetDefault("alert.enabled", true)
	v.SetDefault("alert.delinquency_threshold_seconds", DefaultDelinquencyThresholdSeconds)
	v.SetDefault("monitor.interval_seconds", DefaultMonitorIntervalSeconds)
	v.SetDefault("monitor.delinquency_threshold_seconds", DefaultDelinquencyThresholdSeconds)
	v.SetDefault("monitor.failure_alert_threshold_count", DefaultFailureAlertThresholdCount)
	v.SetDefault("monitor.failure_alert_threshold_age_seconds", DefaultFailureAlertThresholdAgeSeconds)
	v.SetDefault("monitor.credit_sample_count", DefaultCreditSampleCount)
	v.SetDefault("monitor.credit_sample_interval_seconds", DefaultCreditSampleIntervalSeconds)
	v.SetDefault("switch.require_tower", DefaultRequireTower)
	v.SetDefault("switch.verify_timeout_seconds", DefaultVerifyTimeoutSeconds)
	v.SetDefault("switch.verify_poll_interval_seconds", DefaultVerifyPollIntervalSeconds)
	v.SetDefault("switch.min_time_to_leader_slot_seconds", DefaultMinTimeToLeaderSlotSeconds)

	logger.Debug().Str("config_file", loadConfigPath).Msg("loading")
	err = v.ReadInConfig()
	if err != nil {
		return
	}

	if err = v.Unmarshal(&c); err != nil {
		return
	}

	for i := range c.ValidatorPairs {
		if c.ValidatorPairs[i].RPCURL == "" {
			c.ValidatorPairs[i].RPCURL = c.RPC.NetworkURL
		}
		for _, n := range []*NodeConfig{&c.ValidatorPairs[i].NodeA, &c.ValidatorPairs[i].NodeB} {
			if n.Bin == "" {
				n.Bin = DefaultBin
			}
		}
	}

	return c.validate()
}

// validate rejects semantically wrong configuration before any component
// gets built from it.
func (c *Config) validate() error {
	if !utils.IsValidURLWithPort(c.RPC.LocalURL) {
		return switcherr.Newf(switcherr.KindConfigInvalid, "rpc.local_url %q must be a URL with an explicit port", c.RPC.LocalURL)
	}

	for _, p := range c.ValidatorPairs {
		if p.VoteAccountPubkey == "" {
			return switcherr.Newf(switcherr.KindConfigInvalid, "pair %d: vote_account_pubkey is required", p.Index)
		}
		for _, n := range []NodeConfig{p.NodeA, p.NodeB} {
			if !utils.IsValidHostPort(n.Host) {
				return switcherr.Newf(switcherr.KindConfigInvalid, "pair %d: host %q must be a host:port pair", p.Index, n.Host)
			}
		}
		if p.NodeA.Host == p.NodeB.Host {
			return switcherr.Newf(switcherr.KindConfigInvalid, "pair %d: node_a and node_b must be different hosts", p.Index)
		}
	}

	return nil
}

// Pairs resolves every configured validator pair into sharedstate types.
func (c *Config) Pairs() ([]*sharedstate.ValidatorPair, error) {
	pairs := make([]*sharedstate.ValidatorPair, 0, len(c.ValidatorPairs))
	for _, p := range c.ValidatorPairs {
		pair, err := p.Resolve()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
