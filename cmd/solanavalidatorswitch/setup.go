package solanavalidatorswitch

import (
	"github.com/rs/zerolog/log"

	"github.com/sol-strategies/solana-validator-switch/internal/alert"
	"github.com/sol-strategies/solana-validator-switch/internal/config"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/solana"
	"github.com/sol-strategies/solana-validator-switch/internal/sshpool"
)

// app bundles the components every subcommand needs, built once from the
// loaded config.
type app struct {
	cfg        *config.Config
	state      *sharedstate.SharedState
	pool       *sshpool.Pool
	dispatcher *alert.Dispatcher

	rpcClients map[string]solana.ClientInterface
}

func newApp() (*app, error) {
	cfg, err := config.NewFromFile(configPath)
	if err != nil {
		return nil, err
	}

	pairs, err := cfg.Pairs()
	if err != nil {
		return nil, err
	}

	state := sharedstate.New()
	state.SetPairs(pairs)

	pool := sshpool.NewPool()

	transports := []alert.Transport{alert.NewLogTransport(log.Logger)}
	if cfg.Alert.Enabled && cfg.Alert.WebhookURL != "" {
		transports = append(transports, alert.NewWebhookTransport(cfg.Alert.WebhookURL))
	}
	dispatcher := alert.NewDispatcher(alert.DefaultDebounceInterval, transports...)

	return &app{
		cfg:        cfg,
		state:      state,
		pool:       pool,
		dispatcher: dispatcher,
		rpcClients: make(map[string]solana.ClientInterface),
	}, nil
}

// solanaClientFor returns the RPC client for pair's configured endpoint,
// reusing one client per distinct endpoint URL.
func (a *app) solanaClientFor(pair *sharedstate.ValidatorPair) solana.ClientInterface {
	if c, ok := a.rpcClients[pair.RPCAddress]; ok {
		return c
	}
	c := solana.NewRPCClient(solana.NewClientParams{
		LocalRPCURL:   a.cfg.RPC.LocalURL,
		NetworkRPCURL: pair.RPCAddress,
	})
	a.rpcClients[pair.RPCAddress] = c
	return c
}
