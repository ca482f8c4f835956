package constants

import (
	// embed
	_ "embed"
)

var (
	// AppVersion ...
	//go:embed app.version
	AppVersion string
)

const (
	// AppName ...
	AppName = "solana-validator-switch"
	// AppEnvVarLogLevel ...
	AppEnvVarLogLevel = "SOLANA_VALIDATOR_SWITCH_LOG_LEVEL"
	// AppEnvVarPrefix is the prefix used for env vars passed to hook commands
	AppEnvVarPrefix = "SOLANA_VALIDATOR_SWITCH"
)
