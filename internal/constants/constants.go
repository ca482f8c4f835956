package constants

const (
	// NodeRoleStandby is the role of a standby node running the unfunded identity
	NodeRoleStandby = "standby"

	// NodeRoleActive is the role of the active node running the funded/voting identity
	NodeRoleActive = "active"

	// NodeRoleUnknown is the role of a node whose identity could not be matched
	NodeRoleUnknown = "unknown"

	// ValidatorKindAgave is the agave-validator client kind
	ValidatorKindAgave = "agave"

	// ValidatorKindFiredancer is the firedancer client kind
	ValidatorKindFiredancer = "firedancer"

	// ValidatorKindJito is the jito-solana client kind
	ValidatorKindJito = "jito"

	// ValidatorKindSolana is the legacy solana-validator client kind
	ValidatorKindSolana = "solana"
)
