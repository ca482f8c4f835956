// Package state resolves which host in a validator pair currently holds the
// funded (voting) identity by comparing each host's live on-node identity
// (discovered by internal/probe) against the identity the pair's vote
// account is currently voting with. It is a pure classifier: it never
// mutates anything remotely.
package state

import (
	"github.com/sol-strategies/solana-validator-switch/internal/constants"
	"github.com/sol-strategies/solana-validator-switch/internal/sharedstate"
	"github.com/sol-strategies/solana-validator-switch/internal/switcherr"
)

// Resolve classifies both nodes of pair given the vote account's current
// on-chain voter identity, returning the active and standby nodes. It fails
// with switcherr.KindStateNoActive, KindStateDualActive, or
// KindStateIdentityMismatch.
func Resolve(pair *sharedstate.ValidatorPair, voteAccountIdentity string) (active *sharedstate.Node, standby *sharedstate.Node, err error) {
	a, b := pair.NodeA, pair.NodeB

	aActive := a.LastObservedIdentity == voteAccountIdentity
	bActive := b.LastObservedIdentity == voteAccountIdentity

	switch {
	case aActive && bActive:
		return nil, nil, switcherr.Newf(switcherr.KindStateDualActive, "both hosts %s and %s report the funded identity", a.Host, b.Host)
	case !aActive && !bActive:
		return nil, nil, switcherr.Newf(switcherr.KindStateNoActive, "neither host %s nor %s reports the funded identity %s", a.Host, b.Host, voteAccountIdentity)
	case aActive:
		active, standby = a, b
	default:
		active, standby = b, a
	}

	if standby.UnfundedIdentity == nil || standby.LastObservedIdentity != standby.UnfundedIdentity.PubKey() {
		return nil, nil, switcherr.Newf(
			switcherr.KindStateIdentityMismatch,
			"standby host %s reports identity %s, expected configured unfunded identity",
			standby.Host, standby.LastObservedIdentity,
		)
	}

	active.Role = constants.NodeRoleActive
	standby.Role = constants.NodeRoleStandby

	return active, standby, nil
}
