// Package sharedstate holds the process-wide, in-memory snapshot of
// configured validator pairs and their discovered nodes. It is constructed
// once at startup and passed by reference to every component that needs it;
// there is no package-level singleton.
package sharedstate

import (
	"fmt"
	"sync"

	"github.com/sol-strategies/solana-validator-switch/internal/hooks"
	"github.com/sol-strategies/solana-validator-switch/internal/identities"
	"github.com/sol-strategies/solana-validator-switch/internal/probe"
)

// Node is a single physical validator host.
type Node struct {
	Host                 string
	SSHUser              string
	SSHKeyFile           string
	Bin                  string
	LedgerDir            string
	FundedIdentity       *identities.Identity
	UnfundedIdentity     *identities.Identity
	Kind                 probe.Kind
	TowerFile            string
	LastObservedIdentity string
	LastObservedVersion  string
	Role                 string
	Hooks                hooks.SwitchHooks
}

// ValidatorPair is a user-declared group of two hosts that together host one
// on-chain vote account.
type ValidatorPair struct {
	Index             int
	VoteAccountPubkey string
	RPCAddress        string
	NodeA             *Node
	NodeB             *Node
}

// Nodes returns both nodes of the pair as a slice for iteration.
func (p *ValidatorPair) Nodes() []*Node {
	return []*Node{p.NodeA, p.NodeB}
}

// Other returns the pair's node other than the one given, by host address.
func (p *ValidatorPair) Other(host string) *Node {
	if p.NodeA.Host == host {
		return p.NodeB
	}
	return p.NodeA
}

// SharedState is the process-wide snapshot of all configured pairs. Its
// reader-writer lock guards the pair list and SetNodeRole: many readers may
// call Pair/Pairs concurrently while SetPairs or SetNodeRole write
// exclusively. Fields of the returned *Node values (probe results, Role,
// TowerFile) are written directly by their callers and are not guarded by
// this lock.
type SharedState struct {
	mu    sync.RWMutex
	pairs []*ValidatorPair
}

// New creates an empty SharedState.
func New() *SharedState {
	return &SharedState{}
}

// SetPairs replaces the full set of configured pairs.
func (s *SharedState) SetPairs(pairs []*ValidatorPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = pairs
}

// Pair returns the pair at the given index.
func (s *SharedState) Pair(index int) (*ValidatorPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pairs {
		if p.Index == index {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no validator pair configured at index %d", index)
}

// Pairs returns a shallow copy of the configured pairs slice.
func (s *SharedState) Pairs() []*ValidatorPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ValidatorPair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// SetNodeRole records the resolved role for a host within a pair.
func (s *SharedState) SetNodeRole(pairIndex int, host, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pairs {
		if p.Index != pairIndex {
			continue
		}
		for _, n := range p.Nodes() {
			if n.Host == host {
				n.Role = role
			}
		}
	}
}
