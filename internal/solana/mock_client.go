package solana

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MockClient is a mock implementation of ClientInterface for testing
type MockClient struct {
	healthStatus bool

	getLocalNodeHealth                   func() (string, error)
	isLocalNodeHealthy                   func() bool
	getCreditRankedVoteAccountFromPubkey func(pubkey string) (*rpc.VoteAccountsResult, int, error)
	getVoteAccountByVotePubkey           func(votePubkey string) (*rpc.VoteAccountsResult, error)
	getCurrentSlot                       func() (uint64, error)
	getCurrentSlotEndTime                func() (time.Time, error)
	getTimeToNextLeaderSlotForPubkey     func(pubkey solana.PublicKey) (bool, time.Duration, error)
}

// NewMockClient creates a new mock client with default behaviors
func NewMockClient() *MockClient {
	return &MockClient{
		healthStatus: true,
	}
}

// WithHealthStatus sets the health status
func (m *MockClient) WithHealthStatus(healthy bool) *MockClient {
	m.healthStatus = healthy
	return m
}

// WithGetLocalNodeHealth sets a custom GetLocalNodeHealth function
func (m *MockClient) WithGetLocalNodeHealth(fn func() (string, error)) *MockClient {
	m.getLocalNodeHealth = fn
	return m
}

// WithIsLocalNodeHealthy sets a custom IsLocalNodeHealthy function
func (m *MockClient) WithIsLocalNodeHealthy(fn func() bool) *MockClient {
	m.isLocalNodeHealthy = fn
	return m
}

// WithGetCreditRankedVoteAccountFromPubkey sets a custom GetCreditRankedVoteAccountFromPubkey function
func (m *MockClient) WithGetCreditRankedVoteAccountFromPubkey(fn func(pubkey string) (*rpc.VoteAccountsResult, int, error)) *MockClient {
	m.getCreditRankedVoteAccountFromPubkey = fn
	return m
}

// WithGetVoteAccountByVotePubkey sets a custom GetVoteAccountByVotePubkey function
func (m *MockClient) WithGetVoteAccountByVotePubkey(fn func(votePubkey string) (*rpc.VoteAccountsResult, error)) *MockClient {
	m.getVoteAccountByVotePubkey = fn
	return m
}

// WithGetCurrentSlot sets a custom GetCurrentSlot function
func (m *MockClient) WithGetCurrentSlot(fn func() (uint64, error)) *MockClient {
	m.getCurrentSlot = fn
	return m
}

// WithGetCurrentSlotEndTime sets a custom GetCurrentSlotEndTime function
func (m *MockClient) WithGetCurrentSlotEndTime(fn func() (time.Time, error)) *MockClient {
	m.getCurrentSlotEndTime = fn
	return m
}

// WithGetTimeToNextLeaderSlotForPubkey sets a custom GetTimeToNextLeaderSlotForPubkey function
func (m *MockClient) WithGetTimeToNextLeaderSlotForPubkey(fn func(pubkey solana.PublicKey) (bool, time.Duration, error)) *MockClient {
	m.getTimeToNextLeaderSlotForPubkey = fn
	return m
}

// GetCreditRankedVoteAccountFromPubkey implements ClientInterface.GetCreditRankedVoteAccountFromPubkey
func (m *MockClient) GetCreditRankedVoteAccountFromPubkey(pubkey string) (*rpc.VoteAccountsResult, int, error) {
	if m.getCreditRankedVoteAccountFromPubkey != nil {
		return m.getCreditRankedVoteAccountFromPubkey(pubkey)
	}
	return nil, 0, nil
}

// GetVoteAccountByVotePubkey implements ClientInterface.GetVoteAccountByVotePubkey
func (m *MockClient) GetVoteAccountByVotePubkey(votePubkey string) (*rpc.VoteAccountsResult, error) {
	if m.getVoteAccountByVotePubkey != nil {
		return m.getVoteAccountByVotePubkey(votePubkey)
	}
	return nil, errors.New("vote account not found")
}

// GetCurrentSlot implements ClientInterface.GetCurrentSlot
func (m *MockClient) GetCurrentSlot() (uint64, error) {
	if m.getCurrentSlot != nil {
		return m.getCurrentSlot()
	}
	return 0, nil
}

// GetCurrentSlotEndTime implements ClientInterface.GetCurrentSlotEndTime
func (m *MockClient) GetCurrentSlotEndTime() (time.Time, error) {
	if m.getCurrentSlotEndTime != nil {
		return m.getCurrentSlotEndTime()
	}
	return time.Time{}, nil
}

// GetTimeToNextLeaderSlotForPubkey implements ClientInterface.GetTimeToNextLeaderSlotForPubkey
func (m *MockClient) GetTimeToNextLeaderSlotForPubkey(pubkey solana.PublicKey) (bool, time.Duration, error) {
	if m.getTimeToNextLeaderSlotForPubkey != nil {
		return m.getTimeToNextLeaderSlotForPubkey(pubkey)
	}
	return false, 0, nil
}

// GetLocalNodeHealth implements ClientInterface.GetLocalNodeHealth
func (m *MockClient) GetLocalNodeHealth() (string, error) {
	if m.getLocalNodeHealth != nil {
		return m.getLocalNodeHealth()
	}
	if m.healthStatus {
		return "ok", nil
	}
	return "", errors.New("unhealthy")
}

// IsLocalNodeHealthy implements ClientInterface.IsLocalNodeHealthy
func (m *MockClient) IsLocalNodeHealthy() bool {
	if m.isLocalNodeHealthy != nil {
		return m.isLocalNodeHealthy()
	}
	return m.healthStatus
}

// MockClientBuilder provides a fluent interface for building mock clients
type MockClientBuilder struct {
	client *MockClient
}

// NewMockClientBuilder creates a new mock client builder
func NewMockClientBuilder() *MockClientBuilder {
	return &MockClientBuilder{
		client: NewMockClient(),
	}
}

// WithUnhealthyNode configures the mock to simulate an unhealthy node
func (b *MockClientBuilder) WithUnhealthyNode() *MockClientBuilder {
	b.client.healthStatus = false
	return b
}

// WithHealthyNode configures the mock to simulate a healthy node
func (b *MockClientBuilder) WithHealthyNode() *MockClientBuilder {
	b.client.healthStatus = true
	return b
}

// WithVoteAccount configures the mock to return specific vote account data
func (b *MockClientBuilder) WithVoteAccount(pubkey string, rank int, credits int64) *MockClientBuilder {
	b.client.getCreditRankedVoteAccountFromPubkey = func(p string) (*rpc.VoteAccountsResult, int, error) {
		if p == pubkey {
			return &rpc.VoteAccountsResult{
				NodePubkey: solana.MustPublicKeyFromBase58(pubkey),
				EpochCredits: [][]int64{
					{1, credits, credits / 2},
				},
			}, rank, nil
		}
		return nil, 0, errors.New("vote account not found")
	}
	return b
}

// WithVoteAccountIdentity configures the mock so that GetVoteAccountByVotePubkey(votePubkey)
// returns a vote account currently voted with nodeIdentity and the given last-vote slot.
func (b *MockClientBuilder) WithVoteAccountIdentity(votePubkey, nodeIdentity string, lastVote uint64) *MockClientBuilder {
	b.client.getVoteAccountByVotePubkey = func(p string) (*rpc.VoteAccountsResult, error) {
		if p != votePubkey {
			return nil, errors.New("vote account not found")
		}
		return &rpc.VoteAccountsResult{
			VotePubkey: solana.MustPublicKeyFromBase58(votePubkey),
			NodePubkey: solana.MustPublicKeyFromBase58(nodeIdentity),
			LastVote:   lastVote,
		}, nil
	}
	return b
}

// WithLeaderSchedule configures the mock to simulate leader schedule behavior
func (b *MockClientBuilder) WithLeaderSchedule(pubkey string, isOnSchedule bool, timeToNext time.Duration) *MockClientBuilder {
	b.client.getTimeToNextLeaderSlotForPubkey = func(p solana.PublicKey) (bool, time.Duration, error) {
		if p.String() == pubkey {
			return isOnSchedule, timeToNext, nil
		}
		return false, 0, nil
	}
	return b
}

// WithCurrentSlot configures the mock to return a specific current slot
func (b *MockClientBuilder) WithCurrentSlot(slot uint64) *MockClientBuilder {
	b.client.getCurrentSlot = func() (uint64, error) {
		return slot, nil
	}
	return b
}

// WithSlotEndTime configures the mock to return a specific slot end time
func (b *MockClientBuilder) WithSlotEndTime(endTime time.Time) *MockClientBuilder {
	b.client.getCurrentSlotEndTime = func() (time.Time, error) {
		return endTime, nil
	}
	return b
}

// Build returns the configured mock client
func (b *MockClientBuilder) Build() *MockClient {
	return b.client
}
