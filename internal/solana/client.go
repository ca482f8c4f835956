package solana

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
)

// RPCClientInterface defines the interface for RPC client operations - a solana rpc client interface
type RPCClientInterface interface {
	GetVoteAccounts(ctx context.Context, opts *rpc.GetVoteAccountsOpts) (*rpc.GetVoteAccountsResult, error)
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	GetLeaderSchedule(ctx context.Context) (rpc.GetLeaderScheduleResult, error)
	GetBlockTime(ctx context.Context, slot uint64) (*solanago.UnixTimeSeconds, error)
	GetHealth(ctx context.Context) (string, error)
	GetEpochInfo(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetEpochInfoResult, error)
}

// ClientInterface defines the interface for solana rpc operations used by the probe and health monitor
type ClientInterface interface {
	// GetCreditRankedVoteAccountFromPubkey returns the current vote account whose node identity is pubkey and
	// its 1-indexed rank among current vote accounts, sorted by credits earned in the latest epoch (descending)
	GetCreditRankedVoteAccountFromPubkey(pubkey string) (*rpc.VoteAccountsResult, int, error)
	// GetVoteAccountByVotePubkey returns the current or delinquent vote account whose vote account
	// pubkey matches votePubkey - used to resolve the identity currently authorized to vote with it
	// and its most recently credited slot.
	GetVoteAccountByVotePubkey(votePubkey string) (*rpc.VoteAccountsResult, error)
	// GetCurrentSlot returns the current slot
	GetCurrentSlot() (slot uint64, err error)
	// GetCurrentSlotEndTime returns the end time of the current slot
	GetCurrentSlotEndTime() (time.Time, error)
	// GetTimeToNextLeaderSlotForPubkey returns the time to the next leader slot for the given pubkey
	GetTimeToNextLeaderSlotForPubkey(pubkey solanago.PublicKey) (isOnLeaderSchedule bool, timeToNextLeaderSlot time.Duration, err error)
	// GetLocalNodeHealth returns the health of the local node
	GetLocalNodeHealth() (string, error)
	// IsLocalNodeHealthy returns true if the local node is healthy
	IsLocalNodeHealthy() bool
}

// Client implements ClientInterface using an RPC client pair: one local (per-host) and one network-wide
type Client struct {
	localRPCClient   RPCClientInterface
	networkRPCClient RPCClientInterface
	performanceCache struct {
		avgSlotTime time.Duration
		lastUpdated time.Time
		mutex       sync.RWMutex
	}
}

// NewClientParams is the parameters for creating a new client
type NewClientParams struct {
	LocalRPCURL   string
	NetworkRPCURL string
}

// NewRPCClient creates a new client for the given solana cluster
func NewRPCClient(params NewClientParams) ClientInterface {
	return &Client{
		localRPCClient:   rpc.New(params.LocalRPCURL),
		networkRPCClient: rpc.New(params.NetworkRPCURL),
	}
}

// GetLocalNodeHealth returns the health of the local node
func (c *Client) GetLocalNodeHealth() (string, error) {
	result, err := c.localRPCClient.GetHealth(context.Background())
	if err != nil {
		return err.Error(), fmt.Errorf("failed to get local node health: %w", err)
	}
	return string(result), nil
}

// IsLocalNodeHealthy returns true if the local node is healthy
func (c *Client) IsLocalNodeHealthy() bool {
	result, err := c.GetLocalNodeHealth()
	if err != nil {
		log.Debug().Err(err).Msg("failed to get local node health")
		return false
	}
	isHealthy := result == rpc.HealthOk
	if !isHealthy {
		log.Debug().Str("result", result).Msg("local node health")
	}
	return isHealthy
}

// GetCreditRankedVoteAccountFromPubkey returns the current vote account whose node identity is pubkey and
// its 1-indexed rank among current vote accounts, sorted by credits earned in the latest epoch (descending)
func (c *Client) GetCreditRankedVoteAccountFromPubkey(pubkey string) (voteAccount *rpc.VoteAccountsResult, creditRank int, err error) {
	voteAccounts, err := c.networkRPCClient.GetVoteAccounts(
		context.Background(),
		&rpc.GetVoteAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get vote account from pubkey %s: %w", pubkey, err)
	}

	currentVoteAccounts := voteAccounts.Current

	sort.SliceStable(currentVoteAccounts, func(i, j int) bool {
		var iDiff, jDiff int64
		if len(currentVoteAccounts[i].EpochCredits) > 0 {
			lastIndex := len(currentVoteAccounts[i].EpochCredits) - 1
			iDiff = currentVoteAccounts[i].EpochCredits[lastIndex][1] - currentVoteAccounts[i].EpochCredits[lastIndex][2]
		}
		if len(currentVoteAccounts[j].EpochCredits) > 0 {
			lastIndex := len(currentVoteAccounts[j].EpochCredits) - 1
			jDiff = currentVoteAccounts[j].EpochCredits[lastIndex][1] - currentVoteAccounts[j].EpochCredits[lastIndex][2]
		}
		return iDiff > jDiff
	})

	for i, account := range currentVoteAccounts {
		if account.NodePubkey.String() == pubkey {
			creditRank = i + 1 // rank is 1-indexed
			return &account, creditRank, nil
		}
	}

	return nil, 0, fmt.Errorf("vote account not found for pubkey: %s", pubkey)
}

// GetVoteAccountByVotePubkey returns the current or delinquent vote account whose vote account
// pubkey matches votePubkey.
func (c *Client) GetVoteAccountByVotePubkey(votePubkey string) (*rpc.VoteAccountsResult, error) {
	voteAccounts, err := c.networkRPCClient.GetVoteAccounts(
		context.Background(),
		&rpc.GetVoteAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get vote accounts for vote pubkey %s: %w", votePubkey, err)
	}

	for _, account := range voteAccounts.Current {
		if account.VotePubkey.String() == votePubkey {
			return &account, nil
		}
	}
	for _, account := range voteAccounts.Delinquent {
		if account.VotePubkey.String() == votePubkey {
			return &account, nil
		}
	}

	return nil, fmt.Errorf("vote account not found for vote pubkey: %s", votePubkey)
}

// GetCurrentSlot returns the current slot
func (c *Client) GetCurrentSlot() (slot uint64, err error) {
	slot, err = c.networkRPCClient.GetSlot(context.Background(), rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

// GetCurrentSlotEndTime returns the end time of the current slot
func (c *Client) GetCurrentSlotEndTime() (time.Time, error) {
	slot, err := c.GetCurrentSlot()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get current slot: %w", err)
	}

	expectedCurrentSlotEndTime, err := c.networkRPCClient.GetBlockTime(context.Background(), slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get block time for current slot: %w", err)
	}

	// if no estimate available, assume 400ms from now
	if expectedCurrentSlotEndTime == nil {
		return time.Now().UTC().Add(400 * time.Millisecond), nil
	}

	return time.Unix(int64(*expectedCurrentSlotEndTime), 0).UTC(), nil
}

// GetTimeToNextLeaderSlotForPubkey returns the time to the next leader slot for the given pubkey
func (c *Client) GetTimeToNextLeaderSlotForPubkey(pubkey solanago.PublicKey) (isOnLeaderSchedule bool, timeToNextLeaderSlot time.Duration, err error) {
	currentSlot, err := c.GetCurrentSlot()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get current slot: %w", err)
	}

	epochInfo, err := c.networkRPCClient.GetEpochInfo(context.Background(), rpc.CommitmentProcessed)
	if err != nil {
		return false, 0, fmt.Errorf("failed to get epoch info: %w", err)
	}

	firstSlotOfEpoch := epochInfo.AbsoluteSlot - epochInfo.SlotIndex

	leaderSchedule, err := c.networkRPCClient.GetLeaderSchedule(context.Background())
	if err != nil {
		return false, 0, fmt.Errorf("failed to get leader schedule: %w", err)
	}

	relativeSlots, ok := leaderSchedule[pubkey]
	if !ok {
		log.Debug().
			Str("validator_pubkey", pubkey.String()).
			Int("total_validators_in_schedule", len(leaderSchedule)).
			Msg("validator not found in leader schedule")
		return false, 0, nil
	}

	var nextLeaderSlot uint64
	for _, relativeSlot := range relativeSlots {
		absoluteSlot := firstSlotOfEpoch + relativeSlot
		if absoluteSlot > currentSlot {
			nextLeaderSlot = absoluteSlot
			break
		}
	}

	if nextLeaderSlot == 0 {
		log.Debug().
			Str("validator_pubkey", pubkey.String()).
			Uint64("current_slot", currentSlot).
			Int("total_relative_slots", len(relativeSlots)).
			Msg("validator found in leader schedule but has no future slots in current epoch")
		return false, 0, nil
	}

	slotsUntilLeader := nextLeaderSlot - currentSlot

	avgSlotTime, err := c.getAverageSlotTime()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get average slot time: %w", err)
	}

	timeToNextLeaderSlot = time.Duration(slotsUntilLeader) * avgSlotTime

	return true, timeToNextLeaderSlot, nil
}

// getAverageSlotTime returns the average slot time, cached for 30s. Uses a fixed 400ms approximation.
func (c *Client) getAverageSlotTime() (time.Duration, error) {
	c.performanceCache.mutex.RLock()
	if time.Since(c.performanceCache.lastUpdated) < 30*time.Second {
		avgSlotTime := c.performanceCache.avgSlotTime
		c.performanceCache.mutex.RUnlock()
		return avgSlotTime, nil
	}
	c.performanceCache.mutex.RUnlock()

	c.performanceCache.mutex.Lock()
	defer c.performanceCache.mutex.Unlock()

	if time.Since(c.performanceCache.lastUpdated) < 30*time.Second {
		return c.performanceCache.avgSlotTime, nil
	}

	avgSlotTime := 400 * time.Millisecond
	c.performanceCache.avgSlotTime = avgSlotTime
	c.performanceCache.lastUpdated = time.Now()

	return avgSlotTime, nil
}
