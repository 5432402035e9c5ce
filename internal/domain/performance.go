package domain

import (
	"context"
	"time"
)

// Satoshi is the smallest bitcoin unit.
type Satoshi int64

// MiningReward is a payout credited to a miner.
type MiningReward struct {
	Amount    Satoshi   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultRewardLimit bounds RecentRewards when the caller passes 0.
const DefaultRewardLimit = 10

// MiningPerformanceTracker reports hashrate and rewards.
// An empty minerID in RecentRewards means all miners.
type MiningPerformanceTracker interface {
	CurrentHashRate(ctx context.Context, minerID string) (*HashRate, error)
	RecentRewards(ctx context.Context, minerID string, limit int) ([]MiningReward, error)
}
