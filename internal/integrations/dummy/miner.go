package dummy

import (
	"context"
	"sync"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// MinerController simulates one miner.
//
// Start and stop move the miner to starting or stopping; the next status
// reads usually complete the transition. Power and hashrate follow the
// status with a little noise.
type MinerController struct {
	src      *source
	logger   adapter.Logger
	power    domain.Watts
	hashRate domain.HashRate

	mu     sync.Mutex
	status domain.MinerStatus
}

var (
	_ domain.MinerController  = (*MinerController)(nil)
	_ domain.HashRateReporter = (*MinerController)(nil)
)

// NewMinerController creates a controller. Limits set on miner take
// precedence over the payload's.
func NewMinerController(cfg *adapter.DummyMinerConfig, miner *domain.Miner, logger adapter.Logger) *MinerController {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	c := &MinerController{
		src:      newSource(),
		logger:   logger,
		power:    domain.Watts(cfg.PowerMax),
		hashRate: domain.HashRate{Value: cfg.HashRateMax, Unit: cfg.HashRateUnit},
		status:   domain.ParseMinerStatus(cfg.InitialStatus),
	}
	if c.hashRate.Unit == "" {
		c.hashRate.Unit = domain.DefaultHashRateUnit
	}
	if miner != nil {
		if miner.PowerConsumptionMax > 0 {
			c.power = miner.PowerConsumptionMax
		}
		if miner.HashRateMax != nil && miner.HashRateMax.Value > 0 {
			c.hashRate = *miner.HashRateMax
		}
		if c.status == domain.MinerStatusUnknown {
			c.status = domain.ParseMinerStatus(string(miner.Status))
		}
	}
	return c
}

// StartMiner implements domain.MinerController.
func (c *MinerController) StartMiner(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != domain.MinerStatusOn {
		c.logger.Debug("simulated miner starting", "from", string(c.status))
		c.status = domain.MinerStatusStarting
	}
	return true, nil
}

// StopMiner implements domain.MinerController.
func (c *MinerController) StopMiner(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == domain.MinerStatusOn {
		c.logger.Debug("simulated miner stopping")
		c.status = domain.MinerStatusStopping
	}
	return true, nil
}

// MinerStatus implements domain.MinerController.
func (c *MinerController) MinerStatus(ctx context.Context) (domain.MinerStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.MinerStatusUnknown, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case domain.MinerStatusStarting:
		if c.src.chance(0.8) {
			c.status = domain.MinerStatusOn
		}
	case domain.MinerStatusStopping:
		if c.src.chance(0.9) {
			c.status = domain.MinerStatusOff
		}
	}
	return c.status, nil
}

// MinerPower implements domain.MinerController.
func (c *MinerController) MinerPower(ctx context.Context) (domain.Watts, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch c.currentStatus() {
	case domain.MinerStatusOn:
		return max(0, c.power+domain.Watts(c.src.uniform(-50, 50))), nil
	case domain.MinerStatusStarting:
		return c.power * domain.Watts(c.src.uniform(0.3, 0.7)), nil
	default:
		return 0, nil
	}
}

// CurrentHashRate implements domain.HashRateReporter.
func (c *MinerController) CurrentHashRate(ctx context.Context) (domain.HashRate, error) {
	if err := ctx.Err(); err != nil {
		return domain.HashRate{}, err
	}
	hr := domain.HashRate{Unit: c.hashRate.Unit}
	if c.currentStatus() == domain.MinerStatusOn {
		hr.Value = c.hashRate.Value * c.src.uniform(0.9, 1.0)
	}
	return hr, nil
}

func (c *MinerController) currentStatus() domain.MinerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
