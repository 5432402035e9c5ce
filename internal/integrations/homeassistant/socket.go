package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
)

// SocketController drives a miner plugged into a smart socket exposed as a
// Home Assistant switch. The optional power entity reports its draw.
type SocketController struct {
	api    API
	cfg    *adapter.SocketMinerConfig
	logger adapter.Logger
}

var _ domain.MinerController = (*SocketController)(nil)

// NewSocketController creates a controller.
func NewSocketController(api API, cfg *adapter.SocketMinerConfig, logger adapter.Logger) *SocketController {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &SocketController{api: api, cfg: cfg, logger: logger}
}

// switchDomain returns the entity's domain, "switch" in "switch.miner".
func switchDomain(entityID string) string {
	if d, _, ok := strings.Cut(entityID, "."); ok && d != "" {
		return d
	}
	return "homeassistant"
}

// StartMiner implements domain.MinerController.
func (c *SocketController) StartMiner(ctx context.Context) (bool, error) {
	if err := c.api.CallService(ctx, switchDomain(c.cfg.EntitySwitch), "turn_on", c.cfg.EntitySwitch); err != nil {
		return false, fmt.Errorf("turning on %s: %w", c.cfg.EntitySwitch, err)
	}
	c.logger.Info("miner socket turned on", "entity", c.cfg.EntitySwitch)
	return true, nil
}

// StopMiner implements domain.MinerController.
func (c *SocketController) StopMiner(ctx context.Context) (bool, error) {
	if err := c.api.CallService(ctx, switchDomain(c.cfg.EntitySwitch), "turn_off", c.cfg.EntitySwitch); err != nil {
		return false, fmt.Errorf("turning off %s: %w", c.cfg.EntitySwitch, err)
	}
	c.logger.Info("miner socket turned off", "entity", c.cfg.EntitySwitch)
	return true, nil
}

// MinerStatus implements domain.MinerController. An unavailable switch
// reports unknown without error.
func (c *SocketController) MinerStatus(ctx context.Context) (domain.MinerStatus, error) {
	st, err := c.api.State(ctx, c.cfg.EntitySwitch)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return domain.MinerStatusUnknown, nil
		}
		return domain.MinerStatusUnknown, err
	}
	switch strings.ToLower(st.State) {
	case "on":
		return domain.MinerStatusOn, nil
	case "off":
		return domain.MinerStatusOff, nil
	default:
		return domain.MinerStatusUnknown, nil
	}
}

// MinerPower implements domain.MinerController.
func (c *SocketController) MinerPower(ctx context.Context) (domain.Watts, error) {
	if c.cfg.EntityPower == "" {
		return 0, fmt.Errorf("%w: no power entity configured", domain.ErrDataUnavailable)
	}
	st, err := c.api.State(ctx, c.cfg.EntityPower)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	return ParsePower(st.State, c.cfg.UnitPower)
}
