package influx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/resilience"
)

// Store is the part of Service the tracker uses.
type Store interface {
	QueryRange(ctx context.Context, q influxdb.RangeQuery) ([]influxdb.Row, error)
	WritePointSync(ctx context.Context, measurement string, tags map[string]string, fields map[string]any, ts time.Time) error
}

// Service is a shared InfluxDB connection.
type Service struct {
	cfg    influxdb.Config
	retry  resilience.RetryConfig
	logger adapter.Logger

	mu     sync.RWMutex
	client *influxdb.Client
}

var (
	_ domain.ExternalService = (*Service)(nil)
	_ Store                  = (*Service)(nil)
)

// NewService creates a disconnected service.
func NewService(p *adapter.InfluxDBServiceConfig, logger adapter.Logger) *Service {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &Service{
		cfg:    influxdb.Config{URL: p.URL, Token: p.Token, Org: p.Org, Bucket: p.Bucket},
		retry:  resilience.DefaultRetryConfig(),
		logger: logger,
	}
}

// Connect pings the server, retrying transient failures.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	cfg := s.retry
	cfg.OnRetry = func(err error, wait time.Duration) {
		s.logger.Warn("influxdb not reachable, retrying", "url", s.cfg.URL, "error", err, "wait", wait)
	}
	var client *influxdb.Client
	err := resilience.Retry(ctx, cfg, func() error {
		c, err := influxdb.Connect(ctx, s.cfg)
		if errors.Is(err, influxdb.ErrInvalidConfig) {
			return resilience.Permanent(err)
		}
		client = c
		return err
	})
	if err != nil {
		return fmt.Errorf("connecting to influxdb: %w", err)
	}
	client.SetOnError(func(err error) {
		s.logger.Error("influxdb batched write failed", "error", err)
	})
	s.client = client
	s.logger.Info("connected to influxdb", "url", s.cfg.URL, "bucket", s.cfg.Bucket)
	return nil
}

// Disconnect flushes pending writes and closes the client.
func (s *Service) Disconnect(context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// IsConnected reports whether the client is open.
func (s *Service) IsConnected() bool {
	c, err := s.current()
	return err == nil && c.IsConnected()
}

func (s *Service) current() (*influxdb.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, domain.ErrNotConnected
	}
	return s.client, nil
}

// QueryRange implements Store.
func (s *Service) QueryRange(ctx context.Context, q influxdb.RangeQuery) ([]influxdb.Row, error) {
	c, err := s.current()
	if err != nil {
		return nil, err
	}
	return c.QueryRange(ctx, q)
}

// WritePointSync implements Store.
func (s *Service) WritePointSync(ctx context.Context, measurement string, tags map[string]string, fields map[string]any, ts time.Time) error {
	c, err := s.current()
	if err != nil {
		return err
	}
	return c.WritePointSync(ctx, measurement, tags, fields, ts)
}
