package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/resilience"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseBytes      = 1 << 20
)

// EntityState is one entity as returned by GET /api/states/{entity_id}.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Unit returns the unit_of_measurement attribute, if any.
func (s EntityState) Unit() string {
	u, _ := s.Attributes["unit_of_measurement"].(string)
	return u
}

// API is the part of Service the adapters use.
type API interface {
	State(ctx context.Context, entityID string) (EntityState, error)
	CallService(ctx context.Context, domainName, service, entityID string) error
}

// Service is a Home Assistant REST session.
//
// Thread Safety: all methods are safe for concurrent use.
type Service struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
	logger  adapter.Logger

	mu        sync.RWMutex
	connected bool
	version   string
}

var (
	_ domain.ExternalService = (*Service)(nil)
	_ API                    = (*Service)(nil)
)

// NewService creates a disconnected session for cfg.
func NewService(cfg *adapter.HomeAssistantServiceConfig, logger adapter.Logger) *Service {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &Service{
		baseURL: strings.TrimRight(cfg.URL, "/") + "/api",
		token:   cfg.Token,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "homeassistant:" + cfg.URL}, logger),
		retry:   resilience.DefaultRetryConfig(),
		logger:  logger,
	}
}

// Connect probes /api/config, retrying transient failures.
func (s *Service) Connect(ctx context.Context) error {
	var info struct {
		Version      string `json:"version"`
		LocationName string `json:"location_name"`
	}
	cfg := s.retry
	cfg.OnRetry = func(err error, wait time.Duration) {
		s.logger.Warn("home assistant not reachable, retrying", "error", err, "wait", wait)
	}
	err := resilience.Retry(ctx, cfg, func() error {
		return s.do(ctx, http.MethodGet, "/config", nil, &info)
	})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", s.baseURL, err)
	}

	s.mu.Lock()
	s.connected = true
	s.version = info.Version
	s.mu.Unlock()
	s.logger.Info("connected to home assistant", "version", info.Version, "location", info.LocationName)
	return nil
}

// Disconnect marks the session closed and drops idle connections.
func (s *Service) Disconnect(context.Context) error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.http.CloseIdleConnections()
	s.logger.Info("disconnected from home assistant")
	return nil
}

// IsConnected reports whether Connect succeeded and Disconnect was not called.
func (s *Service) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Version returns the Home Assistant version reported at connect.
func (s *Service) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// State reads one entity. Unavailable and unknown states return ErrUnavailable.
func (s *Service) State(ctx context.Context, entityID string) (EntityState, error) {
	if !s.IsConnected() {
		return EntityState{}, domain.ErrNotConnected
	}
	var st EntityState
	if err := s.do(ctx, http.MethodGet, "/states/"+entityID, nil, &st); err != nil {
		return EntityState{}, err
	}
	switch strings.ToLower(st.State) {
	case "", "unavailable", "unknown":
		return st, fmt.Errorf("%w: %s is %q", ErrUnavailable, entityID, st.State)
	}
	return st, nil
}

// CallService invokes a Home Assistant service such as switch.turn_on for
// one entity, retrying transient failures.
func (s *Service) CallService(ctx context.Context, domainName, service, entityID string) error {
	if !s.IsConnected() {
		return domain.ErrNotConnected
	}
	body := map[string]string{"entity_id": entityID}
	return resilience.Retry(ctx, s.retry, func() error {
		return s.do(ctx, http.MethodPost, "/services/"+domainName+"/"+service, body, nil)
	})
}

// do sends one request through the circuit breaker. Client errors are
// marked permanent so they neither trip the breaker nor get retried.
func (s *Service) do(ctx context.Context, method, path string, body, out any) error {
	return s.breaker.Do(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return resilience.Permanent(fmt.Errorf("%w: encoding body: %w", ErrRequestFailed, err))
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("%w: %w", ErrRequestFailed, err))
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return resilience.Permanent(ErrUnauthorized)
		case resp.StatusCode == http.StatusNotFound:
			return resilience.Permanent(fmt.Errorf("%w: %s", ErrEntityNotFound, path))
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, method, path, resp.StatusCode)
		case resp.StatusCode >= 400:
			return resilience.Permanent(fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, method, path, resp.StatusCode))
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
			return nil
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
			return resilience.Permanent(fmt.Errorf("%w: decoding %s: %w", ErrRequestFailed, path, err))
		}
		return nil
	})
}
