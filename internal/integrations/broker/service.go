package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/config"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/mqtt"
)

// Broker is the part of Service the adapters use.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
	DefaultQoS() byte
}

// Service is a shared MQTT broker connection.
//
// Thread Safety: all methods are safe for concurrent use.
type Service struct {
	cfg    config.MQTTConfig
	logger adapter.Logger

	mu     sync.RWMutex
	client *mqtt.Client
}

var (
	_ domain.ExternalService = (*Service)(nil)
	_ Broker                 = (*Service)(nil)
)

// ClientConfig maps a broker payload onto the MQTT client configuration.
func ClientConfig(p *adapter.MQTTBrokerConfig) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     p.Host,
			Port:     p.Port,
			TLS:      p.TLS,
			ClientID: p.ClientID,
		},
		Auth: config.MQTTAuthConfig{Username: p.Username, Password: p.Password},
		QoS:  p.QoS,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

// NewService creates a disconnected service.
func NewService(p *adapter.MQTTBrokerConfig, logger adapter.Logger) *Service {
	if logger == nil {
		logger = adapter.NopLogger()
	}
	return &Service{cfg: ClientConfig(p), logger: logger}
}

// Connect dials the broker. It is a no-op while connected.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}
	client, err := mqtt.Connect(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", mqtt.BrokerURL(s.cfg), err)
	}
	client.SetLogger(s.logger)
	s.client = client
	s.logger.Info("mqtt broker connected", "broker", mqtt.BrokerURL(s.cfg), "client_id", client.ClientID())
	return nil
}

// Disconnect closes the connection.
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

func (s *Service) current() (*mqtt.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, domain.ErrNotConnected
	}
	return s.client, nil
}

// Publish implements Broker.
func (s *Service) Publish(topic string, payload []byte, qos byte, retained bool) error {
	c, err := s.current()
	if err != nil {
		return err
	}
	return c.Publish(topic, payload, qos, retained)
}

// Subscribe implements Broker.
func (s *Service) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	c, err := s.current()
	if err != nil {
		return err
	}
	return c.Subscribe(topic, qos, handler)
}

// IsConnected implements Broker.
func (s *Service) IsConnected() bool {
	c, err := s.current()
	return err == nil && c.IsConnected()
}

// DefaultQoS implements Broker.
func (s *Service) DefaultQoS() byte {
	return byte(s.cfg.QoS)
}
