package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Payload is the adapter-specific part of an Entity.
// Each concrete type is one variant of the tagged union for its category,
// discriminated by AdapterType.
type Payload interface {
	AdapterType() AdapterType
	Validate() error
}

// payloadConstructors returns a default-populated payload per (category, adapter_type).
// This table is the closed set of adapter types each category accepts.
var payloadConstructors = map[Category]map[AdapterType]func() Payload{
	CategoryEnergyMonitor: {
		TypeDummySolar:        func() Payload { return DefaultDummySolarMonitorConfig() },
		TypeHomeAssistantAPI:  func() Payload { return DefaultHomeAssistantMonitorConfig() },
		TypeHomeAssistantMQTT: func() Payload { return DefaultMQTTMonitorConfig() },
	},
	CategoryMinerController: {
		TypeDummy:                         func() Payload { return DefaultDummyMinerConfig() },
		TypeGenericSocketHomeAssistantAPI: func() Payload { return DefaultSocketMinerConfig() },
	},
	CategoryNotifier: {
		TypeDummy:    func() Payload { return &DummyNotifierConfig{} },
		TypeTelegram: func() Payload { return &TelegramNotifierConfig{} },
		TypeMQTT:     func() Payload { return DefaultMQTTNotifierConfig() },
	},
	CategoryForecastProvider: {
		TypeDummySolar:       func() Payload { return DefaultDummySolarForecastConfig() },
		TypeHomeAssistantAPI: func() Payload { return DefaultHomeAssistantForecastConfig() },
	},
	CategoryHomeForecastProvider: {
		TypeDummy: func() Payload { return DefaultDummyHomeForecastConfig() },
	},
	CategoryPerformanceTracker: {
		TypeDummy:    func() Payload { return &DummyTrackerConfig{} },
		TypeInfluxDB: func() Payload { return DefaultInfluxTrackerConfig() },
	},
	CategoryExternalService: {
		TypeHomeAssistantAPI: func() Payload { return &HomeAssistantServiceConfig{} },
		TypeMQTTBroker:       func() Payload { return DefaultMQTTBrokerConfig() },
		TypeInfluxDB:         func() Payload { return &InfluxDBServiceConfig{} },
	},
}

// KnownAdapterType reports whether adapterType is part of the closed set for category.
func KnownAdapterType(category Category, adapterType AdapterType) bool {
	_, ok := payloadConstructors[category][adapterType]
	return ok
}

// DecodePayload turns a raw JSON payload into the variant selected by
// (category, adapterType) and validates it.
//
// An empty or null raw payload decodes to a nil Payload; factories decide
// whether they can work from defaults. Unknown fields are rejected.
//
// Returns:
//   - Payload: the validated variant, or nil when raw is empty
//   - error: wrapping ErrInvalidCategory, ErrUnsupportedAdapterType or ErrInvalidPayload
func DecodePayload(category Category, adapterType AdapterType, raw []byte) (Payload, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	newPayload, ok := payloadConstructors[category][adapterType]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedAdapterType, category, adapterType)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	p := newPayload()
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidPayload, category, adapterType, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidPayload, category, adapterType, err)
	}
	return p, nil
}

// validationErrors collects field problems into a single error, the same way
// configuration validation does.
type validationErrors []string

func (v *validationErrors) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v validationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return errors.New(strings.Join(v, "; "))
}

func validPowerUnit(u string) bool {
	switch strings.ToLower(u) {
	case "w", "kw":
		return true
	}
	return false
}

func validEnergyUnit(u string) bool {
	switch strings.ToLower(u) {
	case "wh", "kwh":
		return true
	}
	return false
}

// =============================================================================
// Energy monitors
// =============================================================================

// DummySolarMonitorConfig configures the simulated solar energy monitor.
type DummySolarMonitorConfig struct {
	MaxConsumptionPower float64 `json:"max_consumption_power"`
}

// DefaultDummySolarMonitorConfig returns the defaults.
func DefaultDummySolarMonitorConfig() *DummySolarMonitorConfig {
	return &DummySolarMonitorConfig{MaxConsumptionPower: 3200}
}

// AdapterType implements Payload.
func (*DummySolarMonitorConfig) AdapterType() AdapterType { return TypeDummySolar }

// Validate implements Payload.
func (c *DummySolarMonitorConfig) Validate() error {
	if c.MaxConsumptionPower <= 0 {
		return errors.New("max_consumption_power must be positive")
	}
	return nil
}

// HomeAssistantMonitorConfig maps Home Assistant sensor entities to energy readings.
//
// Sign conventions: GridPositiveExport means the grid sensor is positive
// while exporting; BatteryPositiveCharge means the battery power sensor is
// positive while charging.
type HomeAssistantMonitorConfig struct {
	EntityProduction               string `json:"entity_production"`
	EntityConsumption              string `json:"entity_consumption"`
	EntityGrid                     string `json:"entity_grid"`
	EntityBatterySOC               string `json:"entity_battery_soc"`
	EntityBatteryPower             string `json:"entity_battery_power"`
	EntityBatteryRemainingCapacity string `json:"entity_battery_remaining_capacity"`

	UnitProduction               string `json:"unit_production"`
	UnitConsumption              string `json:"unit_consumption"`
	UnitGrid                     string `json:"unit_grid"`
	UnitBatteryPower             string `json:"unit_battery_power"`
	UnitBatteryRemainingCapacity string `json:"unit_battery_remaining_capacity"`

	GridPositiveExport    bool `json:"grid_positive_export"`
	BatteryPositiveCharge bool `json:"battery_positive_charge"`
}

// DefaultHomeAssistantMonitorConfig returns the defaults.
func DefaultHomeAssistantMonitorConfig() *HomeAssistantMonitorConfig {
	return &HomeAssistantMonitorConfig{
		UnitProduction:               "W",
		UnitConsumption:              "W",
		UnitGrid:                     "W",
		UnitBatteryPower:             "W",
		UnitBatteryRemainingCapacity: "Wh",
		GridPositiveExport:           false,
		BatteryPositiveCharge:        true,
	}
}

// AdapterType implements Payload.
func (*HomeAssistantMonitorConfig) AdapterType() AdapterType { return TypeHomeAssistantAPI }

// Validate implements Payload.
func (c *HomeAssistantMonitorConfig) Validate() error {
	var errs validationErrors
	if c.EntityProduction == "" {
		errs.add("entity_production is required")
	}
	if c.EntityConsumption == "" {
		errs.add("entity_consumption is required")
	}
	for name, u := range map[string]string{
		"unit_production":    c.UnitProduction,
		"unit_consumption":   c.UnitConsumption,
		"unit_grid":          c.UnitGrid,
		"unit_battery_power": c.UnitBatteryPower,
	} {
		if !validPowerUnit(u) {
			errs.add("%s must be W or kW", name)
		}
	}
	if !validEnergyUnit(c.UnitBatteryRemainingCapacity) {
		errs.add("unit_battery_remaining_capacity must be Wh or kWh")
	}
	return errs.err()
}

// MQTTMonitorConfig maps MQTT topics published by Home Assistant (or any
// other bridge) to energy readings.
type MQTTMonitorConfig struct {
	TopicProduction   string `json:"topic_production"`
	TopicConsumption  string `json:"topic_consumption"`
	TopicGrid         string `json:"topic_grid"`
	TopicBatterySOC   string `json:"topic_battery_soc"`
	TopicBatteryPower string `json:"topic_battery_power"`

	UnitProduction   string `json:"unit_production"`
	UnitConsumption  string `json:"unit_consumption"`
	UnitGrid         string `json:"unit_grid"`
	UnitBatteryPower string `json:"unit_battery_power"`

	GridPositiveExport    bool    `json:"grid_positive_export"`
	BatteryPositiveCharge bool    `json:"battery_positive_charge"`
	BatteryCapacityWh     float64 `json:"battery_capacity_wh"`
	MaxDataAgeSeconds     int     `json:"max_data_age_seconds"`
}

// DefaultMQTTMonitorConfig returns the defaults.
func DefaultMQTTMonitorConfig() *MQTTMonitorConfig {
	return &MQTTMonitorConfig{
		UnitProduction:        "W",
		UnitConsumption:       "W",
		UnitGrid:              "W",
		UnitBatteryPower:      "W",
		BatteryPositiveCharge: true,
		MaxDataAgeSeconds:     300,
	}
}

// AdapterType implements Payload.
func (*MQTTMonitorConfig) AdapterType() AdapterType { return TypeHomeAssistantMQTT }

// Topics returns the configured topics keyed by reading name.
func (c *MQTTMonitorConfig) Topics() map[string]string {
	topics := make(map[string]string)
	for name, topic := range map[string]string{
		"production":    c.TopicProduction,
		"consumption":   c.TopicConsumption,
		"grid":          c.TopicGrid,
		"battery_soc":   c.TopicBatterySOC,
		"battery_power": c.TopicBatteryPower,
	} {
		if topic != "" {
			topics[name] = topic
		}
	}
	return topics
}

// Validate implements Payload.
func (c *MQTTMonitorConfig) Validate() error {
	var errs validationErrors
	if c.TopicProduction == "" {
		errs.add("topic_production is required")
	}
	if c.MaxDataAgeSeconds <= 0 {
		errs.add("max_data_age_seconds must be positive")
	}
	if c.BatteryCapacityWh < 0 {
		errs.add("battery_capacity_wh cannot be negative")
	}
	for name, u := range map[string]string{
		"unit_production":    c.UnitProduction,
		"unit_consumption":   c.UnitConsumption,
		"unit_grid":          c.UnitGrid,
		"unit_battery_power": c.UnitBatteryPower,
	} {
		if !validPowerUnit(u) {
			errs.add("%s must be W or kW", name)
		}
	}
	return errs.err()
}

// =============================================================================
// Miner controllers
// =============================================================================

// DummyMinerConfig configures the simulated miner controller.
type DummyMinerConfig struct {
	InitialStatus string  `json:"initial_status"`
	PowerMax      float64 `json:"power_max"`
	HashRateMax   float64 `json:"hashrate_max"`
	HashRateUnit  string  `json:"hashrate_unit"`
}

// DefaultDummyMinerConfig returns the defaults.
func DefaultDummyMinerConfig() *DummyMinerConfig {
	return &DummyMinerConfig{
		InitialStatus: "unknown",
		PowerMax:      3200,
		HashRateMax:   90,
		HashRateUnit:  "TH/s",
	}
}

// AdapterType implements Payload.
func (*DummyMinerConfig) AdapterType() AdapterType { return TypeDummy }

// Validate implements Payload.
func (c *DummyMinerConfig) Validate() error {
	var errs validationErrors
	switch strings.ToLower(c.InitialStatus) {
	case "unknown", "off", "on", "starting", "stopping", "error":
	default:
		errs.add("initial_status %q is not a miner status", c.InitialStatus)
	}
	if c.PowerMax <= 0 {
		errs.add("power_max must be positive")
	}
	if c.HashRateMax <= 0 {
		errs.add("hashrate_max must be positive")
	}
	return errs.err()
}

// SocketMinerConfig drives a miner through a Home Assistant smart socket.
type SocketMinerConfig struct {
	EntitySwitch string `json:"entity_switch"`
	EntityPower  string `json:"entity_power"`
	UnitPower    string `json:"unit_power"`
}

// DefaultSocketMinerConfig returns the defaults.
func DefaultSocketMinerConfig() *SocketMinerConfig {
	return &SocketMinerConfig{UnitPower: "W"}
}

// AdapterType implements Payload.
func (*SocketMinerConfig) AdapterType() AdapterType { return TypeGenericSocketHomeAssistantAPI }

// Validate implements Payload.
func (c *SocketMinerConfig) Validate() error {
	var errs validationErrors
	if c.EntitySwitch == "" {
		errs.add("entity_switch is required")
	}
	if !validPowerUnit(c.UnitPower) {
		errs.add("unit_power must be W or kW")
	}
	return errs.err()
}

// =============================================================================
// Notifiers
// =============================================================================

// DummyNotifierConfig configures the logging notifier.
type DummyNotifierConfig struct {
	Message string `json:"message"`
}

// AdapterType implements Payload.
func (*DummyNotifierConfig) AdapterType() AdapterType { return TypeDummy }

// Validate implements Payload.
func (*DummyNotifierConfig) Validate() error { return nil }

// TelegramNotifierConfig configures the Telegram bot notifier.
type TelegramNotifierConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// AdapterType implements Payload.
func (*TelegramNotifierConfig) AdapterType() AdapterType { return TypeTelegram }

// Validate implements Payload.
func (c *TelegramNotifierConfig) Validate() error {
	var errs validationErrors
	if c.BotToken == "" {
		errs.add("bot_token is required")
	}
	if c.ChatID == "" {
		errs.add("chat_id is required")
	}
	return errs.err()
}

// MQTTNotifierConfig publishes notifications to a topic.
type MQTTNotifierConfig struct {
	Topic    string `json:"topic"`
	QoS      int    `json:"qos"`
	Retained bool   `json:"retained"`
}

// DefaultMQTTNotifierConfig returns the defaults.
func DefaultMQTTNotifierConfig() *MQTTNotifierConfig {
	return &MQTTNotifierConfig{QoS: 1}
}

// AdapterType implements Payload.
func (*MQTTNotifierConfig) AdapterType() AdapterType { return TypeMQTT }

// Validate implements Payload.
func (c *MQTTNotifierConfig) Validate() error {
	var errs validationErrors
	if c.Topic == "" {
		errs.add("topic is required")
	}
	if strings.ContainsAny(c.Topic, "+#") {
		errs.add("topic cannot contain wildcards")
	}
	if c.QoS < 0 || c.QoS > 2 {
		errs.add("qos must be 0, 1, or 2")
	}
	return errs.err()
}

// =============================================================================
// Forecast providers
// =============================================================================

// DummySolarForecastConfig configures the simulated solar forecast.
// A zero CapacityKWp falls back to the energy source's nominal power.
type DummySolarForecastConfig struct {
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	CapacityKWp         float64 `json:"capacity_kwp"`
	EfficiencyPercent   float64 `json:"efficiency_percent"`
	ProductionStartHour int     `json:"production_start_hour"`
	ProductionEndHour   int     `json:"production_end_hour"`
}

// DefaultDummySolarForecastConfig returns the defaults.
func DefaultDummySolarForecastConfig() *DummySolarForecastConfig {
	return &DummySolarForecastConfig{
		Latitude:            41.90,
		Longitude:           12.49,
		EfficiencyPercent:   80,
		ProductionStartHour: 6,
		ProductionEndHour:   20,
	}
}

// AdapterType implements Payload.
func (*DummySolarForecastConfig) AdapterType() AdapterType { return TypeDummySolar }

// Validate implements Payload.
func (c *DummySolarForecastConfig) Validate() error {
	var errs validationErrors
	if c.Latitude < -90 || c.Latitude > 90 {
		errs.add("latitude must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		errs.add("longitude must be between -180 and 180")
	}
	if c.CapacityKWp < 0 {
		errs.add("capacity_kwp cannot be negative")
	}
	if c.EfficiencyPercent <= 0 || c.EfficiencyPercent > 100 {
		errs.add("efficiency_percent must be in (0, 100]")
	}
	if c.ProductionStartHour < 0 || c.ProductionStartHour > 23 ||
		c.ProductionEndHour < 0 || c.ProductionEndHour > 23 {
		errs.add("production hours must be between 0 and 23")
	} else if c.ProductionStartHour >= c.ProductionEndHour {
		errs.add("production_start_hour must be before production_end_hour")
	}
	return errs.err()
}

// HomeAssistantForecastConfig maps Home Assistant forecast sensors.
type HomeAssistantForecastConfig struct {
	EntityPowerActualH         string `json:"entity_forecast_power_actual_h"`
	EntityPowerNext1H          string `json:"entity_forecast_power_next_1h"`
	EntityPowerNext12H         string `json:"entity_forecast_power_next_12h"`
	EntityPowerNext24H         string `json:"entity_forecast_power_next_24h"`
	EntityEnergyActualH        string `json:"entity_forecast_energy_actual_h"`
	EntityEnergyNext1H         string `json:"entity_forecast_energy_next_1h"`
	EntityEnergyToday          string `json:"entity_forecast_energy_today"`
	EntityEnergyTomorrow       string `json:"entity_forecast_energy_tomorrow"`
	EntityEnergyRemainingToday string `json:"entity_forecast_energy_remaining_today"`

	UnitPowerActualH         string `json:"unit_forecast_power_actual_h"`
	UnitPowerNext1H          string `json:"unit_forecast_power_next_1h"`
	UnitPowerNext12H         string `json:"unit_forecast_power_next_12h"`
	UnitPowerNext24H         string `json:"unit_forecast_power_next_24h"`
	UnitEnergyActualH        string `json:"unit_forecast_energy_actual_h"`
	UnitEnergyNext1H         string `json:"unit_forecast_energy_next_1h"`
	UnitEnergyToday          string `json:"unit_forecast_energy_today"`
	UnitEnergyTomorrow       string `json:"unit_forecast_energy_tomorrow"`
	UnitEnergyRemainingToday string `json:"unit_forecast_energy_remaining_today"`
}

// DefaultHomeAssistantForecastConfig returns the defaults.
func DefaultHomeAssistantForecastConfig() *HomeAssistantForecastConfig {
	return &HomeAssistantForecastConfig{
		UnitPowerActualH:         "W",
		UnitPowerNext1H:          "W",
		UnitPowerNext12H:         "W",
		UnitPowerNext24H:         "W",
		UnitEnergyActualH:        "kWh",
		UnitEnergyNext1H:         "kWh",
		UnitEnergyToday:          "kWh",
		UnitEnergyTomorrow:       "kWh",
		UnitEnergyRemainingToday: "kWh",
	}
}

// AdapterType implements Payload.
func (*HomeAssistantForecastConfig) AdapterType() AdapterType { return TypeHomeAssistantAPI }

// Validate implements Payload.
func (c *HomeAssistantForecastConfig) Validate() error {
	var errs validationErrors
	if c.EntityPowerActualH == "" && c.EntityPowerNext1H == "" && c.EntityEnergyToday == "" {
		errs.add("at least one of entity_forecast_power_actual_h, entity_forecast_power_next_1h, entity_forecast_energy_today is required")
	}
	for _, u := range []string{c.UnitPowerActualH, c.UnitPowerNext1H, c.UnitPowerNext12H, c.UnitPowerNext24H} {
		if !validPowerUnit(u) {
			errs.add("forecast power units must be W or kW")
			break
		}
	}
	for _, u := range []string{c.UnitEnergyActualH, c.UnitEnergyNext1H, c.UnitEnergyToday, c.UnitEnergyTomorrow, c.UnitEnergyRemainingToday} {
		if !validEnergyUnit(u) {
			errs.add("forecast energy units must be Wh or kWh")
			break
		}
	}
	return errs.err()
}

// =============================================================================
// Home load forecast providers
// =============================================================================

// DummyHomeForecastConfig configures the simulated home-load forecast.
type DummyHomeForecastConfig struct {
	LoadPowerMax float64 `json:"load_power_max"`
}

// DefaultDummyHomeForecastConfig returns the defaults.
func DefaultDummyHomeForecastConfig() *DummyHomeForecastConfig {
	return &DummyHomeForecastConfig{LoadPowerMax: 500}
}

// AdapterType implements Payload.
func (*DummyHomeForecastConfig) AdapterType() AdapterType { return TypeDummy }

// Validate implements Payload.
func (c *DummyHomeForecastConfig) Validate() error {
	if c.LoadPowerMax <= 0 {
		return errors.New("load_power_max must be positive")
	}
	return nil
}

// =============================================================================
// Performance trackers
// =============================================================================

// DummyTrackerConfig configures the simulated performance tracker.
type DummyTrackerConfig struct {
	Message string `json:"message"`
}

// AdapterType implements Payload.
func (*DummyTrackerConfig) AdapterType() AdapterType { return TypeDummy }

// Validate implements Payload.
func (*DummyTrackerConfig) Validate() error { return nil }

// InfluxTrackerConfig reads hashrate samples and rewards from InfluxDB.
type InfluxTrackerConfig struct {
	Measurement        string `json:"measurement"`
	Field              string `json:"field"`
	MinerTag           string `json:"miner_tag"`
	WindowMinutes      int    `json:"window_minutes"`
	Unit               string `json:"unit"`
	RewardsMeasurement string `json:"rewards_measurement"`
}

// DefaultInfluxTrackerConfig returns the defaults.
func DefaultInfluxTrackerConfig() *InfluxTrackerConfig {
	return &InfluxTrackerConfig{
		Measurement:        "miner_hashrate",
		Field:              "value",
		MinerTag:           "miner_id",
		WindowMinutes:      10,
		Unit:               "TH/s",
		RewardsMeasurement: "miner_rewards",
	}
}

// AdapterType implements Payload.
func (*InfluxTrackerConfig) AdapterType() AdapterType { return TypeInfluxDB }

// Validate implements Payload.
func (c *InfluxTrackerConfig) Validate() error {
	var errs validationErrors
	if c.Measurement == "" {
		errs.add("measurement is required")
	}
	if c.Field == "" {
		errs.add("field is required")
	}
	if c.MinerTag == "" {
		errs.add("miner_tag is required")
	}
	if c.WindowMinutes <= 0 {
		errs.add("window_minutes must be positive")
	}
	return errs.err()
}

// =============================================================================
// External services
// =============================================================================

// HomeAssistantServiceConfig configures a Home Assistant REST session.
type HomeAssistantServiceConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// AdapterType implements Payload.
func (*HomeAssistantServiceConfig) AdapterType() AdapterType { return TypeHomeAssistantAPI }

// Validate implements Payload.
func (c *HomeAssistantServiceConfig) Validate() error {
	var errs validationErrors
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs.add("url must start with http:// or https://")
	}
	if c.Token == "" {
		errs.add("token is required")
	}
	return errs.err()
}

// MQTTBrokerConfig configures a shared MQTT broker connection.
type MQTTBrokerConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	TLS      bool   `json:"tls"`
	QoS      int    `json:"qos"`
}

// DefaultMQTTBrokerConfig returns the defaults.
func DefaultMQTTBrokerConfig() *MQTTBrokerConfig {
	return &MQTTBrokerConfig{
		Port:     1883,
		ClientID: "edgemining",
		QoS:      1,
	}
}

// AdapterType implements Payload.
func (*MQTTBrokerConfig) AdapterType() AdapterType { return TypeMQTTBroker }

// Validate implements Payload.
func (c *MQTTBrokerConfig) Validate() error {
	var errs validationErrors
	if c.Host == "" {
		errs.add("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		errs.add("port must be between 1 and 65535")
	}
	if c.ClientID == "" {
		errs.add("client_id is required")
	}
	if c.QoS < 0 || c.QoS > 2 {
		errs.add("qos must be 0, 1, or 2")
	}
	return errs.err()
}

// InfluxDBServiceConfig configures a shared InfluxDB connection.
type InfluxDBServiceConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// AdapterType implements Payload.
func (*InfluxDBServiceConfig) AdapterType() AdapterType { return TypeInfluxDB }

// Validate implements Payload.
func (c *InfluxDBServiceConfig) Validate() error {
	var errs validationErrors
	if c.URL == "" {
		errs.add("url is required")
	}
	if c.Org == "" {
		errs.add("org is required")
	}
	if c.Bucket == "" {
		errs.add("bucket is required")
	}
	return errs.err()
}
