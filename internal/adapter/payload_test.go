package adapter

import (
	"errors"
	"testing"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name        string
		category    Category
		adapterType AdapterType
		raw         string
		wantErr     error
		wantNil     bool
	}{
		{"empty payload", CategoryNotifier, TypeDummy, "", nil, true},
		{"null payload", CategoryNotifier, TypeTelegram, " null ", nil, true},
		{"telegram", CategoryNotifier, TypeTelegram, `{"bot_token":"123:abc","chat_id":"42"}`, nil, false},
		{"telegram missing chat", CategoryNotifier, TypeTelegram, `{"bot_token":"123:abc"}`, ErrInvalidPayload, false},
		{"unknown field", CategoryNotifier, TypeDummy, `{"msg":"hi"}`, ErrInvalidPayload, false},
		{"malformed json", CategoryNotifier, TypeDummy, `{"message":`, ErrInvalidPayload, false},
		{"unsupported type", CategoryNotifier, "carrier_pigeon", `{}`, ErrUnsupportedAdapterType, false},
		{"type from other category", CategoryNotifier, TypeDummySolar, `{}`, ErrUnsupportedAdapterType, false},
		{"invalid category", "toaster", TypeDummy, `{}`, ErrInvalidCategory, false},
		{"mqtt notifier bad qos", CategoryNotifier, TypeMQTT, `{"topic":"alerts","qos":3}`, ErrInvalidPayload, false},
		{"mqtt notifier wildcard", CategoryNotifier, TypeMQTT, `{"topic":"alerts/#"}`, ErrInvalidPayload, false},
		{"ha service", CategoryExternalService, TypeHomeAssistantAPI, `{"url":"http://ha:8123","token":"x"}`, nil, false},
		{"ha service bad url", CategoryExternalService, TypeHomeAssistantAPI, `{"url":"ha:8123","token":"x"}`, ErrInvalidPayload, false},
		{"broker bad port", CategoryExternalService, TypeMQTTBroker, `{"host":"b","port":70000}`, ErrInvalidPayload, false},
		{"forecast hours reversed", CategoryForecastProvider, TypeDummySolar, `{"production_start_hour":20,"production_end_hour":6}`, ErrInvalidPayload, false},
		{"forecast latitude", CategoryForecastProvider, TypeDummySolar, `{"latitude":120}`, ErrInvalidPayload, false},
		{"ha monitor unit", CategoryEnergyMonitor, TypeHomeAssistantAPI, `{"entity_production":"sensor.pv","entity_consumption":"sensor.load","unit_grid":"MW"}`, ErrInvalidPayload, false},
		{"socket miner", CategoryMinerController, TypeGenericSocketHomeAssistantAPI, `{"entity_switch":"switch.miner"}`, nil, false},
		{"dummy miner status", CategoryMinerController, TypeDummy, `{"initial_status":"sleeping"}`, ErrInvalidPayload, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload(tt.category, tt.adapterType, []byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodePayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if (p == nil) != tt.wantNil {
				t.Fatalf("DecodePayload() = %v, wantNil %v", p, tt.wantNil)
			}
			if p != nil && p.AdapterType() != tt.adapterType {
				t.Errorf("AdapterType() = %s, want %s", p.AdapterType(), tt.adapterType)
			}
		})
	}
}

func TestDecodePayload_Defaults(t *testing.T) {
	p, err := DecodePayload(CategoryExternalService, TypeMQTTBroker, []byte(`{"host":"broker.lan"}`))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	cfg := p.(*MQTTBrokerConfig)
	if cfg.Port != 1883 || cfg.ClientID != "edgemining" || cfg.QoS != 1 {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	p, err = DecodePayload(CategoryEnergyMonitor, TypeHomeAssistantAPI,
		[]byte(`{"entity_production":"sensor.pv","entity_consumption":"sensor.load","unit_production":"kW"}`))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	mon := p.(*HomeAssistantMonitorConfig)
	if mon.UnitProduction != "kW" || mon.UnitGrid != "W" || !mon.BatteryPositiveCharge || mon.GridPositiveExport {
		t.Errorf("unexpected monitor config: %+v", mon)
	}
}

func TestMQTTMonitorConfig_Topics(t *testing.T) {
	cfg := DefaultMQTTMonitorConfig()
	cfg.TopicProduction = "pv/power"
	cfg.TopicBatterySOC = "battery/soc"

	topics := cfg.Topics()
	if len(topics) != 2 || topics["production"] != "pv/power" || topics["battery_soc"] != "battery/soc" {
		t.Errorf("Topics() = %v", topics)
	}
}

func TestKnownAdapterType(t *testing.T) {
	for _, c := range AdapterCategories {
		if !c.IsValid() {
			t.Errorf("%s.IsValid() = false", c)
		}
	}
	if !KnownAdapterType(CategoryPerformanceTracker, TypeInfluxDB) {
		t.Error("KnownAdapterType(performance_tracker, influxdb) = false")
	}
	if KnownAdapterType(CategoryHomeForecastProvider, TypeTelegram) {
		t.Error("KnownAdapterType(home_forecast_provider, telegram) = true")
	}
}
