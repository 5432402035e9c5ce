package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/resilience"
)

const testToken = "test-token"

// fakeHA serves the subset of the Home Assistant REST API the package uses.
type fakeHA struct {
	mu         sync.Mutex
	states     map[string]string
	calls      []string
	configHits int
	failConfig int // number of /api/config requests answered with 503
}

func newFakeHA(states map[string]string) (*fakeHA, *httptest.Server) {
	f := &fakeHA{states: states}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	return f, srv
}

func (f *fakeHA) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/api/config":
		f.configHits++
		if f.configHits <= f.failConfig {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"version": "2026.10.1", "location_name": "Home"})
	case strings.HasPrefix(r.URL.Path, "/api/states/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/states/")
		state, ok := f.states[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(EntityState{EntityID: id, State: state})
	case strings.HasPrefix(r.URL.Path, "/api/services/") && r.Method == http.MethodPost:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		call := strings.TrimPrefix(r.URL.Path, "/api/services/") + " " + body["entity_id"]
		f.calls = append(f.calls, call)
		if id := body["entity_id"]; id != "" {
			if strings.HasSuffix(r.URL.Path, "/turn_on") {
				f.states[id] = "on"
			} else if strings.HasSuffix(r.URL.Path, "/turn_off") {
				f.states[id] = "off"
			}
		}
		_, _ = w.Write([]byte("[]"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeHA) set(id, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = state
}

func (f *fakeHA) serviceCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsedTime: time.Second}
}

func connectedService(t *testing.T, srv *httptest.Server) *Service {
	t.Helper()
	svc := NewService(&adapter.HomeAssistantServiceConfig{URL: srv.URL + "/", Token: testToken}, nil)
	svc.retry = fastRetry()
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return svc
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() (float64, error)
		want    float64
		wantErr bool
	}{
		{"watts", func() (float64, error) { w, err := ParsePower("1500", "W"); return float64(w), err }, 1500, false},
		{"kilowatts", func() (float64, error) { w, err := ParsePower(" 1.5 ", "kW"); return float64(w), err }, 1500, false},
		{"unknown power unit", func() (float64, error) { w, err := ParsePower("12", "VA"); return float64(w), err }, 12, false},
		{"kilowatt hours", func() (float64, error) { e, err := ParseEnergy("2.25", "kWh"); return float64(e), err }, 2250, false},
		{"watt hours", func() (float64, error) { e, err := ParseEnergy("800", "Wh"); return float64(e), err }, 800, false},
		{"percent clamp high", func() (float64, error) { p, err := ParsePercentage("104"); return float64(p), err }, 100, false},
		{"percent clamp low", func() (float64, error) { p, err := ParsePercentage("-3"); return float64(p), err }, 0, false},
		{"not a number", func() (float64, error) { w, err := ParsePower("on", "W"); return float64(w), err }, 0, true},
		{"nan", func() (float64, error) { w, err := ParsePower("NaN", "W"); return float64(w), err }, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidState) {
					t.Errorf("error = %v, want ErrInvalidState", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_ConnectRetries(t *testing.T) {
	f, srv := newFakeHA(map[string]string{})
	defer srv.Close()
	f.failConfig = 2

	svc := connectedService(t, srv)
	if !svc.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if svc.Version() != "2026.10.1" {
		t.Errorf("Version() = %q, want 2026.10.1", svc.Version())
	}
	if f.configHits != 3 {
		t.Errorf("config requests = %d, want 3", f.configHits)
	}
}

func TestService_ConnectUnauthorized(t *testing.T) {
	f, srv := newFakeHA(map[string]string{})
	defer srv.Close()

	svc := NewService(&adapter.HomeAssistantServiceConfig{URL: srv.URL, Token: "wrong"}, nil)
	svc.retry = fastRetry()
	if err := svc.Connect(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Connect() error = %v, want ErrUnauthorized", err)
	}
	if f.configHits != 0 {
		t.Errorf("config requests = %d, want 0 (rejected before the handler)", f.configHits)
	}
	if svc.IsConnected() {
		t.Error("IsConnected() = true after failed Connect")
	}
}

func TestService_State(t *testing.T) {
	_, srv := newFakeHA(map[string]string{"sensor.pv": "1200", "sensor.off": "unavailable"})
	defer srv.Close()
	svc := connectedService(t, srv)
	ctx := context.Background()

	st, err := svc.State(ctx, "sensor.pv")
	if err != nil || st.State != "1200" {
		t.Fatalf("State(sensor.pv) = %+v, %v", st, err)
	}
	if _, err := svc.State(ctx, "sensor.off"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("State(unavailable) error = %v, want ErrUnavailable", err)
	}
	if _, err := svc.State(ctx, "sensor.missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("State(missing) error = %v, want ErrEntityNotFound", err)
	}

	if err := svc.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if _, err := svc.State(ctx, "sensor.pv"); !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("State() after Disconnect error = %v, want domain.ErrNotConnected", err)
	}
}

func TestService_BreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(&adapter.HomeAssistantServiceConfig{URL: srv.URL, Token: testToken}, nil)
	svc.connected = true
	for range 5 {
		_, _ = svc.State(context.Background(), "sensor.pv")
	}
	if _, err := svc.State(context.Background(), "sensor.pv"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("State() error = %v, want ErrCircuitOpen after repeated failures", err)
	}
}

func monitorConfig() *adapter.HomeAssistantMonitorConfig {
	cfg := adapter.DefaultHomeAssistantMonitorConfig()
	cfg.EntityProduction = "sensor.pv"
	cfg.EntityConsumption = "sensor.load"
	cfg.EntityGrid = "sensor.grid"
	cfg.EntityBatterySOC = "sensor.soc"
	cfg.EntityBatteryPower = "sensor.batt"
	cfg.UnitProduction = "kW"
	return cfg
}

func TestEnergyMonitor(t *testing.T) {
	f, srv := newFakeHA(map[string]string{
		"sensor.pv":   "3.2",
		"sensor.load": "700",
		"sensor.grid": "-500",
		"sensor.soc":  "64",
		"sensor.batt": "2000",
	})
	defer srv.Close()
	svc := connectedService(t, srv)
	source := &domain.EnergySource{ID: "s", StorageCapacity: 10000}

	t.Run("full reading", func(t *testing.T) {
		m := NewEnergyMonitor(svc, monitorConfig(), source, nil)
		snap, err := m.CurrentEnergyState(context.Background())
		if err != nil {
			t.Fatalf("CurrentEnergyState() error = %v", err)
		}
		if snap.Production != 3200 {
			t.Errorf("Production = %v, want 3200", snap.Production)
		}
		if snap.Consumption.CurrentPower != 700 {
			t.Errorf("Consumption = %v, want 700", snap.Consumption.CurrentPower)
		}
		if snap.Grid == nil || snap.Grid.CurrentPower != -500 {
			t.Errorf("Grid = %+v, want -500 (exporting)", snap.Grid)
		}
		if snap.Battery == nil {
			t.Fatal("Battery = nil")
		}
		if snap.Battery.StateOfCharge != 64 || snap.Battery.CurrentPower != 2000 || snap.Battery.RemainingCapacity != 6400 {
			t.Errorf("Battery = %+v, want soc 64, power 2000, remaining 6400", *snap.Battery)
		}
	})

	t.Run("sign conventions", func(t *testing.T) {
		cfg := monitorConfig()
		cfg.GridPositiveExport = true
		cfg.BatteryPositiveCharge = false
		m := NewEnergyMonitor(svc, cfg, source, nil)
		snap, err := m.CurrentEnergyState(context.Background())
		if err != nil {
			t.Fatalf("CurrentEnergyState() error = %v", err)
		}
		if snap.Grid.CurrentPower != 500 {
			t.Errorf("Grid = %v, want 500", snap.Grid.CurrentPower)
		}
		if snap.Battery.CurrentPower != -2000 {
			t.Errorf("Battery.CurrentPower = %v, want -2000", snap.Battery.CurrentPower)
		}
	})

	t.Run("no capacity drops battery", func(t *testing.T) {
		m := NewEnergyMonitor(svc, monitorConfig(), &domain.EnergySource{ID: "s"}, nil)
		snap, err := m.CurrentEnergyState(context.Background())
		if err != nil {
			t.Fatalf("CurrentEnergyState() error = %v", err)
		}
		if snap.Battery != nil {
			t.Errorf("Battery = %+v, want nil without capacity", *snap.Battery)
		}
	})

	t.Run("critical reading unavailable", func(t *testing.T) {
		f.set("sensor.load", "unavailable")
		defer f.set("sensor.load", "700")
		m := NewEnergyMonitor(svc, monitorConfig(), source, nil)
		_, err := m.CurrentEnergyState(context.Background())
		if !errors.Is(err, domain.ErrDataUnavailable) || !errors.Is(err, ErrUnavailable) {
			t.Errorf("CurrentEnergyState() error = %v, want ErrDataUnavailable wrapping ErrUnavailable", err)
		}
	})

	t.Run("optional grid left out", func(t *testing.T) {
		cfg := monitorConfig()
		cfg.EntityGrid = ""
		m := NewEnergyMonitor(svc, cfg, source, nil)
		snap, err := m.CurrentEnergyState(context.Background())
		if err != nil {
			t.Fatalf("CurrentEnergyState() error = %v", err)
		}
		if snap.Grid != nil {
			t.Errorf("Grid = %+v, want nil when not configured", *snap.Grid)
		}
	})
}

func TestForecastProvider(t *testing.T) {
	f, srv := newFakeHA(map[string]string{
		"sensor.power_now":       "2500",
		"sensor.power_next_hour": "1.8",
		"sensor.energy_today":    "21.5",
		"sensor.energy_left":     "6",
		"sensor.energy_tomorrow": "18",
	})
	defer srv.Close()
	svc := connectedService(t, srv)

	cfg := adapter.DefaultHomeAssistantForecastConfig()
	cfg.EntityPowerActualH = "sensor.power_now"
	cfg.EntityPowerNext1H = "sensor.power_next_hour"
	cfg.UnitPowerNext1H = "kW"
	cfg.EntityEnergyToday = "sensor.energy_today"
	cfg.EntityEnergyRemainingToday = "sensor.energy_left"
	cfg.EntityEnergyTomorrow = "sensor.energy_tomorrow"

	now := time.Date(2026, 6, 1, 10, 20, 0, 0, time.UTC)
	p := NewForecastProvider(svc, cfg, nil)
	p.now = func() time.Time { return now }

	data, err := p.SolarForecast(context.Background())
	if err != nil {
		t.Fatalf("SolarForecast() error = %v", err)
	}
	if len(data.Intervals) != 4 {
		t.Fatalf("len(Intervals) = %d, want 4", len(data.Intervals))
	}
	if w, ok := data.PowerAt(now); !ok || w != 2500 {
		t.Errorf("PowerAt(now) = %v, %v; want 2500", w, ok)
	}
	if w, ok := data.PowerAt(now.Add(time.Hour)); !ok || w != 1800 {
		t.Errorf("PowerAt(now+1h) = %v, %v; want 1800", w, ok)
	}
	today := data.Intervals[2]
	if today.Energy == nil || *today.Energy != 21500 || today.EnergyRemaining == nil || *today.EnergyRemaining != 6000 {
		t.Errorf("today interval = %+v, want 21500 Wh with 6000 Wh remaining", today)
	}
	if today.Duration() != 24*time.Hour {
		t.Errorf("today duration = %v, want 24h", today.Duration())
	}
	if tomorrow := data.Intervals[3]; tomorrow.Energy == nil || *tomorrow.Energy != 18000 {
		t.Errorf("tomorrow interval = %+v, want 18000 Wh", tomorrow)
	}

	f.set("sensor.energy_today", "unknown")
	if _, err := p.SolarForecast(context.Background()); !errors.Is(err, domain.ErrDataUnavailable) {
		t.Errorf("SolarForecast() error = %v, want ErrDataUnavailable when energy today is missing", err)
	}
}

func TestSocketController(t *testing.T) {
	f, srv := newFakeHA(map[string]string{"switch.miner": "off", "sensor.miner_power": "3.1"})
	defer srv.Close()
	svc := connectedService(t, srv)
	ctx := context.Background()

	c := NewSocketController(svc, &adapter.SocketMinerConfig{EntitySwitch: "switch.miner", EntityPower: "sensor.miner_power", UnitPower: "kW"}, nil)

	if status, err := c.MinerStatus(ctx); err != nil || status != domain.MinerStatusOff {
		t.Fatalf("MinerStatus() = %s, %v; want off", status, err)
	}
	if ok, err := c.StartMiner(ctx); !ok || err != nil {
		t.Fatalf("StartMiner() = %v, %v", ok, err)
	}
	if status, _ := c.MinerStatus(ctx); status != domain.MinerStatusOn {
		t.Errorf("MinerStatus() after start = %s, want on", status)
	}
	if _, err := c.StopMiner(ctx); err != nil {
		t.Fatalf("StopMiner() error = %v", err)
	}
	calls := f.serviceCalls()
	want := []string{"switch/turn_on switch.miner", "switch/turn_off switch.miner"}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("service calls = %v, want %v", calls, want)
	}

	if w, err := c.MinerPower(ctx); err != nil || w != 3100 {
		t.Errorf("MinerPower() = %v, %v; want 3100", w, err)
	}

	f.set("switch.miner", "unavailable")
	if status, err := c.MinerStatus(ctx); err != nil || status != domain.MinerStatusUnknown {
		t.Errorf("MinerStatus() unavailable = %s, %v; want unknown, nil", status, err)
	}

	noPower := NewSocketController(svc, &adapter.SocketMinerConfig{EntitySwitch: "switch.miner", UnitPower: "W"}, nil)
	if _, err := noPower.MinerPower(ctx); !errors.Is(err, domain.ErrDataUnavailable) {
		t.Errorf("MinerPower() without entity error = %v, want ErrDataUnavailable", err)
	}
}

func TestFactories(t *testing.T) {
	_, srv := newFakeHA(map[string]string{})
	defer srv.Close()

	svcReq := adapter.BuildRequest{Entity: adapter.Entity{
		Category: adapter.CategoryExternalService,
		Config:   &adapter.HomeAssistantServiceConfig{URL: srv.URL, Token: testToken},
	}}
	inst, err := ServiceFactory(context.Background(), svcReq)
	if err != nil {
		t.Fatalf("ServiceFactory() error = %v", err)
	}
	svc, ok := inst.(*Service)
	if !ok || !svc.IsConnected() {
		t.Fatalf("ServiceFactory() = %T, want a connected *Service", inst)
	}

	monitorReq := adapter.BuildRequest{
		Entity:  adapter.Entity{Config: monitorConfig()},
		Service: svc,
	}
	if _, err := EnergyMonitorFactory(context.Background(), monitorReq); err != nil {
		t.Errorf("EnergyMonitorFactory() error = %v", err)
	}
	monitorReq.Service = nil
	if _, err := EnergyMonitorFactory(context.Background(), monitorReq); !errors.Is(err, adapter.ErrUnresolvedDependency) {
		t.Errorf("EnergyMonitorFactory() without service error = %v, want ErrUnresolvedDependency", err)
	}
	if _, err := SocketControllerFactory(context.Background(), adapter.BuildRequest{Service: svc}); !errors.Is(err, adapter.ErrInvalidPayload) {
		t.Errorf("SocketControllerFactory() without payload error = %v, want ErrInvalidPayload", err)
	}
}
