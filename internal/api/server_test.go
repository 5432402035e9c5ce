package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
	"github.com/nerrad567/edge-mining-core/internal/audit"
	"github.com/nerrad567/edge-mining-core/internal/auth"
	"github.com/nerrad567/edge-mining-core/internal/domain"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/config"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/database"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/logging"
	"github.com/nerrad567/edge-mining-core/internal/infrastructure/metrics"
	"github.com/nerrad567/edge-mining-core/internal/integrations"
	"github.com/nerrad567/edge-mining-core/internal/store"
	"github.com/nerrad567/edge-mining-core/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// testEnv is a server over a migrated SQLite database with every adapter
// factory registered.
type testEnv struct {
	srv      *Server
	router   http.Handler
	stores   *store.Stores
	registry *adapter.Registry
}

func testServer(t *testing.T, tweaks ...func(*Deps)) *testEnv {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	stores := store.New(db.DB)
	factories := adapter.NewFactoryTable()
	integrations.Register(factories)
	registry := adapter.NewRegistry(stores.Repositories(), factories, adapter.Options{})
	registry.SetLogger(log)

	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		},
		Logger:    log,
		Registry:  registry,
		Stores:    stores,
		DB:        db.DB,
		Factories: factories,
		Audit:     audit.NewStore(db.DB),
		Version:   "test",
	}
	for _, tweak := range tweaks {
		tweak(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{srv: srv, router: srv.Handler(), stores: stores, registry: registry}
}

func testToken(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken("tester", role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

// do sends a request. body may be nil, a raw string, or a value to encode.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return resp
}

// seed stores a simulated solar source and a simulated miner.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if err := e.stores.Entity(adapter.CategoryEnergyMonitor).Save(ctx, &adapter.Entity{
		ID: "mon-1", Name: "simulated monitor", AdapterType: adapter.TypeDummySolar,
	}); err != nil {
		t.Fatalf("Save(monitor) error = %v", err)
	}
	if err := e.stores.EnergySources.Save(ctx, &domain.EnergySource{
		ID: "src-1", Name: "roof", Type: domain.EnergySourceSolar,
		NominalPowerMax: 5000, EnergyMonitorID: "mon-1",
	}); err != nil {
		t.Fatalf("Save(source) error = %v", err)
	}
	if err := e.stores.Entity(adapter.CategoryMinerController).Save(ctx, &adapter.Entity{
		ID: "ctl-1", Name: "simulated controller", AdapterType: adapter.TypeDummy,
	}); err != nil {
		t.Fatalf("Save(controller) error = %v", err)
	}
	if err := e.stores.Miners.Save(ctx, &domain.Miner{
		ID: "m-1", Name: "s19", Status: domain.MinerStatusOff, ControllerID: "ctl-1",
	}); err != nil {
		t.Fatalf("Save(miner) error = %v", err)
	}
}

// ─── Health & middleware ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decodeResponse(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	reg, ok := resp["registry"].(map[string]any)
	if !ok {
		t.Fatalf("registry = %T, want object", resp["registry"])
	}
	if reg["factories"] != float64(16) {
		t.Errorf("registry.factories = %v, want 16", reg["factories"])
	}
	if _, present := resp["mqtt_connected"]; present {
		t.Error("mqtt_connected should be absent without an MQTT client")
	}
}

func TestRequestID(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/miners", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want http://localhost:3000", got)
	}
}

func TestRateLimit(t *testing.T) {
	env := testServer(t, func(d *Deps) {
		d.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	})

	for i := range 2 {
		if w := env.do(t, http.MethodGet, "/api/v1/health", "", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.New()
	env := testServer(t, func(d *Deps) {
		d.Collector = collector
		d.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	})
	env.registry.SetMetrics(collector)

	env.do(t, http.MethodGet, "/api/v1/health", "", nil)

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `edgemining_http_requests_total{code="200",method="GET",route="/api/v1/health"}`) {
		t.Errorf("metrics output missing health request counter:\n%s", body)
	}
}

// ─── Authentication & permissions ──────────────────────────────────

func TestAuth_RequiresToken(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/miners", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	env := testServer(t)
	tok, err := auth.GenerateToken("tester", auth.RoleAdmin, "another-secret-that-is-long-enough-too", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/miners", tok, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestPermissions(t *testing.T) {
	env := testServer(t)
	env.seed(t)

	tests := []struct {
		name   string
		role   auth.Role
		method string
		path   string
		want   int
	}{
		{"viewer reads miners", auth.RoleViewer, http.MethodGet, "/api/v1/miners", http.StatusOK},
		{"viewer cannot start", auth.RoleViewer, http.MethodPost, "/api/v1/miners/m-1/start", http.StatusForbidden},
		{"viewer cannot broadcast", auth.RoleViewer, http.MethodPost, "/api/v1/notifiers/broadcast", http.StatusForbidden},
		{"operator cannot configure", auth.RoleOperator, http.MethodGet, "/api/v1/adapters/notifier", http.StatusForbidden},
		{"operator cannot clear cache", auth.RoleOperator, http.MethodDelete, "/api/v1/registry/adapters", http.StatusForbidden},
		{"admin reads stats", auth.RoleAdmin, http.MethodGet, "/api/v1/registry/stats", http.StatusOK},
		{"admin reads adapters", auth.RoleAdmin, http.MethodGet, "/api/v1/adapters/notifier", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, testToken(t, tt.role), nil)
			if w.Code != tt.want {
				t.Errorf("%s %s as %s = %d, want %d (%s)", tt.method, tt.path, tt.role, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

// ─── Energy ────────────────────────────────────────────────────────

func TestEnergyState(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	tok := testToken(t, auth.RoleViewer)

	w := env.do(t, http.MethodGet, "/api/v1/energy-sources/src-1/state", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["energy_source_id"] != "src-1" {
		t.Errorf("energy_source_id = %v, want src-1", resp["energy_source_id"])
	}
	if _, ok := resp["state"].(map[string]any); !ok {
		t.Errorf("state = %T, want object", resp["state"])
	}

	// The monitor is built once and then served from the cache.
	env.do(t, http.MethodGet, "/api/v1/energy-sources/src-1/state", tok, nil)
	if got := env.registry.Stats().Adapters; got != 1 {
		t.Errorf("cached adapters = %d, want 1", got)
	}
}

func TestEnergyState_Errors(t *testing.T) {
	env := testServer(t)
	if err := env.stores.EnergySources.Save(context.Background(), &domain.EnergySource{
		ID: "bare", Name: "no monitor",
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tok := testToken(t, auth.RoleViewer)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{"unknown source", "/api/v1/energy-sources/nope/state", http.StatusNotFound, ErrCodeNotFound},
		{"no monitor", "/api/v1/energy-sources/bare/state", http.StatusNotFound, ErrCodeNotConfigured},
		{"no forecast provider", "/api/v1/energy-sources/bare/forecast", http.StatusNotFound, ErrCodeNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, tok, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if resp := decodeResponse(t, w); resp["code"] != tt.wantErr {
				t.Errorf("code = %v, want %s", resp["code"], tt.wantErr)
			}
		})
	}
}

func TestPutEnergySource_InvalidatesMonitor(t *testing.T) {
	env := testServer(t)
	env.seed(t)

	env.do(t, http.MethodGet, "/api/v1/energy-sources/src-1/state", testToken(t, auth.RoleViewer), nil)
	if env.registry.Stats().Adapters != 1 {
		t.Fatal("monitor not cached")
	}

	w := env.do(t, http.MethodPut, "/api/v1/energy-sources/src-1", testToken(t, auth.RoleAdmin), map[string]any{
		"name": "roof", "type": "solar", "nominal_power_max": 8000, "energy_monitor_id": "mon-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := env.registry.Stats().Adapters; got != 0 {
		t.Errorf("cached adapters = %d, want 0", got)
	}
}

// ─── Miners ────────────────────────────────────────────────────────

func TestStartMiner(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	tok := testToken(t, auth.RoleOperator)

	w := env.do(t, http.MethodPost, "/api/v1/miners/m-1/start", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["accepted"] != true {
		t.Errorf("accepted = %v, want true", resp["accepted"])
	}
	if resp["status"] != string(domain.MinerStatusStarting) {
		t.Errorf("status = %v, want starting", resp["status"])
	}

	m, err := env.stores.Miners.Get(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if m.Status != domain.MinerStatusStarting {
		t.Errorf("stored status = %q, want starting", m.Status)
	}

	// A miner that is still starting cannot be stopped.
	if w := env.do(t, http.MethodPost, "/api/v1/miners/m-1/stop", tok, nil); w.Code != http.StatusConflict {
		t.Errorf("stop while starting = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestMinerStatus(t *testing.T) {
	env := testServer(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/miners/m-1/status", testToken(t, auth.RoleViewer), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["status"] != string(domain.MinerStatusOff) {
		t.Errorf("status = %v, want off", resp["status"])
	}
	if _, ok := resp["hash_rate"].(map[string]any); !ok {
		t.Errorf("hash_rate = %v, want object from the controller", resp["hash_rate"])
	}
}

func TestStartMiner_NoController(t *testing.T) {
	env := testServer(t)
	if err := env.stores.Miners.Save(context.Background(), &domain.Miner{ID: "lonely", Name: "no controller"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/v1/miners/lonely/start", testToken(t, auth.RoleOperator), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decodeResponse(t, w); resp["code"] != ErrCodeNotConfigured {
		t.Errorf("code = %v, want %s", resp["code"], ErrCodeNotConfigured)
	}
}

// ─── Adapter configuration ─────────────────────────────────────────

func TestPutAdapter_InvalidatesCache(t *testing.T) {
	env := testServer(t)
	env.seed(t)

	env.do(t, http.MethodGet, "/api/v1/energy-sources/src-1/state", testToken(t, auth.RoleViewer), nil)
	if env.registry.Stats().Adapters != 1 {
		t.Fatal("monitor not cached")
	}

	w := env.do(t, http.MethodPut, "/api/v1/adapters/energy_monitor/mon-1", testToken(t, auth.RoleAdmin), map[string]any{
		"name":         "simulated monitor",
		"adapter_type": "dummy_solar",
		"config":       map[string]any{"max_consumption_power": 1500},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := env.registry.Stats().Adapters; got != 0 {
		t.Errorf("cached adapters = %d, want 0", got)
	}

	e, err := env.stores.Entity(adapter.CategoryEnergyMonitor).GetByID(context.Background(), "mon-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	cfg, ok := e.Config.(*adapter.DummySolarMonitorConfig)
	if !ok || cfg.MaxConsumptionPower != 1500 {
		t.Errorf("stored config = %#v, want max_consumption_power 1500", e.Config)
	}
}

func TestPutAdapter_Validation(t *testing.T) {
	env := testServer(t)
	tok := testToken(t, auth.RoleAdmin)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"unknown category", "/api/v1/adapters/toaster/x", map[string]any{"name": "x", "adapter_type": "dummy"}},
		{"service category", "/api/v1/adapters/external_service/x", map[string]any{"name": "x", "adapter_type": "mqtt_broker"}},
		{"unsupported type", "/api/v1/adapters/notifier/x", map[string]any{"name": "x", "adapter_type": "carrier_pigeon"}},
		{"unknown config field", "/api/v1/adapters/energy_monitor/x", map[string]any{
			"name": "x", "adapter_type": "dummy_solar", "config": map[string]any{"colour": "blue"},
		}},
		{"invalid config value", "/api/v1/adapters/energy_monitor/x", map[string]any{
			"name": "x", "adapter_type": "dummy_solar", "config": map[string]any{"max_consumption_power": -1},
		}},
		{"missing name", "/api/v1/adapters/notifier/x", map[string]any{"adapter_type": "dummy"}},
		{"malformed JSON", "/api/v1/adapters/notifier/x", "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, tt.path, tok, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestPutAdapter_IDInUseByOtherCategory(t *testing.T) {
	env := testServer(t)
	tok := testToken(t, auth.RoleAdmin)

	w := env.do(t, http.MethodPut, "/api/v1/adapters/notifier/X", tok, map[string]any{
		"name": "log", "adapter_type": "dummy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT notifier status = %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPut, "/api/v1/adapters/energy_monitor/X", tok, map[string]any{
		"name": "sim", "adapter_type": "dummy_solar",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("PUT energy_monitor status = %d, want %d: %s", w.Code, http.StatusConflict, w.Body.String())
	}
	if code := decodeResponse(t, w)["code"]; code != ErrCodeConflict {
		t.Errorf("code = %v, want %s", code, ErrCodeConflict)
	}
}

func TestDeleteAdapter(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	tok := testToken(t, auth.RoleAdmin)

	if w := env.do(t, http.MethodDelete, "/api/v1/adapters/energy_monitor/mon-1", tok, nil); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/adapters/energy_monitor/mon-1", tok, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want %d", w.Code, http.StatusNotFound)
	}

	w := env.do(t, http.MethodGet, "/api/v1/energy-sources/src-1/state", tok, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("state after delete = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestExternalService_Redacted(t *testing.T) {
	env := testServer(t)
	tok := testToken(t, auth.RoleAdmin)

	w := env.do(t, http.MethodPut, "/api/v1/external-services/ha", tok, map[string]any{
		"name":         "home assistant",
		"adapter_type": "home_assistant_api",
		"config":       map[string]any{"url": "http://ha.local:8123", "token": "super-secret"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "super-secret") {
		t.Error("PUT response leaks the token")
	}

	w = env.do(t, http.MethodGet, "/api/v1/external-services", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(w.Body.String(), "super-secret") {
		t.Error("list response leaks the token")
	}
	if !strings.Contains(w.Body.String(), redactedValue) {
		t.Errorf("list response = %s, want redacted token", w.Body.String())
	}

	// The stored entity keeps the real value.
	e, err := env.stores.Entity(adapter.CategoryExternalService).GetByID(context.Background(), "ha")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if cfg := e.Config.(*adapter.HomeAssistantServiceConfig); cfg.Token != "super-secret" {
		t.Errorf("stored token = %q, want super-secret", cfg.Token)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"token", true},
		{"bot_token", true},
		{"password", true},
		{"client_secret", true},
		{"url", false},
		{"username", false},
	}
	for _, tt := range tests {
		if got := isSecretKey(tt.key); got != tt.want {
			t.Errorf("isSecretKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

// ─── Notifiers ─────────────────────────────────────────────────────

func TestBroadcast(t *testing.T) {
	env := testServer(t)
	tok := testToken(t, auth.RoleOperator)

	if w := env.do(t, http.MethodPost, "/api/v1/notifiers/broadcast", tok, map[string]any{"message": "hi"}); w.Code != http.StatusNotFound {
		t.Errorf("broadcast without notifiers = %d, want %d", w.Code, http.StatusNotFound)
	}

	for _, id := range []string{"n-1", "n-2"} {
		if err := env.stores.Entity(adapter.CategoryNotifier).Save(context.Background(), &adapter.Entity{
			ID: id, Name: id, AdapterType: adapter.TypeDummy,
		}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	w := env.do(t, http.MethodPost, "/api/v1/notifiers/broadcast", tok, map[string]any{
		"title": "surplus", "message": "miners on",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["sent"] != float64(2) || resp["failed"] != float64(0) {
		t.Errorf("sent/failed = %v/%v, want 2/0", resp["sent"], resp["failed"])
	}

	w = env.do(t, http.MethodPost, "/api/v1/notifiers/broadcast", tok, map[string]any{
		"message": "only one", "notifier_ids": []string{"n-2", "missing"},
	})
	if resp := decodeResponse(t, w); resp["sent"] != float64(1) {
		t.Errorf("sent = %v, want 1", resp["sent"])
	}

	if w := env.do(t, http.MethodPost, "/api/v1/notifiers/broadcast", tok, map[string]any{"title": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("broadcast without message = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTestNotifier(t *testing.T) {
	env := testServer(t)
	if err := env.stores.Entity(adapter.CategoryNotifier).Save(context.Background(), &adapter.Entity{
		ID: "n-1", Name: "log", AdapterType: adapter.TypeDummy,
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tok := testToken(t, auth.RoleOperator)

	if w := env.do(t, http.MethodPost, "/api/v1/notifiers/n-1/test", tok, nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/api/v1/notifiers/nope/test", tok, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown notifier = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Forecasts & trackers ──────────────────────────────────────────

func TestHomeForecast(t *testing.T) {
	env := testServer(t)
	if err := env.stores.Entity(adapter.CategoryHomeForecastProvider).Save(context.Background(), &adapter.Entity{
		ID: "hf-1", Name: "house", AdapterType: adapter.TypeDummy,
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tok := testToken(t, auth.RoleViewer)

	w := env.do(t, http.MethodGet, "/api/v1/home-forecasts/hf-1?hours=5", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	points, ok := resp["points"].([]any)
	if !ok || len(points) != 5 {
		t.Errorf("points = %v, want 5 entries", resp["points"])
	}

	for _, hours := range []string{"0", "-1", "169", "abc"} {
		if w := env.do(t, http.MethodGet, "/api/v1/home-forecasts/hf-1?hours="+hours, tok, nil); w.Code != http.StatusBadRequest {
			t.Errorf("hours=%s status = %d, want %d", hours, w.Code, http.StatusBadRequest)
		}
	}
}

func TestTracker(t *testing.T) {
	env := testServer(t)
	if err := env.stores.Entity(adapter.CategoryPerformanceTracker).Save(context.Background(), &adapter.Entity{
		ID: "pt-1", Name: "pool", AdapterType: adapter.TypeDummy,
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/performance-trackers/pt-1/hashrate", testToken(t, auth.RoleViewer), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("hashrate status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/performance-trackers/pt-1/rewards?limit=5", testToken(t, auth.RoleViewer), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rewards status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// The simulated tracker has no storage behind it.
	w = env.do(t, http.MethodPost, "/api/v1/performance-trackers/pt-1/rewards", testToken(t, auth.RoleOperator), map[string]any{
		"miner_id": "m-1", "amount": 1200,
	})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("record reward status = %d, want %d", w.Code, http.StatusNotImplemented)
	}
}

// ─── Rules ─────────────────────────────────────────────────────────

func TestRules_Evaluate(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	admin := testToken(t, auth.RoleAdmin)

	w := env.do(t, http.MethodPut, "/api/v1/rules/r-1", admin, map[string]any{
		"name":       "always",
		"priority":   10,
		"enabled":    true,
		"conditions": map[string]any{"field": "energy_state.production", "operator": "gte", "value": 0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put rule status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/rules/evaluate", testToken(t, auth.RoleViewer), map[string]any{
		"energy_source_id": "src-1",
		"miner_id":         "m-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["matched"] != true {
		t.Errorf("matched = %v, want true", resp["matched"])
	}
	rule, ok := resp["rule"].(map[string]any)
	if !ok || rule["id"] != "r-1" {
		t.Errorf("rule = %v, want r-1", resp["rule"])
	}
}

func TestUnits_CRUDAndEvaluate(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	admin := testToken(t, auth.RoleAdmin)
	viewer := testToken(t, auth.RoleViewer)

	w := env.do(t, http.MethodPut, "/api/v1/units/u-1", admin, map[string]any{
		"name":             "garage",
		"enabled":          true,
		"energy_source_id": "src-1",
		"target_miner_ids": []string{"m-1", "m-1", ""},
		"notifier_ids":     []string{},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put unit status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/units/u-1", viewer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get unit status = %d: %s", w.Code, w.Body.String())
	}
	if miners, _ := decodeResponse(t, w)["target_miner_ids"].([]any); len(miners) != 1 || miners[0] != "m-1" {
		t.Errorf("target_miner_ids = %v, want [m-1]", miners)
	}

	w = env.do(t, http.MethodPut, "/api/v1/rules/r-1", admin, map[string]any{
		"name":    "source and miner",
		"enabled": true,
		"conditions": map[string]any{"all_of": []any{
			map[string]any{"field": "energy_state.production", "operator": "gte", "value": 0},
			map[string]any{"field": "miner.status", "operator": "eq", "value": "off"},
		}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put rule status = %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/rules/evaluate", viewer, map[string]any{"unit_id": "u-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["matched"] != true || resp["unit_id"] != "u-1" {
		t.Errorf("evaluate = matched %v, unit %v; want true, u-1", resp["matched"], resp["unit_id"])
	}

	w = env.do(t, http.MethodPost, "/api/v1/rules/evaluate", viewer, map[string]any{"unit_id": "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("evaluate missing unit status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = env.do(t, http.MethodGet, "/api/v1/units?enabled=true", viewer, nil)
	if got := decodeResponse(t, w)["count"]; got != float64(1) {
		t.Errorf("enabled units count = %v, want 1", got)
	}

	if w = env.do(t, http.MethodDelete, "/api/v1/units/u-1", viewer, nil); w.Code != http.StatusForbidden {
		t.Errorf("viewer delete status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if w = env.do(t, http.MethodDelete, "/api/v1/units/u-1", admin, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w = env.do(t, http.MethodGet, "/api/v1/units/u-1", viewer, nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted unit status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRules_EvaluateNoContext(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/v1/rules/evaluate", testToken(t, auth.RoleViewer), map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp := decodeResponse(t, w); resp["matched"] != false {
		t.Errorf("matched = %v, want false", resp["matched"])
	}

	w = env.do(t, http.MethodPost, "/api/v1/rules/evaluate", testToken(t, auth.RoleViewer), map[string]any{
		"energy_source_id": "missing",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown source status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestPutRule_Invalid(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPut, "/api/v1/rules/r-1", testToken(t, auth.RoleAdmin), map[string]any{
		"name":       "bad",
		"enabled":    true,
		"conditions": map[string]any{"field": "miner.status", "operator": "approximately", "value": "on"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

// ─── Registry ──────────────────────────────────────────────────────

func TestRegistryEndpoints(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	admin := testToken(t, auth.RoleAdmin)

	env.do(t, http.MethodGet, "/api/v1/energy-sources/src-1/state", admin, nil)
	env.do(t, http.MethodGet, "/api/v1/miners/m-1/status", admin, nil)

	w := env.do(t, http.MethodGet, "/api/v1/registry/stats", admin, nil)
	if resp := decodeResponse(t, w); resp["adapters"] != float64(2) {
		t.Errorf("adapters = %v, want 2", resp["adapters"])
	}

	w = env.do(t, http.MethodDelete, "/api/v1/registry/adapters/mon-1", admin, nil)
	if resp := decodeResponse(t, w); resp["removed"] != true {
		t.Errorf("removed = %v, want true", resp["removed"])
	}
	w = env.do(t, http.MethodDelete, "/api/v1/registry/adapters/mon-1", admin, nil)
	if resp := decodeResponse(t, w); resp["removed"] != false {
		t.Errorf("second remove = %v, want false", resp["removed"])
	}

	w = env.do(t, http.MethodDelete, "/api/v1/registry/adapters", admin, nil)
	if resp := decodeResponse(t, w); resp["cleared"] != float64(1) {
		t.Errorf("cleared = %v, want 1", resp["cleared"])
	}

	w = env.do(t, http.MethodDelete, "/api/v1/registry/services", admin, nil)
	if resp := decodeResponse(t, w); resp["cleared"] != float64(0) {
		t.Errorf("services cleared = %v, want 0", resp["cleared"])
	}
}

func TestRegistryFactories(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/v1/registry/factories", testToken(t, auth.RoleAdmin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeResponse(t, w)
	if resp["count"] != float64(16) {
		t.Errorf("count = %v, want 16", resp["count"])
	}
	factories, ok := resp["factories"].(map[string]any)
	if !ok {
		t.Fatalf("factories = %T, want object", resp["factories"])
	}
	if _, ok := factories[string(adapter.CategoryExternalService)]; !ok {
		t.Error("external_service factories missing")
	}
}

func TestSystemStatus(t *testing.T) {
	env := testServer(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/api/v1/system/status", testToken(t, auth.RoleAdmin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var status SystemStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.Database == nil {
		t.Error("database stats missing")
	}
	if status.Entities["miner"] != 1 || status.Entities[string(adapter.CategoryEnergyMonitor)] != 1 {
		t.Errorf("entities = %v, want one miner and one energy monitor", status.Entities)
	}
}

func TestAudit_RecordsMutations(t *testing.T) {
	env := testServer(t)
	env.seed(t)
	admin := testToken(t, auth.RoleAdmin)

	if w := env.do(t, http.MethodPost, "/api/v1/miners/m-1/start", testToken(t, auth.RoleOperator), nil); w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPut, "/api/v1/adapters/energy_monitor/mon-1", admin, map[string]any{
		"name":         "simulated monitor",
		"adapter_type": "dummy_solar",
		"config":       map[string]any{"max_consumption_power": 1500},
	}); w.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodGet, "/api/v1/audit", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d: %s", w.Code, w.Body.String())
	}
	var page audit.Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("audit total = %d, want 2", page.Total)
	}

	w = env.do(t, http.MethodGet, "/api/v1/audit?entity_type=miner", admin, nil)
	page = audit.Page{}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("miner entries = %d, want 1", page.Total)
	}
	entry := page.Entries[0]
	if entry.Action != audit.ActionCommand || entry.EntityID != "m-1" || entry.Actor != "tester" {
		t.Errorf("entry = %+v, want command on m-1 by tester", entry)
	}
	if entry.Details["command"] != "start" {
		t.Errorf("details = %v, want command start", entry.Details)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/audit?limit=0", admin, nil); w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/audit", testToken(t, auth.RoleOperator), nil); w.Code != http.StatusForbidden {
		t.Errorf("operator status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────

func TestTicketStore(t *testing.T) {
	ts := newTicketStore()
	ticket := ts.issue(&auth.Claims{Role: auth.RoleViewer})

	entry, ok := ts.redeem(ticket)
	if !ok {
		t.Fatal("ticket should be valid on first use")
	}
	if entry.role != auth.RoleViewer {
		t.Errorf("role = %q, want viewer", entry.role)
	}
	if _, ok := ts.redeem(ticket); ok {
		t.Error("ticket should not be valid on second use")
	}

	ts.mu.Lock()
	ts.tickets["old"] = ticketEntry{expiresAt: time.Now().Add(-time.Second)}
	ts.mu.Unlock()
	if _, ok := ts.redeem("old"); ok {
		t.Error("expired ticket should not be valid")
	}
}

func TestWebSocket_RequiresTicket(t *testing.T) {
	env := testServer(t)

	for _, path := range []string{"/api/v1/ws", "/api/v1/ws?ticket=bogus"} {
		if w := env.do(t, http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want %d", path, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestWebSocket_AdapterEvents(t *testing.T) {
	env := testServer(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", testToken(t, auth.RoleViewer), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ticket status = %d, want %d", w.Code, http.StatusOK)
	}
	ticket, _ := decodeResponse(t, w)["ticket"].(string) //nolint:errcheck // checked below
	if ticket == "" {
		t.Fatal("empty ticket")
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?ticket=" + ticket
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	if err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelAdapterUpdated}},
	}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("ReadJSON(ack) error = %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "1" {
		t.Fatalf("ack = %+v, want response to 1", ack)
	}

	w = env.do(t, http.MethodPut, "/api/v1/adapters/notifier/n-1", testToken(t, auth.RoleAdmin), map[string]any{
		"name": "log", "adapter_type": "dummy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, want %d", w.Code, http.StatusOK)
	}

	var ev WSMessage
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON(event) error = %v", err)
	}
	if ev.Type != WSTypeEvent || ev.EventType != ChannelAdapterUpdated {
		t.Fatalf("event = %+v, want %s", ev, ChannelAdapterUpdated)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["id"] != "n-1" || payload["action"] != "saved" {
		t.Errorf("payload = %v, want n-1 saved", ev.Payload)
	}
}

func TestHub_Broadcast(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	subscribed := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelRegistryInvalidated: {}},
	}
	other := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelMinerStatus: {}},
	}
	hub.Register(subscribed)
	hub.Register(other)
	if hub.ClientCount() != 2 {
		t.Fatalf("client count = %d, want 2", hub.ClientCount())
	}

	hub.Broadcast(ChannelRegistryInvalidated, map[string]any{"cache": "adapters", "entries": 3})

	select {
	case msg := <-subscribed.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelRegistryInvalidated {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelRegistryInvalidated)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}

	select {
	case <-other.send:
		t.Error("unsubscribed client should not receive message")
	default:
	}

	hub.Unregister(subscribed)
	hub.Unregister(subscribed)
	if hub.ClientCount() != 1 {
		t.Errorf("after unregister count = %d, want 1", hub.ClientCount())
	}
}

func TestHub_UnknownChannel(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	hub := NewHub(config.WebSocketConfig{}, log)
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}

	client.handleMessage([]byte(`{"type":"subscribe","id":"7","payload":{"channels":["device.state_changed"]}}`))

	var msg WSMessage
	if err := json.Unmarshal(<-client.send, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != WSTypeError || msg.ID != "7" {
		t.Errorf("reply = %+v, want error for 7", msg)
	}
	if client.isSubscribed("device.state_changed") {
		t.Error("client subscribed to an unknown channel")
	}
}
