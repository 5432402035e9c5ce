package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/edge-mining-core/internal/adapter"
)

// SystemStatus is the response of GET /system/status.
type SystemStatus struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeStats   `json:"runtime"`
	WebSocket     WSStats        `json:"websocket"`
	MQTT          *MQTTStats     `json:"mqtt,omitempty"`
	Registry      adapter.Stats  `json:"registry"`
	Database      *DatabaseStats `json:"database,omitempty"`
	Entities      map[string]int `json:"entities"`
}

// RuntimeStats contains Go runtime statistics.
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSStats contains WebSocket hub statistics.
type WSStats struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTStats describes the core broker connection.
type MQTTStats struct {
	Connected bool   `json:"connected"`
	ClientID  string `json:"client_id"`
}

// DatabaseStats contains connection pool statistics.
type DatabaseStats struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleSystemStatus reports process, registry and connection state.
// Entity counts that fail to load are reported as -1.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(s.uptime().Seconds()),
		Runtime: RuntimeStats{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(mem.TotalAlloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSStats{ConnectedClients: s.hub.ClientCount()},
		Registry:  s.registry.Stats(),
		Entities:  make(map[string]int),
	}

	if s.mqtt != nil {
		status.MQTT = &MQTTStats{
			Connected: s.mqtt.IsConnected(),
			ClientID:  s.mqtt.ClientID(),
		}
	}

	if s.db != nil {
		st := s.db.Stats()
		status.Database = &DatabaseStats{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	ctx := r.Context()
	for _, cat := range allCategories() {
		entities, err := s.stores.Entity(cat).List(ctx)
		if err != nil {
			status.Entities[string(cat)] = -1
			continue
		}
		status.Entities[string(cat)] = len(entities)
	}
	if sources, err := s.stores.EnergySources.List(ctx); err == nil {
		status.Entities["energy_source"] = len(sources)
	}
	if miners, err := s.stores.Miners.List(ctx); err == nil {
		status.Entities["miner"] = len(miners)
	}

	writeJSON(w, http.StatusOK, status)
}
