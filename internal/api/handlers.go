package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// testNotificationTitle is the title of notifications sent by test endpoints.
const testNotificationTitle = "Edge Mining test"

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
// On failure it writes a 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "request body is required")
			return false
		}
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// invalidateAdapters drops cached adapters built for ids and announces
// each one that was cached. Empty ids are skipped.
func (s *Server) invalidateAdapters(ids ...string) int {
	removed := 0
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s.registry.RemoveAdapter(id) {
			removed++
			s.publishEvent(ChannelRegistryInvalidated, map[string]any{
				"cache": "adapters", "id": id, "entries": 1,
			})
		}
	}
	return removed
}
