package api

import (
	"net/http"

	"github.com/nerrad567/edge-mining-core/internal/audit"
)

// recordAudit appends to the audit trail after a successful mutation.
// A write failure is logged and does not fail the request.
func (s *Server) recordAudit(r *http.Request, action audit.Action, entityType, entityID string, details map[string]any) {
	if s.auditLog == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		entry.Actor = claims.Subject
	}
	if err := s.auditLog.Record(r.Context(), entry); err != nil {
		s.logger.Warn("failed to record audit entry",
			"action", string(action),
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// handleListAudit returns the audit trail, newest first.
//
// Query parameters:
//   - action, entity_type, entity_id: exact-match filters
//   - limit: page size (default 50, max 200)
//   - offset: entries to skip
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "audit trail not configured")
		return
	}
	limit, ok := intQuery(w, r, "limit", audit.DefaultLimit, 1, audit.MaxLimit)
	if !ok {
		return
	}
	offset, ok := intQuery(w, r, "offset", 0, 0, 1<<30)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := s.auditLog.List(r.Context(), audit.Filter{
		Action:     audit.Action(q.Get("action")),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
