// Package audit records who changed registry configuration or commanded a
// miner, and when.
//
// Entries are written by the API after a mutation succeeds and are read
// back through GET /api/v1/audit. The trail is append-only; nothing in the
// application updates or deletes entries.
package audit
