// Package auth issues and verifies the operator bearer tokens that guard the
// HTTP API.
//
// There is no user store. Tokens are HS256 JWTs signed with
// security.jwt.secret and carry a role:
//   - viewer: read energy, forecast, miner and tracker data
//   - operator: viewer plus miner commands and notifier tests
//   - admin: operator plus adapter configuration and cache control
//
// Tokens are minted with `edgemining token` and checked on every request
// without a database hit.
package auth
