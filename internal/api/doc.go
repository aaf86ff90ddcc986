// Package api implements the HTTP JSON boundary for pasty.
//
// Routes:
//   - POST /api/v1/texts       — save a text, returns {id, expires_at}
//   - GET  /api/v1/texts/{id}  — retrieve a text, 404 when absent or expired
//   - GET  /api/v1/count       — current number of live texts
//   - GET  /api/v1/health      — status, live count, expiration window
//   - GET  /ping               — rate-limited liveness probe
//
// Boundary concerns live here and nowhere deeper: the content length limit,
// the per-IP fixed-window rate limit, and client IP extraction from
// CF-Connecting-IP / X-Forwarded-For / X-Real-IP.
package api
