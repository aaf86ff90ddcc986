// Package config loads the pasty server configuration from config.yaml.
//
// Config fields:
//   - HTTPPort                  — port for the HTTP API and WebSocket hub (default 8080)
//   - DBPath                    — SQLite database file (default "pasty.db")
//   - ExpirationHours           — text entry lifetime, fixed per process (default 24)
//   - Limits.MaxContentLength   — boundary limit on submitted text (default 2000)
//   - Limits.RatePerMinute      — per-IP request budget (default 30)
//
// Load(path) applies defaults before unmarshalling, then validates.
//
// Watch(ctx, path, onChange) re-loads the file on every write and hands the
// new Config to onChange. Only the Limits section is meant to change at
// runtime; the server applies the rest on restart.
package config
