// Package metrics exposes pasty's operational counters in the Prometheus
// text exposition format, built directly from client_model metric families
// and encoded with expfmt.
package metrics
