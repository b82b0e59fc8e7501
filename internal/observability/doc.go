// Package observability groups the logging and metrics infrastructure
// shared by the ingestion worker and the generation pipeline.
//
// Subpackages:
//   - logging: slog helpers with consistent handler configuration
//   - metrics: Prometheus registry and domain recorders
package observability
