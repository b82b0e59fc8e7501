// Package resilience holds fault tolerance building blocks. The
// circuitbreaker subpackage wraps github.com/sony/gobreaker with
// per-dependency configurations for the LLM providers, feed fetching,
// content extraction and the database.
package resilience
