// Package metrics exposes training progress as Prometheus collectors
// registered on the default registry.
package metrics
