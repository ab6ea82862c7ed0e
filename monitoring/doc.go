// Package monitoring serves Prometheus metrics and a JSON health endpoint
// over HTTP and the standard gRPC health service while a run is active.
package monitoring
