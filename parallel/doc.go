// Package parallel contains the bounded ForEach loop used to process batch
// rows concurrently and an order preserving Hasher for results produced
// out of order.
package parallel
