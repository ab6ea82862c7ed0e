// Package summary records training scalars such as losses and error rates
// into an Arrow IPC file with columns tag, step, value and wall_time.
package summary
