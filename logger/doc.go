// Package logger is the process wide structured logger, a thin layer over
// zerolog taking alternating key/value pairs.
package logger
