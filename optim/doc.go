// Package optim holds trainable parameters, the Adam optimizer and global
// gradient norm clipping.
package optim
