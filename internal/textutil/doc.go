// Package textutil turns human-readable titles into filesystem-safe path
// segments.
package textutil
