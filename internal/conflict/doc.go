// Package conflict splits discovered tasks into fresh work and tasks whose
// output already exists, and applies the caller's overwrite decisions.
package conflict
