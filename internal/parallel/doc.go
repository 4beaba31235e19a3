// Package parallel bounds the fan-out of per-entry pipeline work.
package parallel
