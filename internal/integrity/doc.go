// Package integrity checks that persisted tracks play for as long as the
// compiler said they would.
package integrity
