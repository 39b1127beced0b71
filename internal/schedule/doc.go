// Package schedule decides which learning items are drilled on a given day
// and in what order.
//
// Selection is a pure function of the master item list and the day number:
// an item is reviewed on every day that lies a macro interval after its
// origin day, and new on its origin day. Inside one track, repeated items are
// spread apart with micro interval interleaving.
package schedule
