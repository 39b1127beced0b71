// Package compiler assembles a day's drill track for one template. Each
// template is a pattern of role tokens (W1, W2, L1, L2) and explicit
// pauses (SP); every scheduled entry is rendered through that pattern,
// with segments resolved through the synthesis cache.
package compiler
