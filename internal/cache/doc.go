// Package cache provides the content-addressed store for synthesized audio.
//
// Entries live in two tiers: raw synthesis output keyed without speed, and
// speed-rendered audio keyed with it. Each tier is backed by a persistent
// zstd-compressed disk cache and mirrored in an in-memory LRU for the run.
package cache
