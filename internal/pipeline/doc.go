// Package pipeline drives day builds: it finds the days whose files are
// missing, builds each one in a staging directory and commits or rolls it
// back as a whole.
package pipeline
