// Package config decodes and validates daydrill settings and turns them
// into the option structs of the other packages.
package config
