// Package app wires configuration into stores, identity backends and
// managers for the binaries.
package app
