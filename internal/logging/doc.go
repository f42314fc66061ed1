// Package logging builds the slog logger used by the binaries.
package logging
