//go:build !linux

package main

import "log/slog"

// SetMaxResources is a no-op outside Linux.
func SetMaxResources(logger *slog.Logger) error {
	logger.Debug("resource limits left unchanged on this platform")
	return nil
}
