package main

import "log/slog"

// mapVerbosity mirrors the geth-style 0-5 verbosity scale used elsewhere
// in this codebase, collapsed onto slog's four levels.
func mapVerbosity(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
