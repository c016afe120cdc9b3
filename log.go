package cmap

import "go.uber.org/zap"

// logMigrationStart logs, at Debug level, that a cooperative migration has
// been claimed by the calling goroutine. Per spec §5 this must never sit on
// the hot path for ordinary Emplace/Get/Update/Remove calls — it only fires
// once per table generation, from the single goroutine that won the
// migration claim (see cmap_migration.go).
func logMigrationStart(l *zap.Logger, oldLen, newLen uintptr) {
	l.Debug("cmap: migration started",
		zap.Uint64("old_length", uint64(oldLen)),
		zap.Uint64("new_length", uint64(newLen)),
	)
}

func logMigrationDone(l *zap.Logger, oldLen, newLen uintptr, forwarded int64) {
	l.Debug("cmap: migration completed",
		zap.Uint64("old_length", uint64(oldLen)),
		zap.Uint64("new_length", uint64(newLen)),
		zap.Int64("slots_forwarded", forwarded),
	)
}

func logInvalidConfiguration(l *zap.Logger, reason string) {
	l.Warn("cmap: rejecting invalid configuration", zap.String("reason", reason))
}

func logHardwareUnsupported(l *zap.Logger) {
	l.Warn("cmap: constructing DenseMap without a usable 128-bit group compare")
}
