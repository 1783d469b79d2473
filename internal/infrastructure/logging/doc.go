// Package logging provides structured logging for Motion Core.
//
// It wraps the standard library's log/slog with configuration-driven
// format/level selection and service-wide default fields.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("sequence started", "sequence_id", id)
//
//	engineLog := log.With("component", "playback")
//	engineLog.Debug("step complete", "index", 3)
package logging
