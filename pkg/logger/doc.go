// Package logger provides structured logging for imgprobe.
//
// It wraps zerolog behind a small interface so that lookups, the HTTP
// client and the token resolver can log with fields without depending on
// zerolog directly. Log output always goes to stderr because stdout is
// reserved for lookup reports. An optional rotating file sink is backed by
// lumberjack.
//
// Basic usage:
//
//	err := logger.Initialize(&config.LoggingConfig{
//	    Level: "info",
//	    File:  "/var/log/imgprobe.log",
//	})
//
//	logger.Info("probe started")
//	logger.WithField("slug", "air-jordan-1").Info("fetching page")
//	logger.WithError(err).Error("token resolution failed")
//
// Tests can use NewTestLogger to capture messages, or NewNopLogger to
// discard them.
package logger
