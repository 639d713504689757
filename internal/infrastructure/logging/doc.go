// Package logging provides structured logging for plantline.
//
// It wraps Go's standard log/slog package so every component logs with the
// same handler, level and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("run started", "run_id", id, "commands", len(cmds))
//
// Components accept a narrow Logger interface (Debug/Info/Warn/Error) so
// *Logger can be passed anywhere a logger is optional.
package logging
