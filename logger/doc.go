// Package logger provides structured logging capabilities.
//
// The logger package builds the application's zap logger in either
// development (colored console) or production (JSON) mode. Output goes to
// stderr so that the stdio MCP transport owns stdout.
//
// Usage:
//
//	log, err := logger.New("production", "info")
//	if err != nil {
//	    panic(err)
//	}
//	log.Info("execution finished", zap.String("language", "python"))
package logger
