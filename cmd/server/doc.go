// Package main is the entry point for the coderunner server.
//
// The server compiles and runs short, untrusted programs in one of several
// languages and reports the output or a classified failure. It serves a JSON
// HTTP API (with MCP streamable HTTP mounted alongside) or, with
// server.transport=stdio, an MCP server on stdin/stdout.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main
