// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the sandbox executor as the execute_code tool.
// It uses the mark3labs/mcp-go library to handle the protocol details. Tool
// results carry the same JSON payloads as the HTTP API and are flagged as
// errors whenever the execution did not succeed.
//
// The server is reachable over stdio or, mounted by the httpapi package, over
// streamable HTTP.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, executor)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or mount server.HTTPHandler()
package mcpserver
