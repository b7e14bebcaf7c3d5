// Package response maps sandbox outcomes onto the status/payload taxonomy that
// callers see.
//
// Both the HTTP API and the MCP tool build their replies here, so a program
// that fails to compile looks the same to every client: status 422 with
// {"error": "Compilation failed", "details": "..."}.
package response
