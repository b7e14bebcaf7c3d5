// Package httpapi serves the code runner over HTTP.
//
// Routes:
//
//	POST /api/execute    run {code, language, input}
//	GET  /api/languages  supported languages and whether they compile
//	GET  /healthz        liveness
//	GET  /metrics        Prometheus exposition
//	     /mcp            MCP streamable HTTP (path configurable)
//
// Execute replies with 200 {output} or a failure status with {error, details};
// the mapping lives in the response package.
package httpapi
