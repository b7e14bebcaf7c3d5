// Package sandbox provides secure code execution capabilities.
//
// The sandbox package compiles (when the language needs it) and runs untrusted
// source code on the local host under a wall-clock limit. A request flows
// through the validator, a per-request workspace, the compile/run pipeline and
// the error sanitizer; the workspace is reclaimed on every exit path.
//
// Process trees are terminated as a unit when the timer fires: Linux and other
// Unix hosts signal the process group (Linux also sweeps descendants found in
// /proc), Windows enumerates the tree with taskkill.
//
// Usage:
//
//	executor, err := sandbox.NewLocalExecutor(logger, cfg)
//	outcome, err := executor.Execute(ctx, sandbox.ExecuteRequest{
//	    Language: "python",
//	    Code:     "print('Hello, World!')",
//	})
package sandbox
