package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/httpapi"
	"github.com/isdmx/coderunner/logger"
	"github.com/isdmx/coderunner/mcpserver"
	"github.com/isdmx/coderunner/metrics"
	"github.com/isdmx/coderunner/sandbox"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.New,
			logger.NewFromConfig,

			prometheus.NewRegistry,
			fx.Annotate(metrics.New, fx.As(new(sandbox.Recorder))),

			sandbox.NewRegistryFromConfig,
			sandbox.NewExecutor,

			mcpserver.New,
			newHTTPServer,
		),

		fx.Invoke(logConfig, run),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	app.Run()
}

func newHTTPServer(
	cfg *config.Config,
	log *zap.Logger,
	executor sandbox.SandboxExecutor,
	registry *sandbox.Registry,
	reg *prometheus.Registry,
	mcp *mcpserver.MCPServer,
) *httpapi.Server {
	return httpapi.New(cfg, log, executor, registry, httpapi.Params{Metrics: reg, MCP: mcp})
}

// run starts the configured transport and ties it to the fx lifecycle.
func run(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, mcp *mcpserver.MCPServer, srv *httpapi.Server) {
	switch cfg.Server.Transport {
	case "stdio":
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					err := mcp.ServeStdio()
					if err != nil {
						log.Error("MCP stdio server stopped", zap.Error(err))
					}
					// The client closed stdin.
					if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
						log.Error("failed to shut down", zap.Error(shutdownErr))
					}
				}()
				return nil
			},
		})
	default:
		lc.Append(fx.Hook{
			OnStart: srv.Start,
			OnStop:  srv.Stop,
		})
	}
}

func logConfig(cfg *config.Config, log *zap.Logger, registry *sandbox.Registry) {
	langs := registry.Languages()
	names := make([]string, len(langs))
	for i, lang := range langs {
		names[i] = string(lang)
	}

	log.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("server.mcp_path", cfg.Server.MCPPath),
		zap.Int("sandbox.timeout_sec", cfg.Sandbox.TimeoutSec),
		zap.Int("sandbox.kill_grace_ms", cfg.Sandbox.KillGraceMs),
		zap.Int("sandbox.max_code_len", cfg.Sandbox.MaxCodeLen),
		zap.Int("sandbox.max_input_len", cfg.Sandbox.MaxInputLen),
		zap.Int("sandbox.max_output_bytes", cfg.Sandbox.MaxOutputBytes),
		zap.String("sandbox.workspace_root", cfg.Sandbox.WorkspaceRoot),
		zap.Bool("sandbox.stderr_is_failure", cfg.Sandbox.StderrIsFailure),
		zap.Strings("languages", names),
	)
}
