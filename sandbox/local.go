package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/logger"
)

// SandboxExecutor defines the interface for sandbox execution
type SandboxExecutor interface {
	// Execute returns the classified outcome of req. A non-nil error is an
	// internal failure that fits none of the outcome kinds.
	Execute(ctx context.Context, req ExecuteRequest) (Outcome, error)
}

// LocalExecutor implements SandboxExecutor by running toolchains on the host.
// It assumes the deployment already restricts filesystem and network access.
type LocalExecutor struct {
	logger     *zap.Logger
	limits     Limits
	registry   *Registry
	workspaces *WorkspaceManager
	pipeline   *Pipeline
	runner     ProcessRunner
	fs         FileSystem
	recorder   Recorder
}

// LocalExecutorOption defines a functional option for LocalExecutor
type LocalExecutorOption func(*LocalExecutor)

// WithLocalProcessRunner sets the ProcessRunner for LocalExecutor
func WithLocalProcessRunner(runner ProcessRunner) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.runner = runner
	}
}

// WithLocalFileSystem sets the FileSystem for LocalExecutor
func WithLocalFileSystem(fs FileSystem) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.fs = fs
	}
}

// WithLocalRecorder sets the Recorder for LocalExecutor
func WithLocalRecorder(rec Recorder) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.recorder = rec
	}
}

// NewLocalExecutor creates a new LocalExecutor with default implementations and optional interfaces
func NewLocalExecutor(logger *zap.Logger, cfg *config.Config, opts ...LocalExecutorOption) (*LocalExecutor, error) {
	executor := &LocalExecutor{
		logger: logger,
		limits: Limits{
			MaxCodeLen:  cfg.Sandbox.MaxCodeLen,
			MaxInputLen: cfg.Sandbox.MaxInputLen,
		},
		fs:       RealFileSystem{},
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(executor)
	}

	if executor.runner == nil {
		executor.runner = NewLocalProcessRunner(logger,
			WithMaxOutputBytes(cfg.Sandbox.MaxOutputBytes),
			WithKillGrace(cfg.GetKillGrace()),
			WithProcessRecorder(executor.recorder),
		)
	}

	registry, err := NewRegistry(cfg.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to build language registry: %w", err)
	}
	executor.registry = registry

	workspaces, err := NewWorkspaceManager(cfg.Sandbox.WorkspaceRoot, executor.fs)
	if err != nil {
		return nil, err
	}
	executor.workspaces = workspaces

	executor.pipeline = NewPipeline(logger, executor.runner, executor.fs, cfg.GetTimeout(), cfg.Sandbox.StderrIsFailure)

	return executor, nil
}

// Registry exposes the language table the executor dispatches on.
func (l *LocalExecutor) Registry() *Registry {
	return l.registry
}

// Execute validates req, writes the workspace, compiles and runs it, and
// always reclaims the workspace before returning.
func (l *LocalExecutor) Execute(ctx context.Context, req ExecuteRequest) (outcome Outcome, err error) {
	start := time.Now()

	lang, err := ValidateRequest(req, l.limits)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			l.logger.Info("execution request rejected",
				zap.String("field", vErr.Field),
				zap.String("reason", vErr.Reason))
			label := req.Language
			if _, known := ParseLanguage(label); !known {
				label = "unsupported"
			}
			l.recorder.ExecutionFinished(label, OutcomeValidationFailure.String(), time.Since(start))
			return ValidationFailure(vErr.Reason), nil
		}
		return Outcome{}, err
	}

	profile, ok := l.registry.Profile(lang)
	if !ok {
		return Outcome{}, fmt.Errorf("no profile registered for language %s", lang)
	}

	l.recorder.ExecutionStarted(string(lang))
	defer func() {
		label := outcome.Kind.String()
		rec := recover()
		if err != nil || rec != nil {
			label = "internal_error"
		}
		l.recorder.ExecutionFinished(string(lang), label, time.Since(start))
		if rec != nil {
			panic(rec)
		}
	}()

	ws, err := l.workspaces.Write(profile, req.Code)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to prepare workspace: %w", err)
	}
	log := logger.ForExecution(l.logger, string(lang), ws.Token)

	// Runs after the pipeline has returned, which is after any kill was issued.
	defer func() {
		if cleanupErr := l.workspaces.Cleanup(profile, ws); cleanupErr != nil {
			log.Warn("workspace cleanup failed", zap.Error(cleanupErr))
		}
	}()

	log.Info("executing code in sandbox",
		zap.Bool("compiled", profile.Compiled()),
		zap.Bool("has_input", req.Input != nil))

	outcome, err = l.pipeline.Run(ctx, profile, ws, req.Input)
	if err != nil {
		log.Error("sandbox execution failed", zap.Error(err))
		return Outcome{}, err
	}

	switch outcome.Kind {
	case OutcomeCompilationFailure, OutcomeRuntimeFailure:
		outcome.Details = Sanitize(outcome.Details)
	}

	log.Info("code execution completed",
		zap.Stringer("outcome", outcome.Kind),
		zap.Duration("duration", time.Since(start)))

	return outcome, nil
}
