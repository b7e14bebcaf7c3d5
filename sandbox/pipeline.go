package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Pipeline sequences the optional compile step and the run step of one workspace.
type Pipeline struct {
	logger          *zap.Logger
	runner          ProcessRunner
	fs              FileSystem
	timeout         time.Duration
	stderrIsFailure bool
}

// NewPipeline wires a pipeline around runner.
func NewPipeline(logger *zap.Logger, runner ProcessRunner, fs FileSystem, timeout time.Duration, stderrIsFailure bool) *Pipeline {
	return &Pipeline{
		logger:          logger,
		runner:          runner,
		fs:              fs,
		timeout:         timeout,
		stderrIsFailure: stderrIsFailure,
	}
}

// Run compiles ws when p requires it and then runs it with input on stdin.
// Taxonomy failures come back as an Outcome; a non-nil error is an internal failure.
func (p *Pipeline) Run(ctx context.Context, prof Profile, ws *Workspace, input *string) (Outcome, error) {
	if prof.Compiled() {
		outcome, ok, err := p.compile(ctx, prof, ws)
		if err != nil || !ok {
			return outcome, err
		}

		if err := prof.PreRun(p.fs, ws); err != nil {
			return Outcome{}, fmt.Errorf("failed to prepare compiled output: %w", err)
		}
	}

	res, err := p.runner.Run(ctx, Command{
		Args:    prof.RunArgs(ws),
		Dir:     ws.Dir,
		Env:     prof.Env(),
		Stdin:   input,
		Timeout: p.timeout,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("run step: %w", err)
	}

	p.logger.Debug("run step finished",
		zap.String("language", string(prof.Language())),
		zap.String("token", ws.Token),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration))

	switch {
	case res.TimedOut:
		return Timeout(), nil
	case res.ExitCode != 0:
		details := diagnostics(res)
		if strings.TrimSpace(details) == "" {
			details = fmt.Sprintf("Process exited with code %d", res.ExitCode)
		}
		return RuntimeFailure(details), nil
	case p.stderrIsFailure && strings.TrimSpace(res.Stderr) != "":
		return RuntimeFailure(res.Stderr), nil
	default:
		return Success(res.Stdout), nil
	}
}

// compile reports ok=false together with the outcome to return when the build
// did not produce a runnable artifact.
func (p *Pipeline) compile(ctx context.Context, prof Profile, ws *Workspace) (Outcome, bool, error) {
	// stdin is never forwarded to the compiler.
	res, err := p.runner.Run(ctx, Command{
		Args:    prof.CompileArgs(ws),
		Dir:     ws.Dir,
		Env:     prof.Env(),
		Timeout: p.timeout,
	})
	if err != nil {
		return Outcome{}, false, fmt.Errorf("compile step: %w", err)
	}

	p.logger.Debug("compile step finished",
		zap.String("language", string(prof.Language())),
		zap.String("token", ws.Token),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration))

	if res.TimedOut {
		return Timeout(), false, nil
	}
	if res.ExitCode != 0 {
		return CompilationFailure(diagnostics(res)), false, nil
	}

	exists, err := p.fs.FileExists(prof.OutputPath(ws))
	if err != nil {
		return Outcome{}, false, fmt.Errorf("failed to check compiled output: %w", err)
	}
	if !exists {
		details := diagnostics(res)
		if details == "" {
			details = "Compiler exited successfully but produced no output"
		}
		return CompilationFailure(details), false, nil
	}

	return Outcome{}, true, nil
}

// diagnostics prefers stderr but falls back to stdout for toolchains that
// report errors there (tsc, for one).
func diagnostics(res ProcessResult) string {
	if strings.TrimSpace(res.Stderr) != "" {
		return res.Stderr
	}
	return res.Stdout
}
