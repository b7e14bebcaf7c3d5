package sandbox

import (
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
)

// NewExecutor creates the sandbox executor used by the transports, reporting
// telemetry to recorder.
func NewExecutor(logger *zap.Logger, cfg *config.Config, recorder Recorder) (SandboxExecutor, error) {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	executor, err := NewLocalExecutor(logger, cfg, WithLocalRecorder(recorder))
	if err != nil {
		return nil, err
	}
	return executor, nil
}
