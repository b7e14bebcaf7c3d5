package sandbox

import "time"

// Recorder receives execution telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ExecutionStarted(language string)
	ExecutionFinished(language, outcome string, duration time.Duration)
	ProcessKilled(reason string)
}

type nopRecorder struct{}

func (nopRecorder) ExecutionStarted(string) {}

func (nopRecorder) ExecutionFinished(string, string, time.Duration) {}

func (nopRecorder) ProcessKilled(string) {}
