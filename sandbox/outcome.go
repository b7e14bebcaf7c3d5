package sandbox

// OutcomeKind enumerates the ways an execution can resolve.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeCompilationFailure
	OutcomeRuntimeFailure
	OutcomeTimeout
	OutcomeValidationFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeCompilationFailure:
		return "compilation_failure"
	case OutcomeRuntimeFailure:
		return "runtime_failure"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeValidationFailure:
		return "validation_failure"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one execution. Exactly one of Output,
// Details or Reason is meaningful, depending on Kind.
type Outcome struct {
	Kind    OutcomeKind
	Output  string // stdout of a successful run
	Details string // diagnostics of a compilation or runtime failure
	Reason  string // why validation rejected the request
}

// Success wraps the captured stdout of a successful run.
func Success(output string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Output: output}
}

// CompilationFailure wraps compiler diagnostics.
func CompilationFailure(details string) Outcome {
	return Outcome{Kind: OutcomeCompilationFailure, Details: details}
}

// RuntimeFailure wraps diagnostics from a failed run.
func RuntimeFailure(details string) Outcome {
	return Outcome{Kind: OutcomeRuntimeFailure, Details: details}
}

// Timeout reports a process killed by the wall-clock timer.
func Timeout() Outcome {
	return Outcome{Kind: OutcomeTimeout}
}

// ValidationFailure reports a rejected request.
func ValidationFailure(reason string) Outcome {
	return Outcome{Kind: OutcomeValidationFailure, Reason: reason}
}
