package response

import (
	"net/http"

	"github.com/isdmx/coderunner/sandbox"
)

// StatusTimeout is returned when the run exceeded its wall-clock budget.
const StatusTimeout = http.StatusTeapot

// Error messages of the failure rows.
const (
	MsgCompilationFailed = "Compilation failed"
	MsgRuntimeError      = "Runtime error"
	MsgTimedOut          = "Execution timed out"
	MsgTimeLimit         = "Process exceeded time limit"
	MsgInternal          = "Internal Server Error"
	MsgInvalidBody       = "Invalid request body"
)

// SuccessBody is the payload of a 200 response.
type SuccessBody struct {
	Output string `json:"output"`
}

// ErrorBody is the payload of every failure. Details is null for validation failures.
type ErrorBody struct {
	Error   string  `json:"error"`
	Details *string `json:"details"`
}

// Reply is a status code paired with the body to encode.
type Reply struct {
	Status int
	Body   any
}

// OK reports whether the reply carries program output.
func (r Reply) OK() bool {
	return r.Status == http.StatusOK
}

// FromOutcome maps o to its row of the taxonomy. Details of compilation and
// runtime failures are expected to be sanitized already.
func FromOutcome(o sandbox.Outcome) Reply {
	switch o.Kind {
	case sandbox.OutcomeSuccess:
		return Reply{Status: http.StatusOK, Body: SuccessBody{Output: o.Output}}
	case sandbox.OutcomeValidationFailure:
		return Failure(http.StatusBadRequest, o.Reason, nil)
	case sandbox.OutcomeCompilationFailure:
		return Failure(http.StatusUnprocessableEntity, MsgCompilationFailed, &o.Details)
	case sandbox.OutcomeRuntimeFailure:
		return Failure(http.StatusFailedDependency, MsgRuntimeError, &o.Details)
	case sandbox.OutcomeTimeout:
		details := MsgTimeLimit
		return Failure(StatusTimeout, MsgTimedOut, &details)
	default:
		details := "unclassified outcome " + o.Kind.String()
		return Failure(http.StatusInternalServerError, MsgInternal, &details)
	}
}

// FromError maps an unclassified failure to the 500 row. The message is
// sanitized, so err may carry host paths.
func FromError(err error) Reply {
	details := sandbox.Sanitize(err.Error())
	return Failure(http.StatusInternalServerError, MsgInternal, &details)
}

// Failure builds an arbitrary error reply.
func Failure(status int, msg string, details *string) Reply {
	return Reply{Status: status, Body: ErrorBody{Error: msg, Details: details}}
}
