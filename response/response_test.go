package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/coderunner/sandbox"
)

func TestFromOutcome(t *testing.T) {
	tests := []struct {
		name     string
		outcome  sandbox.Outcome
		status   int
		expected string
	}{
		{
			name:     "Success",
			outcome:  sandbox.Success("hello\n"),
			status:   http.StatusOK,
			expected: `{"output":"hello\n"}`,
		},
		{
			name:     "EmptyOutput",
			outcome:  sandbox.Success(""),
			status:   http.StatusOK,
			expected: `{"output":""}`,
		},
		{
			name:     "Validation",
			outcome:  sandbox.ValidationFailure("Code and language are required"),
			status:   http.StatusBadRequest,
			expected: `{"error":"Code and language are required","details":null}`,
		},
		{
			name:     "Compilation",
			outcome:  sandbox.CompilationFailure("main.c:1: error"),
			status:   http.StatusUnprocessableEntity,
			expected: `{"error":"Compilation failed","details":"main.c:1: error"}`,
		},
		{
			name:     "Runtime",
			outcome:  sandbox.RuntimeFailure("ZeroDivisionError"),
			status:   http.StatusFailedDependency,
			expected: `{"error":"Runtime error","details":"ZeroDivisionError"}`,
		},
		{
			name:     "Timeout",
			outcome:  sandbox.Timeout(),
			status:   http.StatusTeapot,
			expected: `{"error":"Execution timed out","details":"Process exceeded time limit"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := FromOutcome(tt.outcome)
			assert.Equal(t, tt.status, reply.Status)
			assert.Equal(t, tt.status == http.StatusOK, reply.OK())

			data, err := json.Marshal(reply.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestFromError(t *testing.T) {
	reply := FromError(errors.New("failed to write source: open /tmp/coderunner/python-abc/main_abc.py: permission denied"))

	assert.Equal(t, http.StatusInternalServerError, reply.Status)
	body, ok := reply.Body.(ErrorBody)
	require.True(t, ok)
	assert.Equal(t, MsgInternal, body.Error)
	require.NotNil(t, body.Details)
	assert.NotContains(t, *body.Details, "/tmp/")
	assert.Contains(t, *body.Details, "main_abc.py")
}
