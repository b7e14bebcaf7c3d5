package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty",
			input:    "",
			expected: "",
		},
		{
			name:     "PlainMessageUntouched",
			input:    "error: expected ';' before '}' token",
			expected: "error: expected ';' before '}' token",
		},
		{
			name:     "GccDiagnostic",
			input:    "/tmp/coderunner/c-abc/main_abc.c:3:5: error: unknown type name 'nt'",
			expected: "main_abc.c:3:5: error: unknown type name 'nt'",
		},
		{
			name: "PythonTraceback",
			input: "Traceback (most recent call last):\n" +
				"  File \"/tmp/coderunner/python-abc/main_abc.py\", line 2, in <module>\n" +
				"    print(1/0)\n" +
				"ZeroDivisionError: division by zero\n",
			expected: "print(1/0)\nZeroDivisionError: division by zero",
		},
		{
			name: "NodeStack",
			input: "TypeError: x is not a function\n" +
				"    at Object.<anonymous> (/srv/app/main_abc.js:1:1)\n" +
				"    at Module._compile (node:internal/modules/cjs/loader:1256:14)\n",
			expected: "TypeError: x is not a function",
		},
		{
			name: "JavaStack",
			input: "Exception in thread \"main\" java.lang.ArithmeticException: / by zero\n" +
				"\tat Main.main(Main.java:3)\n" +
				"\t... 2 more\n",
			expected: "Exception in thread \"main\" java.lang.ArithmeticException: / by zero",
		},
		{
			name: "GoPanic",
			input: "panic: runtime error: index out of range [5] with length 3\n\n" +
				"goroutine 1 [running]:\n" +
				"main.main()\n" +
				"\t/tmp/coderunner/go-abc/main_abc.go:5 +0x1d\n" +
				"exit status 2\n",
			expected: "panic: runtime error: index out of range [5] with length 3\n\nmain.main()\nexit status 2",
		},
		{
			name:     "WindowsPath",
			input:    `error at C:\Users\runner\AppData\Local\Temp\main_abc.c:1`,
			expected: "error at main_abc.c:1",
		},
		{
			name:     "NodeModuleURL",
			input:    "file:///tmp/coderunner/typescript-abc/main_abc.mjs:1\nthrow new Error('x')",
			expected: "main_abc.mjs:1\nthrow new Error('x')",
		},
		{
			name:     "WindowsModuleURL",
			input:    "file:///C:/Users/runner/coderunner/main_abc.mjs:2",
			expected: "main_abc.mjs:2",
		},
		{
			name:     "BacktickQuotedPath",
			input:    "error: couldn't read `/tmp/coderunner/rust-abc/main_abc.rs`: No such file",
			expected: "error: couldn't read `main_abc.rs`: No such file",
		},
		{
			name:     "MemoryAddress",
			input:    "signal SIGSEGV [0x7ffd5e8c] fault",
			expected: "signal SIGSEGV  fault",
		},
		{
			name:     "RelativePathKept",
			input:    "main.c:1: warning",
			expected: "main.c:1: warning",
		},
		{
			name:     "BlankLinesCollapsed",
			input:    "a\n\n\n\n\nb",
			expected: "a\n\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.NotContains(t, got, "/tmp/")
			assert.NotContains(t, got, "coderunner/")
			assert.NotContains(t, got, "file:")
		})
	}
}
