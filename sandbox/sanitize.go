package sandbox

import (
	"path"
	"regexp"
	"strings"
)

var (
	// JavaScript/Java "at fn (file:1:2)", Python "File "x", line 3", Go "goroutine 1 [running]:"
	// and the indented source/location lines that follow Go and Python frames.
	stackFrameLines = []*regexp.Regexp{
		regexp.MustCompile(`^\s+at\s+\S.*$`),
		regexp.MustCompile(`^\s*File\s+".*",\s+line\s+\d+.*$`),
		regexp.MustCompile(`^\s*Traceback \(most recent call last\):\s*$`),
		regexp.MustCompile(`^goroutine\s+\d+\s+\[.*\]:\s*$`),
		regexp.MustCompile(`^\s+\S+\.go:\d+(\s+\+0x[0-9a-fA-F]+)?\s*$`),
		regexp.MustCompile(`^\s*\.\.\.\s*\d+\s+more\s*$`),
	}

	fileScheme  = regexp.MustCompile(`(?i)\bfile:///?([A-Za-z]:[\\/])?`)
	windowsPath = regexp.MustCompile(`\b[A-Za-z]:[\\/](?:[^\\/\s:"'<>|*?]+[\\/])*[^\\/\s:"'<>|*?]*`)
	memAddress  = regexp.MustCompile(`[\[(<]\s*0x[0-9a-fA-F]+\s*[\])>]`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)

	// Backticks quote paths in rustc and Go diagnostics.
	posixPath = regexp.MustCompile(`(^|[\s"'(\[=,<` + "`" + `])((?:/[^/\s:"'()\[\],<>` + "`" + `]+)+/?)`)
)

// Sanitize strips host-identifying detail from diagnostic text: stack frames,
// absolute paths (reduced to their base name) and bracketed memory addresses.
// It is meant for error channels only, never for program output.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isStackFrame(line) {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")

	// node prints ES module locations as file:///abs/path.mjs:1; keep the
	// drive of a Windows URL so the path rules below still see it.
	text = fileScheme.ReplaceAllStringFunc(text, func(m string) string {
		sub := fileScheme.FindStringSubmatch(m)
		if sub[1] != "" {
			return sub[1]
		}
		return "/"
	})
	text = windowsPath.ReplaceAllStringFunc(text, func(p string) string {
		return baseName(strings.ReplaceAll(p, `\`, "/"))
	})
	text = posixPath.ReplaceAllStringFunc(text, func(m string) string {
		sub := posixPath.FindStringSubmatch(m)
		return sub[1] + baseName(sub[2])
	})
	text = memAddress.ReplaceAllString(text, "")

	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func isStackFrame(line string) bool {
	for _, re := range stackFrameLines {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func baseName(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
