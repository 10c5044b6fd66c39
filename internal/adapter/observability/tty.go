package observability

import (
	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal. This is how the
// logger distinguishes an interactive session (console output) from a piped
// or CI invocation (JSON output).
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
