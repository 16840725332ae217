package template

import "fmt"

// SyntaxError reports a malformed template. Pos is the byte offset into the
// template text where the problem was detected.
type SyntaxError struct {
	Pos    int
	Detail string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at position %d: %s", e.Pos, e.Detail)
}

// RuntimeError reports a failure while rendering a compiled template. A
// template accepted by Compile only fails at runtime when a capability it
// references was withheld from the render context, or when the function
// library itself is broken.
type RuntimeError struct {
	Detail string
}

func (e *RuntimeError) Error() string {
	return "template runtime error: " + e.Detail
}

func syntaxErrorf(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Detail: fmt.Sprintf(format, args...)}
}

func runtimeErrorf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Detail: fmt.Sprintf(format, args...)}
}
