package model

import "fmt"

// LayoutError reports children that do not fit their enclosing range. It is
// fatal for the artifact being generated; independent artifacts continue.
type LayoutError struct {
	Node Node
	Err  error
}

func (e *LayoutError) Error() string {
	info := e.Node.Info()
	return fmt.Sprintf("%s %s (%s): %v", e.Node.Kind(), info.Name, info.Src, e.Err)
}

func (e *LayoutError) Unwrap() error { return e.Err }

// ShapeError reports a structural combination the generator has no rule for,
// such as a multi-word register in a C struct or an instance array wrapping
// more than one instance.
type ShapeError struct {
	Node Node
	Msg  string
}

func (e *ShapeError) Error() string {
	info := e.Node.Info()
	return fmt.Sprintf("%s %s (%s): %s", e.Node.Kind(), info.Name, info.Src, e.Msg)
}
