package stepgraph

import (
	"go.jetify.com/typeid"
)

// NewCheckpointID returns a new unique checkpoint identifier
func NewCheckpointID() string {
	return newID("ckpt")
}

// NewStepID returns a new unique step identifier. Step identifiers are
// supplied by the caller of the tracer; this is a convenience for callers
// that do not have their own.
func NewStepID() string {
	return newID("step")
}

// NewGraphID returns a new unique identifier for a tracked task graph
func NewGraphID() string {
	return newID("graph")
}

func newID(prefix string) string {
	id, err := typeid.WithPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return id.String()
}
