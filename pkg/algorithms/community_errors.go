package algorithms

import (
	"context"
	"errors"
)

var (
	// ErrInvalidGraph wraps every graph construction failure.
	ErrInvalidGraph = errors.New("invalid graph")
	// ErrInvalidWeight is returned for negative or non-finite edge weights.
	ErrInvalidWeight = errors.New("invalid edge weight")
	// ErrInvalidNode is returned for edges referencing ids outside [0, N).
	ErrInvalidNode = errors.New("invalid node id")
	// ErrUndefinedModularity is returned when the graph has zero total weight.
	ErrUndefinedModularity = errors.New("modularity undefined for graph with zero total weight")
	// ErrExceededPassBound is returned when local moves did not converge
	// within the configured number of passes.
	ErrExceededPassBound = errors.New("local move optimization exceeded pass bound")
	// ErrInvalidOptions is returned for out-of-range clustering options.
	ErrInvalidOptions = errors.New("invalid clustering options")
)

// Error kind names used in reports, persisted runs and API responses.
const (
	KindInvalidWeight       = "InvalidWeight"
	KindInvalidNode         = "InvalidNode"
	KindInvalidGraph        = "InvalidGraph"
	KindUndefinedModularity = "UndefinedModularity"
	KindExceededPassBound   = "ExceededPassBound"
	KindInvalidOptions      = "InvalidOptions"
	KindCanceled            = "Canceled"
	KindUnknown             = "Unknown"
)

// ErrorKind maps err to its taxonomy name. The most specific kind wins.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidWeight):
		return KindInvalidWeight
	case errors.Is(err, ErrInvalidNode):
		return KindInvalidNode
	case errors.Is(err, ErrInvalidGraph):
		return KindInvalidGraph
	case errors.Is(err, ErrUndefinedModularity):
		return KindUndefinedModularity
	case errors.Is(err, ErrExceededPassBound):
		return KindExceededPassBound
	case errors.Is(err, ErrInvalidOptions):
		return KindInvalidOptions
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
