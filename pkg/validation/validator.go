package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxRequestNodes    = 10000000
	MaxInputTextLength = 64 << 20
)

// ErrTooManyNodes is returned when a request's graph exceeds MaxRequestNodes.
var ErrTooManyNodes = errors.New("too many nodes")

func init() {
	validate = validator.New()
}

// EdgeInput is one edge of a cluster request. A nil weight means 1.
type EdgeInput struct {
	From   int      `json:"from" validate:"min=0"`
	To     int      `json:"to" validate:"min=0"`
	Weight *float64 `json:"weight,omitempty" validate:"omitempty,min=0"`
}

// ClusterRequest is a request to cluster a graph given either as edges or
// as edge list text.
type ClusterRequest struct {
	Nodes             int         `json:"nodes,omitempty" validate:"omitempty,min=1"`
	Edges             []EdgeInput `json:"edges,omitempty" validate:"required_without=Text,max=1000000,dive"`
	Text              string      `json:"text,omitempty" validate:"required_without=Edges"`
	Format            string      `json:"format,omitempty" validate:"omitempty,oneof=edgelist ncol"`
	Epsilon           *float64    `json:"epsilon,omitempty" validate:"omitempty,min=0"`
	MaxPassesPerLevel int         `json:"max_passes_per_level,omitempty" validate:"omitempty,min=1,max=100000"`
	Workers           int         `json:"workers,omitempty" validate:"omitempty,min=1,max=256"`
	Persist           bool        `json:"persist,omitempty"`
}

// WeightOrDefault returns the edge weight, defaulting to 1.
func (e EdgeInput) WeightOrDefault() float64 {
	if e.Weight == nil {
		return 1
	}
	return *e.Weight
}

// ValidateClusterRequest validates a cluster request
func ValidateClusterRequest(req *ClusterRequest) error {
	if req == nil {
		return errors.New("cluster request cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if len(req.Edges) > 0 && req.Text != "" {
		return errors.New("Edges: give either edges or text, not both")
	}
	if len(req.Text) > MaxInputTextLength {
		return fmt.Errorf("Text: exceeds maximum length of %d bytes", MaxInputTextLength)
	}
	if err := CheckNodeCount(req.Nodes); err != nil {
		return fmt.Errorf("Nodes: %w", err)
	}
	if req.Epsilon != nil && (math.IsNaN(*req.Epsilon) || math.IsInf(*req.Epsilon, 0)) {
		return errors.New("Epsilon: must be finite")
	}

	for i, e := range req.Edges {
		if e.Weight != nil && (math.IsNaN(*e.Weight) || math.IsInf(*e.Weight, 0)) {
			return fmt.Errorf("Edges: weight of edge %d must be finite", i)
		}
		if e.From >= MaxRequestNodes || e.To >= MaxRequestNodes {
			return fmt.Errorf("Edges: edge %d (%d, %d): %w: ids must be below %d", i, e.From, e.To, ErrTooManyNodes, MaxRequestNodes)
		}
		if req.Nodes > 0 && (e.From >= req.Nodes || e.To >= req.Nodes) {
			return fmt.Errorf("Edges: edge %d (%d, %d) references a node outside [0, %d)", i, e.From, e.To, req.Nodes)
		}
	}

	return nil
}

// CheckNodeCount rejects graphs with more than MaxRequestNodes nodes.
func CheckNodeCount(n int) error {
	if n > MaxRequestNodes {
		return fmt.Errorf("%w: %d exceeds the limit of %d", ErrTooManyNodes, n, MaxRequestNodes)
	}
	return nil
}

// Struct validates any struct by its validate tags, formatting the first
// failure like the request validators do.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required", "required_without":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "url", "hostname_port":
			return fmt.Errorf("%s: must be a valid %s", field, tag)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
