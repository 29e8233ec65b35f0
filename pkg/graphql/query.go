package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// Execute runs query against schema after the depth check.
func Execute(ctx context.Context, schema graphql.Schema, query string, variables map[string]any, maxDepth int) *graphql.Result {
	if err := checkDepth(query, maxDepth); err != nil {
		return &graphql.Result{
			Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)},
		}
	}

	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: variables,
		Context:        ctx,
	})
}
