package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth is the default limit on nested object fields.
const DefaultMaxDepth = 5

// checkDepth parses query and rejects it when nesting exceeds maxDepth.
// Parse errors are left to the executor, which reports them properly.
func checkDepth(query string, maxDepth int) error {
	if maxDepth <= 0 {
		return nil
	}

	document, err := parser.Parse(parser.ParseParams{
		Source: query,
	})
	if err != nil {
		return nil
	}

	if depth := calculateQueryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth of %d", depth, maxDepth)
	}
	return nil
}

// calculateQueryDepth calculates the maximum depth of a GraphQL query
func calculateQueryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, definition := range document.Definitions {
		if frag, ok := definition.(*ast.FragmentDefinition); ok {
			fragments[frag.Name.Value] = frag
		}
	}

	maxDepth := 0
	for _, definition := range document.Definitions {
		if op, ok := definition.(*ast.OperationDefinition); ok {
			if depth := selectionSetDepth(op.SelectionSet, 0, fragments, map[string]bool{}); depth > maxDepth {
				maxDepth = depth
			}
		}
	}
	return maxDepth
}

// selectionSetDepth counts object fields only; leaves add no depth.
func selectionSetDepth(set *ast.SelectionSet, depth int, fragments map[string]*ast.FragmentDefinition, seen map[string]bool) int {
	if set == nil {
		return depth
	}

	maxDepth := depth
	for _, selection := range set.Selections {
		var d int
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") || sel.SelectionSet == nil {
				continue
			}
			d = selectionSetDepth(sel.SelectionSet, depth+1, fragments, seen)
		case *ast.InlineFragment:
			d = selectionSetDepth(sel.SelectionSet, depth, fragments, seen)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := fragments[name]
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			d = selectionSetDepth(frag.SelectionSet, depth, fragments, seen)
			delete(seen, name)
		}
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}
