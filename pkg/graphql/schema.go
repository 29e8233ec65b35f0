// Package graphql exposes stored clustering runs through a GraphQL schema.
package graphql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/snapshot"
	"github.com/dd0wney/cluso-louvain/pkg/store"
)

// RunSource is the read side of a run store.
type RunSource interface {
	GetRun(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// ClusterGroup is one community of a level, as exposed by the schema.
type ClusterGroup struct {
	ID      int
	Members []int
	Names   []string
}

// NewSchema builds the query schema over source.
//
//	run(id: ID!): Run
//	runs(limit: Int): [RunSummary]
func NewSchema(source RunSource, limits *LimitConfig) (graphql.Schema, error) {
	if limits == nil {
		limits = DefaultLimitConfig()
	}
	if err := ValidateLimitConfig(limits); err != nil {
		return graphql.Schema{}, err
	}

	levelType := createLevelType()
	clusterType := createClusterType()
	runType := createRunType(levelType, clusterType)
	summaryType := createSummaryType()

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"run": &graphql.Field{
				Type: runType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw, _ := p.Args["id"].(string)
					id, err := uuid.Parse(raw)
					if err != nil {
						return nil, fmt.Errorf("invalid run id %q", raw)
					}
					return source.GetRun(p.Context, id)
				},
			},
			"runs": &graphql.Field{
				Type: graphql.NewList(summaryType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: -1},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					limit, _ := p.Args["limit"].(int)
					limit = applyLimit(limit, limits)
					if limit == 0 {
						return []store.RunSummary{}, nil
					}
					return source.ListRuns(p.Context, limit)
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

func createLevelType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Level",
		Fields: graphql.Fields{
			"level":          levelField(func(l algorithms.LouvainLevel) any { return l.Level }, graphql.Int),
			"modularity":     levelField(func(l algorithms.LouvainLevel) any { return l.Modularity }, graphql.Float),
			"nodeCount":      levelField(func(l algorithms.LouvainLevel) any { return l.NodeCount }, graphql.Int),
			"communityCount": levelField(func(l algorithms.LouvainLevel) any { return l.CommunityCount }, graphql.Int),
			"passes":         levelField(func(l algorithms.LouvainLevel) any { return l.Passes }, graphql.Int),
			"moves":          levelField(func(l algorithms.LouvainLevel) any { return l.Moves }, graphql.Int),
			"membership":     levelField(func(l algorithms.LouvainLevel) any { return l.Membership }, graphql.NewList(graphql.Int)),
		},
	})
}

func levelField(get func(algorithms.LouvainLevel) any, typ graphql.Output) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if level, ok := p.Source.(algorithms.LouvainLevel); ok {
				return get(level), nil
			}
			return nil, nil
		},
	}
}

func createClusterType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Community",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(ClusterGroup).ID, nil
				},
			},
			"size": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return len(p.Source.(ClusterGroup).Members), nil
				},
			},
			"members": &graphql.Field{
				Type: graphql.NewList(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(ClusterGroup).Members, nil
				},
			},
			"names": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(ClusterGroup).Names, nil
				},
			},
		},
	})
}

func createRunType(levelType, clusterType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Run",
		Fields: graphql.Fields{
			"id":             runField(func(s *snapshot.Snapshot) any { return s.RunID.String() }, graphql.NewNonNull(graphql.ID)),
			"fingerprint":    runField(func(s *snapshot.Snapshot) any { return s.Fingerprint }, graphql.String),
			"createdAt":      runField(func(s *snapshot.Snapshot) any { return s.CreatedAt.Format(time.RFC3339Nano) }, graphql.String),
			"nodes":          runField(func(s *snapshot.Snapshot) any { return s.Nodes }, graphql.Int),
			"edges":          runField(func(s *snapshot.Snapshot) any { return s.Edges }, graphql.Int),
			"bestLevel":      runField(func(s *snapshot.Snapshot) any { return s.Result.BestLevel }, graphql.Int),
			"bestModularity": runField(func(s *snapshot.Snapshot) any { return s.Result.BestModularity }, graphql.Float),
			"levels":         runField(func(s *snapshot.Snapshot) any { return s.Result.Levels }, graphql.NewList(levelType)),
			"communities": &graphql.Field{
				Type: graphql.NewList(clusterType),
				Args: graphql.FieldConfigArgument{
					"level": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					snap, ok := p.Source.(*snapshot.Snapshot)
					if !ok {
						return nil, nil
					}
					level := snap.Result.BestLevel
					if v, ok := p.Args["level"].(int); ok {
						level = v
					}
					return groupLevel(snap, level)
				},
			},
		},
	})
}

func runField(get func(*snapshot.Snapshot) any, typ graphql.Output) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			if snap, ok := p.Source.(*snapshot.Snapshot); ok {
				return get(snap), nil
			}
			return nil, nil
		},
	}
}

func createSummaryType() *graphql.Object {
	field := func(get func(store.RunSummary) any, typ graphql.Output) *graphql.Field {
		return &graphql.Field{
			Type: typ,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if s, ok := p.Source.(store.RunSummary); ok {
					return get(s), nil
				}
				return nil, nil
			},
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "RunSummary",
		Fields: graphql.Fields{
			"id":             field(func(s store.RunSummary) any { return s.RunID.String() }, graphql.NewNonNull(graphql.ID)),
			"fingerprint":    field(func(s store.RunSummary) any { return s.Fingerprint }, graphql.String),
			"createdAt":      field(func(s store.RunSummary) any { return s.CreatedAt.Format(time.RFC3339Nano) }, graphql.String),
			"nodes":          field(func(s store.RunSummary) any { return s.Nodes }, graphql.Int),
			"edges":          field(func(s store.RunSummary) any { return s.Edges }, graphql.Int),
			"bestLevel":      field(func(s store.RunSummary) any { return s.BestLevel }, graphql.Int),
			"bestModularity": field(func(s store.RunSummary) any { return s.BestModularity }, graphql.Float),
			"levelCount":     field(func(s store.RunSummary) any { return s.LevelCount }, graphql.Int),
		},
	})
}

// groupLevel splits a recorded level's membership into communities.
func groupLevel(snap *snapshot.Snapshot, level int) ([]ClusterGroup, error) {
	if level < 0 || level >= len(snap.Result.Levels) {
		return nil, fmt.Errorf("level %d out of range [0, %d)", level, len(snap.Result.Levels))
	}

	lv := snap.Result.Levels[level]
	groups := make([]ClusterGroup, lv.CommunityCount)
	for c := range groups {
		groups[c].ID = c
	}
	for node, c := range lv.Membership {
		if c < 0 || c >= len(groups) {
			return nil, fmt.Errorf("level %d: community id %d out of range", level, c)
		}
		groups[c].Members = append(groups[c].Members, node)
		if node < len(snap.Names) {
			groups[c].Names = append(groups[c].Names, snap.Names[node])
		}
	}
	return groups, nil
}
