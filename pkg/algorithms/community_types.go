package algorithms

// Community represents a detected community
type Community struct {
	ID             int
	Nodes          []int
	Size           int
	InternalWeight float64 // Weight of edges with both endpoints inside, self-loops once
	Strength       float64 // Summed strength of members
	Density        float64 // Internal non-loop weight over possible member pairs
}

// CommunityDetectionResult contains detected communities
type CommunityDetectionResult struct {
	Communities   []*Community
	Modularity    float64 // Quality measure of the partitioning
	NodeCommunity []int   // Node ID -> Community ID
}

// LouvainLevel is the record of one level of the multilevel scheme.
// Membership is indexed by original node id.
type LouvainLevel struct {
	Level          int     `json:"level"`
	Modularity     float64 `json:"modularity"`
	Membership     []int   `json:"membership"`
	NodeCount      int     `json:"node_count"`      // Size of the graph the level optimized
	CommunityCount int     `json:"community_count"` // Size of the aggregated graph it produced
	Passes         int     `json:"passes"`
	Moves          int     `json:"moves"`
}

// LouvainResult holds every recorded level and the selected best one.
type LouvainResult struct {
	BestLevel      int            `json:"best_level"`
	BestModularity float64        `json:"best_modularity"`
	BestMembership []int          `json:"best_membership"`
	Levels         []LouvainLevel `json:"levels"`
}

// LevelPartition is the outcome of local moves on one level's graph.
// Membership is indexed by the level's node ids and renumbered to [0, K).
type LevelPartition struct {
	Membership     []int
	CommunityCount int
	Modularity     float64
	Passes         int
	Moves          int
}

// Best returns the selected level record.
func (r *LouvainResult) Best() LouvainLevel {
	return r.Levels[r.BestLevel]
}

// Communities groups the best membership into communities of g, which must
// be the graph the result was computed from.
func (r *LouvainResult) Communities(g *WeightedGraph) (*CommunityDetectionResult, error) {
	return GroupCommunities(g, r.BestMembership)
}

// selectBest picks the level with maximum modularity. A later level must beat
// the current best by more than epsilon, so ties keep the earliest level.
func (r *LouvainResult) selectBest(epsilon float64) {
	best := 0
	for i := 1; i < len(r.Levels); i++ {
		if r.Levels[i].Modularity > r.Levels[best].Modularity+epsilon {
			best = i
		}
	}
	r.BestLevel = best
	r.BestModularity = r.Levels[best].Modularity
	r.BestMembership = r.Levels[best].Membership
}
