package algorithms

import (
	"container/list"
)

// ConnectedComponents finds all connected components in the graph.
// Components are numbered in order of their smallest node id.
func ConnectedComponents(g *WeightedGraph) (*CommunityDetectionResult, error) {
	if g == nil {
		return nil, ErrInvalidGraph
	}

	n := g.NodeCount()
	visited := make([]bool, n)
	nodeCommunity := make([]int, n)
	communities := make([]*Community, 0)
	communityID := 0

	// BFS to find each component
	for startNode := 0; startNode < n; startNode++ {
		if visited[startNode] {
			continue
		}

		component := &Community{
			ID:    communityID,
			Nodes: make([]int, 0),
		}

		queue := list.New()
		queue.PushBack(startNode)
		visited[startNode] = true

		for queue.Len() > 0 {
			node, ok := queue.Remove(queue.Front()).(int)
			if !ok {
				continue
			}
			component.Nodes = append(component.Nodes, node)
			component.Strength += g.Strength(node)
			nodeCommunity[node] = communityID

			for _, nbr := range g.Neighbors(node) {
				if nbr.Node == node {
					component.InternalWeight += nbr.Weight
					continue
				}
				// Each non-loop edge is seen from both ends
				component.InternalWeight += nbr.Weight / 2
				if !visited[nbr.Node] {
					visited[nbr.Node] = true
					queue.PushBack(nbr.Node)
				}
			}
		}

		component.Size = len(component.Nodes)
		if component.Size > 1 {
			loops := 0.0
			for _, node := range component.Nodes {
				loops += g.SelfLoop(node)
			}
			possible := float64(component.Size*(component.Size-1)) / 2
			component.Density = (component.InternalWeight - loops) / possible
		}
		communities = append(communities, component)
		communityID++
	}

	result := &CommunityDetectionResult{
		Communities:   communities,
		NodeCommunity: nodeCommunity,
	}
	if g.TotalWeight() > 0 {
		q, err := Modularity(g, nodeCommunity)
		if err != nil {
			return nil, err
		}
		result.Modularity = q
	}
	return result, nil
}
