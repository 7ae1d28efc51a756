package graph

// Neighborhood returns the concepts reachable from id within maxDepth hops,
// following edges in either direction. The start node comes first, followed
// by the rest in BFS order. An unknown id or negative depth yields nil.
func (g *Graph) Neighborhood(id string, maxDepth int) []Concept {
	if maxDepth < 0 || !g.HasNode(id) {
		return nil
	}

	adj := undirectedAdjacency(g)

	visited := map[string]bool{id: true}
	found := []string{id}
	queue := []string{id}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, node := range queue {
			for _, nb := range adj[node] {
				if !visited[nb] {
					visited[nb] = true
					found = append(found, nb)
					next = append(next, nb)
				}
			}
		}
		queue = next
	}

	out := make([]Concept, len(found))
	for i, nid := range found {
		out[i] = g.nodes[nid]
	}
	return out
}

// Subgraph returns the graph induced by the given concepts. Unknown ids are
// ignored; node and edge order follow g.
func (g *Graph) Subgraph(concepts []Concept) *Graph {
	keep := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		keep[c.ID] = true
	}

	sub := newGraph()
	for _, nid := range g.order {
		if keep[nid] {
			sub.addNode(g.nodes[nid])
		}
	}
	for _, src := range g.order {
		if !keep[src] {
			continue
		}
		for _, tgt := range g.succ[src] {
			if keep[tgt] {
				sub.addEdge(g.edges[edgeKey{src, tgt}])
			}
		}
	}
	return sub
}
