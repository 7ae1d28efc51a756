package graph

// weakComponents returns the connected components of g with edge direction
// ignored. Components are listed in order of their first node and each
// component lists its nodes in BFS order.
func weakComponents(g *Graph) [][]string {
	adj := undirectedAdjacency(g)

	visited := make(map[string]bool, len(g.order))
	var components [][]string

	for _, start := range g.order {
		if visited[start] {
			continue
		}
		var comp []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			comp = append(comp, node)
			for _, next := range adj[node] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}

// undirectedAdjacency lists, for every node, its successors followed by its
// predecessors.
func undirectedAdjacency(g *Graph) map[string][]string {
	adj := make(map[string][]string, len(g.order))
	for _, src := range g.order {
		for _, tgt := range g.succ[src] {
			adj[src] = append(adj[src], tgt)
			if tgt != src {
				adj[tgt] = append(adj[tgt], src)
			}
		}
	}
	return adj
}

// strongComponents returns the strongly connected components of g using
// Tarjan's algorithm. Nodes that reach no cycle form singleton components.
func strongComponents(g *Graph) [][]string {
	t := tarjan{
		g:       g,
		index:   make(map[string]int, len(g.order)),
		lowlink: make(map[string]int, len(g.order)),
		onStack: make(map[string]bool, len(g.order)),
	}
	for _, id := range g.order {
		if _, seen := t.index[id]; !seen {
			t.visit(id)
		}
	}
	return t.components
}

type tarjan struct {
	g          *Graph
	next       int
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	components [][]string
}

func (t *tarjan) visit(v string) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.succ[v] {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}

	var comp []string
	for {
		n := len(t.stack) - 1
		w := t.stack[n]
		t.stack = t.stack[:n]
		t.onStack[w] = false
		comp = append(comp, w)
		if w == v {
			break
		}
	}
	t.components = append(t.components, comp)
}
