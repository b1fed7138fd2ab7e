package flows

import "sort"

// GraphEdge is one transition of a flow.
type GraphEdge struct {
	From   string `json:"from"`
	Action string `json:"action"`
	To     string `json:"to"`
}

// Graph describes the static shape of a flow.
type Graph struct {
	Start     string              `json:"start"`
	Nodes     []string            `json:"nodes"`
	Edges     []GraphEdge         `json:"edges"`
	Listeners map[string][]string `json:"listeners,omitempty"`
}

// Graph returns the nodes and transitions of the flow in a stable order.
func (f *Flow) Graph() Graph {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	g := Graph{
		Start: f.start.Name(),
		Nodes: make([]string, 0, len(f.nodes)),
		Edges: []GraphEdge{},
	}
	for name := range f.nodes {
		g.Nodes = append(g.Nodes, name)
	}
	sort.Strings(g.Nodes)

	for from, actions := range f.transitions {
		for action, to := range actions {
			g.Edges = append(g.Edges, GraphEdge{From: from, Action: action, To: to})
		}
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].Action < g.Edges[j].Action
	})

	if len(f.signalListeners) > 0 {
		g.Listeners = make(map[string][]string, len(f.signalListeners))
		for signal, listeners := range f.signalListeners {
			for _, listener := range listeners {
				g.Listeners[signal] = append(g.Listeners[signal], listener.Name())
			}
		}
	}
	return g
}
