package viz

import (
	"github.com/scholarlyreport/scholarly/internal/network"
)

// URLFunc returns the page linked from a node, or "" for none.
type URLFunc func(id string) string

// FromNetwork converts a coauthorship graph into render data. Group graphs
// keep the group name as label; author graphs use the author name.
func FromNetwork(g *network.Graph, nodeType string, url URLFunc) *GraphData {
	data := &GraphData{
		Nodes: make([]Node, 0, len(g.Nodes)),
		Edges: make([]Edge, 0, len(g.Links)),
	}

	for _, n := range g.Nodes {
		data.Nodes = append(data.Nodes, newNode(n, nodeType, url))
	}
	for _, l := range g.Links {
		data.Edges = append(data.Edges, Edge{
			Source:       l.Source,
			Target:       l.Target,
			Weight:       l.Weight,
			Publications: l.Publications,
		})
	}
	return data
}

func newNode(n network.Node, nodeType string, url URLFunc) Node {
	label := n.Name
	if label == "" {
		label = n.ID
	}
	node := Node{
		ID:           n.ID,
		Type:         nodeType,
		Label:        label,
		Group:        n.Group,
		Publications: n.Publications,
		Citations:    n.Citations,
		HIndex:       n.HIndex,
	}
	if url != nil {
		node.URL = url(n.ID)
	}
	return node
}
