// Package viz renders coauthorship networks with Cytoscape.js.
package viz

// Node types.
const (
	NodeAuthor = "author"
	NodeGroup  = "group"
)

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents an author or research group in the graph.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "author" or "group"

	// Display
	Label string `json:"label"`
	Group string `json:"group,omitempty"`
	URL   string `json:"url,omitempty"` // Page opened on click

	// Sizing and colour
	Publications int `json:"publications"`
	Citations    int `json:"citations"`
	HIndex       int `json:"hIndex"`
}

// Edge represents shared publications between two nodes.
type Edge struct {
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Weight       int      `json:"weight"`
	Publications []string `json:"publications,omitempty"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// MaxHIndex returns the largest h-index among the nodes.
func (g *GraphData) MaxHIndex() int {
	max := 0
	for _, n := range g.Nodes {
		if n.HIndex > max {
			max = n.HIndex
		}
	}
	return max
}
