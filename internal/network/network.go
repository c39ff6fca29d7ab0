// Package network builds coauthorship graphs over registry authors and their
// research groups.
package network

import (
	"sort"

	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/store"
)

// Node is an author or research group in a coauthorship graph.
type Node struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Group        string `json:"group,omitempty"`
	Publications int    `json:"publications"`
	Citations    int    `json:"citations"`
	HIndex       int    `json:"h_index"`
}

// Graph is an undirected weighted graph. Links are unique per unordered
// pair, never self-loops, and sorted by (source, target).
type Graph struct {
	Nodes []Node                       `json:"nodes"`
	Links []reference.CoauthorshipEdge `json:"links"`

	byPair map[pair]int
}

type pair struct{ a, b string }

func orderedPair(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{x, y}
}

func newGraph() *Graph {
	return &Graph{
		Nodes:  []Node{},
		Links:  []reference.CoauthorshipEdge{},
		byPair: make(map[pair]int),
	}
}

// connect adds one shared publication to every pair of distinct ids.
func (g *Graph) connect(ids []string, fp string) {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				continue
			}
			p := orderedPair(ids[i], ids[j])
			idx, ok := g.byPair[p]
			if !ok {
				g.Links = append(g.Links, reference.CoauthorshipEdge{Source: p.a, Target: p.b})
				idx = len(g.Links) - 1
				g.byPair[p] = idx
			}
			g.Links[idx].Weight++
			g.Links[idx].Publications = append(g.Links[idx].Publications, fp)
		}
	}
}

func (g *Graph) finish() {
	sort.Slice(g.Links, func(i, j int) bool {
		if g.Links[i].Source != g.Links[j].Source {
			return g.Links[i].Source < g.Links[j].Source
		}
		return g.Links[i].Target < g.Links[j].Target
	})
	for i, l := range g.Links {
		g.byPair[pair{l.Source, l.Target}] = i
	}
}

// Build returns the author-level graph: one node per registry author and one
// link per pair of authors sharing at least one publication.
func Build(s *store.Store) *Graph {
	g := newGraph()
	reg := s.Registry()

	for _, a := range reg.Authors() {
		n := Node{
			ID:           a.ID,
			Name:         a.Name(),
			Publications: len(s.AuthorFingerprints(a.ID)),
			Citations:    a.LifetimeCitations,
			HIndex:       a.LifetimeHIndex,
		}
		if group, ok := a.Group(); ok {
			n.Group = group
		}
		g.Nodes = append(g.Nodes, n)
	}

	for _, p := range s.Publications() {
		if p.Members.Len() < 2 {
			continue
		}
		g.connect(p.Members.Sorted(), p.Fingerprint)
	}
	g.finish()
	return g
}

// BuildGroups returns the group-level graph. A publication links every pair
// of distinct research groups among its member authors. Authors without a
// group are ignored.
func BuildGroups(s *store.Store) *Graph {
	g := newGraph()
	reg := s.Registry()

	groups := reg.Groups()
	nodeIdx := make(map[string]int, len(groups))
	for _, grp := range groups {
		nodeIdx[grp.Name] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{ID: grp.Name, Name: grp.Name})
	}

	for _, p := range s.Publications() {
		seen := make(map[string]bool)
		var names []string
		for _, id := range p.Members.Sorted() {
			if grp, ok := reg.GroupOf(id); ok && !seen[grp] {
				seen[grp] = true
				names = append(names, grp)
			}
		}
		for _, name := range names {
			n := &g.Nodes[nodeIdx[name]]
			n.Publications++
			n.Citations += p.Citations
		}
		if len(names) > 1 {
			sort.Strings(names)
			g.connect(names, p.Fingerprint)
		}
	}
	g.finish()
	return g
}

// Edge returns the link between a and b, in either order.
func (g *Graph) Edge(a, b string) (reference.CoauthorshipEdge, bool) {
	idx, ok := g.byPair[orderedPair(a, b)]
	if !ok {
		return reference.CoauthorshipEdge{}, false
	}
	return g.Links[idx], true
}

// Neighbor is an adjacent node with the weight of the connecting link.
type Neighbor struct {
	ID           string   `json:"id"`
	Weight       int      `json:"weight"`
	Publications []string `json:"publications"`
}

// Neighbors returns the nodes adjacent to id, heaviest link first, ties by id.
func (g *Graph) Neighbors(id string) []Neighbor {
	var out []Neighbor
	for _, l := range g.Links {
		switch id {
		case l.Source:
			out = append(out, Neighbor{ID: l.Target, Weight: l.Weight, Publications: l.Publications})
		case l.Target:
			out = append(out, Neighbor{ID: l.Source, Weight: l.Weight, Publications: l.Publications})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// TotalWeight returns the sum of link weights.
func (g *Graph) TotalWeight() int {
	total := 0
	for _, l := range g.Links {
		total += l.Weight
	}
	return total
}
