package editor

import (
	"sort"

	"github.com/dukex/flowdesk/pkg/models"
)

// Graph is the read-only view edge policies evaluate against.
type Graph interface {
	Node(id string) (*models.WorkflowNode, bool)
	Successors(id string) []string
	HasEdge(source, target string) bool
}

type nodeEntry struct {
	node *models.WorkflowNode
	seq  uint64
}

type edgeEntry struct {
	edge *models.WorkflowEdge
	seq  uint64
}

// graphStore is an arena of nodes and edges keyed by id. Insertion order is
// kept through a sequence number so removal never shifts a slice, and the
// incident index makes cascade delete proportional to the node's degree.
type graphStore struct {
	nodes    map[string]*nodeEntry
	edges    map[string]*edgeEntry
	incident map[string]map[string]struct{} // node id -> edge ids touching it
	seq      uint64
}

func newGraphStore() *graphStore {
	return &graphStore{
		nodes:    make(map[string]*nodeEntry),
		edges:    make(map[string]*edgeEntry),
		incident: make(map[string]map[string]struct{}),
	}
}

func (g *graphStore) next() uint64 {
	g.seq++

	return g.seq
}

func (g *graphStore) putNode(node *models.WorkflowNode) {
	if entry, ok := g.nodes[node.ID]; ok {
		entry.node = node

		return
	}

	g.nodes[node.ID] = &nodeEntry{node: node, seq: g.next()}
	g.incident[node.ID] = make(map[string]struct{})
}

func (g *graphStore) putEdge(edge *models.WorkflowEdge) {
	if entry, ok := g.edges[edge.ID]; ok {
		g.unlink(entry.edge)
		entry.edge = edge
	} else {
		g.edges[edge.ID] = &edgeEntry{edge: edge, seq: g.next()}
	}

	g.link(edge)
}

func (g *graphStore) link(edge *models.WorkflowEdge) {
	for _, nodeID := range []string{edge.Source, edge.Target} {
		if ids, ok := g.incident[nodeID]; ok {
			ids[edge.ID] = struct{}{}
		}
	}
}

func (g *graphStore) unlink(edge *models.WorkflowEdge) {
	for _, nodeID := range []string{edge.Source, edge.Target} {
		if ids, ok := g.incident[nodeID]; ok {
			delete(ids, edge.ID)
		}
	}
}

// removeNode deletes the node and every edge touching it, returning the removed edge ids.
func (g *graphStore) removeNode(id string) ([]string, bool) {
	if _, ok := g.nodes[id]; !ok {
		return nil, false
	}

	removed := make([]string, 0, len(g.incident[id]))
	for edgeID := range g.incident[id] {
		g.removeEdge(edgeID)
		removed = append(removed, edgeID)
	}

	delete(g.nodes, id)
	delete(g.incident, id)

	return removed, true
}

func (g *graphStore) removeEdge(id string) bool {
	entry, ok := g.edges[id]
	if !ok {
		return false
	}

	g.unlink(entry.edge)
	delete(g.edges, id)

	return true
}

func (g *graphStore) node(id string) (*models.WorkflowNode, bool) {
	entry, ok := g.nodes[id]
	if !ok {
		return nil, false
	}

	return entry.node, true
}

func (g *graphStore) edge(id string) (*models.WorkflowEdge, bool) {
	entry, ok := g.edges[id]
	if !ok {
		return nil, false
	}

	return entry.edge, true
}

func (g *graphStore) orderedNodes() []*models.WorkflowNode {
	entries := make([]*nodeEntry, 0, len(g.nodes))
	for _, entry := range g.nodes {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*models.WorkflowNode, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.node)
	}

	return out
}

func (g *graphStore) orderedEdges() []*models.WorkflowEdge {
	entries := make([]*edgeEntry, 0, len(g.edges))
	for _, entry := range g.edges {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*models.WorkflowEdge, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.edge)
	}

	return out
}

func (g *graphStore) snapshot() Snapshot {
	return Snapshot{
		Nodes: models.CloneNodes(g.orderedNodes()),
		Edges: models.CloneEdges(g.orderedEdges()),
	}
}

// restore replaces the whole graph with a copy of s.
func (g *graphStore) restore(s Snapshot) {
	g.nodes = make(map[string]*nodeEntry, len(s.Nodes))
	g.edges = make(map[string]*edgeEntry, len(s.Edges))
	g.incident = make(map[string]map[string]struct{}, len(s.Nodes))

	for _, node := range s.Nodes {
		g.putNode(node.Clone())
	}

	for _, edge := range s.Edges {
		g.putEdge(edge.Clone())
	}
}

// Node implements Graph.
func (g *graphStore) Node(id string) (*models.WorkflowNode, bool) {
	return g.node(id)
}

// Successors implements Graph.
func (g *graphStore) Successors(id string) []string {
	var out []string

	for edgeID := range g.incident[id] {
		edge := g.edges[edgeID].edge
		if edge.Source == id {
			out = append(out, edge.Target)
		}
	}

	sort.Strings(out)

	return out
}

// HasEdge implements Graph.
func (g *graphStore) HasEdge(source, target string) bool {
	for edgeID := range g.incident[source] {
		edge := g.edges[edgeID].edge
		if edge.Source == source && edge.Target == target {
			return true
		}
	}

	return false
}
