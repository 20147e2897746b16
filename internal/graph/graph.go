// Package graph exposes the typed, weighted relationship graph over
// knowledge records. The edge table is the single source of truth; the
// relationships map persisted on knowledge records is derived from it.
package graph

import (
	"fmt"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// importance formula constants: weighted edge degree, 1.0 base, capped so a
// hub node cannot dominate downstream ranking.
const (
	baseImportance = 1.0
	importancePerW = 0.1
	importanceCeil = 5.0
)

// Node is a knowledge record as seen by a traversal, carrying the derived
// importance score used for downstream ranking and visualization.
type Node struct {
	ID         int64           `json:"id"`
	Title      string          `json:"title"`
	Category   models.Category `json:"category"`
	Importance float64         `json:"importance"`
}

// Traversal is the result of a bounded breadth-first expansion.
type Traversal struct {
	Nodes []Node        `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// Graph validates edges against the record store and answers traversal
// queries.
type Graph struct {
	edges     *store.EdgeStore
	knowledge *store.KnowledgeStore
}

func New(edges *store.EdgeStore, knowledge *store.KnowledgeStore) *Graph {
	return &Graph{edges: edges, knowledge: knowledge}
}

// AddEdge persists an edge after checking that both endpoints exist. A
// missing endpoint fails with ReferenceError and the edge is not created.
func (g *Graph) AddEdge(e *models.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for _, id := range []int64{e.SourceID, e.TargetID} {
		ok, err := g.knowledge.Exists(id)
		if err != nil {
			return fmt.Errorf("check edge endpoint: %w", err)
		}
		if !ok {
			return &models.ReferenceError{NodeID: id}
		}
	}
	return g.edges.Insert(e)
}

// RemoveEdgesFor deletes every edge incident to the node and returns the
// count removed.
func (g *Graph) RemoveEdgesFor(nodeID int64) (int64, error) {
	return g.edges.DeleteFor(nodeID)
}

// Neighbors returns the edges incident to the node.
func (g *Graph) Neighbors(nodeID int64) ([]models.Edge, error) {
	return g.edges.Incident(nodeID)
}

// Traverse expands breadth-first from the center up to depth hops. Depth 0
// returns only the center node and no edges. A visited set guarantees
// termination and exactly-once node emission under cycles; edges are
// deduplicated by (source, target, type), keeping the first-seen weight.
func (g *Graph) Traverse(centerID int64, depth int) (*Traversal, error) {
	if _, err := g.knowledge.Peek(centerID); err != nil {
		return nil, err
	}
	if depth < 0 {
		depth = 0
	}

	visited := map[int64]bool{centerID: true}
	seenEdges := map[[2]int64]map[string]bool{}
	result := &Traversal{}

	if err := g.appendNode(result, centerID); err != nil {
		return nil, err
	}

	frontier := []int64{centerID}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []int64
		for _, nodeID := range frontier {
			outgoing, err := g.edges.From(nodeID)
			if err != nil {
				return nil, err
			}
			for _, e := range outgoing {
				key := [2]int64{e.SourceID, e.TargetID}
				if seenEdges[key] == nil {
					seenEdges[key] = map[string]bool{}
				}
				if !seenEdges[key][e.Type] {
					seenEdges[key][e.Type] = true
					result.Edges = append(result.Edges, e)
				}

				if visited[e.TargetID] {
					continue
				}
				visited[e.TargetID] = true
				if err := g.appendNode(result, e.TargetID); err != nil {
					return nil, err
				}
				next = append(next, e.TargetID)
			}
		}
		frontier = next
	}

	return result, nil
}

// RelationshipsFor builds the derived relationships projection for a record:
// relationship type to ordered target ids.
func (g *Graph) RelationshipsFor(nodeID int64) (map[string][]int64, error) {
	outgoing, err := g.edges.From(nodeID)
	if err != nil {
		return nil, err
	}
	if len(outgoing) == 0 {
		return nil, nil
	}
	rels := make(map[string][]int64)
	for _, e := range outgoing {
		rels[e.Type] = append(rels[e.Type], e.TargetID)
	}
	return rels, nil
}

// ProjectionsFor is the batch form of RelationshipsFor, keyed by node id.
func (g *Graph) ProjectionsFor(ids []int64) (map[int64]map[string][]int64, error) {
	bySource, err := g.edges.BySources(ids)
	if err != nil {
		return nil, err
	}
	result := make(map[int64]map[string][]int64, len(bySource))
	for id, edges := range bySource {
		rels := make(map[string][]int64)
		for _, e := range edges {
			rels[e.Type] = append(rels[e.Type], e.TargetID)
		}
		result[id] = rels
	}
	return result, nil
}

// Importance computes the node's derived importance: weighted edge degree,
// 1.0 + 0.1 per unit of incident edge weight, capped at 5.0. Deterministic
// for a given edge set.
func (g *Graph) Importance(nodeID int64) (float64, error) {
	sum, err := g.edges.WeightSum(nodeID)
	if err != nil {
		return 0, err
	}
	imp := baseImportance + importancePerW*sum
	if imp > importanceCeil {
		imp = importanceCeil
	}
	return imp, nil
}

func (g *Graph) appendNode(t *Traversal, id int64) error {
	k, err := g.knowledge.Peek(id)
	if err != nil {
		return fmt.Errorf("load traversal node %d: %w", id, err)
	}
	imp, err := g.Importance(id)
	if err != nil {
		return err
	}
	t.Nodes = append(t.Nodes, Node{
		ID:         k.ID,
		Title:      k.Title,
		Category:   k.Category,
		Importance: imp,
	})
	return nil
}
