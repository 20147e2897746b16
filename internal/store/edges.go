package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

const edgeColumns = `id, source_id, target_id, relationship_type, weight, bidirectional, created_at`

// EdgeStore handles the relationship edge table. It is the single source of
// truth for the graph; the relationships map on knowledge records is derived
// from it.
type EdgeStore struct {
	db *DB
}

func NewEdgeStore(db *DB) *EdgeStore {
	return &EdgeStore{db: db}
}

// Insert persists an edge. A bidirectional edge also inserts the reverse
// direction with the same type and weight unless that row already exists.
func (s *EdgeStore) Insert(e *models.Edge) error {
	if err := e.Validate(); err != nil {
		return err
	}
	// A zero weight reads as unset and takes the default. Explicit
	// zero-weight edges are not representable.
	if e.Weight == 0 {
		e.Weight = 1.0
	}
	e.CreatedAt = time.Now().Unix()

	_, err := s.db.execRetry(`
		INSERT INTO relationship_edges (source_id, target_id, relationship_type, weight, bidirectional, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, relationship_type) DO UPDATE SET
			weight = excluded.weight,
			bidirectional = excluded.bidirectional
	`, e.SourceID, e.TargetID, e.Type, e.Weight, boolInt(e.Bidirectional), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}

	if e.Bidirectional {
		_, err = s.db.execRetry(`
			INSERT INTO relationship_edges (source_id, target_id, relationship_type, weight, bidirectional, created_at)
			VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT(source_id, target_id, relationship_type) DO NOTHING
		`, e.TargetID, e.SourceID, e.Type, e.Weight, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert reverse edge: %w", err)
		}
	}
	return nil
}

// From returns edges whose source is the given node, in insertion order.
func (s *EdgeStore) From(nodeID int64) ([]models.Edge, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM relationship_edges WHERE source_id = ? ORDER BY id ASC`, edgeColumns), nodeID)
	if err != nil {
		return nil, fmt.Errorf("edges from node: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// Incident returns edges touching the node as either endpoint.
func (s *EdgeStore) Incident(nodeID int64) ([]models.Edge, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM relationship_edges WHERE source_id = ? OR target_id = ? ORDER BY id ASC`, edgeColumns),
		nodeID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("incident edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// DeleteFor removes every edge incident to the node, both as source and as
// target, and returns the count removed.
func (s *EdgeStore) DeleteFor(nodeID int64) (int64, error) {
	res, err := s.db.execRetry(`DELETE FROM relationship_edges WHERE source_id = ? OR target_id = ?`, nodeID, nodeID)
	if err != nil {
		return 0, fmt.Errorf("delete edges for node: %w", err)
	}
	return res.RowsAffected()
}

// WeightSum returns the total weight of edges incident to the node. The
// graph's node importance derives from this.
func (s *EdgeStore) WeightSum(nodeID int64) (float64, error) {
	var sum float64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(weight), 0) FROM relationship_edges WHERE source_id = ? OR target_id = ?
	`, nodeID, nodeID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("edge weight sum: %w", err)
	}
	return sum, nil
}

// BySources returns outgoing edges for a set of nodes in one query, keyed by
// source id. List endpoints use this to attach relationship projections
// without a per-record query.
func (s *EdgeStore) BySources(ids []int64) (map[int64][]models.Edge, error) {
	result := make(map[int64][]models.Edge)
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM relationship_edges WHERE source_id IN (%s) ORDER BY id ASC`,
			edgeColumns, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("edges by sources: %w", err)
	}
	defer rows.Close()

	edges, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		result[e.SourceID] = append(result[e.SourceID], e)
	}
	return result, nil
}

func scanEdges(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]models.Edge, error) {
	var edges []models.Edge
	for rows.Next() {
		var e models.Edge
		var bidi int
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Type, &e.Weight, &bidi, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Bidirectional = bidi != 0
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
