// Package neo4j persists the traceability graph into Neo4j for ad-hoc
// querying. Export is optional; the report files remain the CI contract and
// an export failure never fails the gate.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zarfld/reqtrace/internal/graph"
)

// Exporter writes graphs to a Neo4j instance.
type Exporter struct {
	driver neo4j.DriverWithContext
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, uri, username, password string) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Exporter{driver: driver}, nil
}

// Export upserts every artifact node and resolved reference edge. MERGE
// keeps repeated exports of the same repository idempotent. Dangling edges
// are not exported; they have no target node to anchor to.
func (e *Exporter) Export(ctx context.Context, repository string, g *graph.Graph) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, n := range g.Numbers() {
			node := g.Nodes[n]
			_, err := tx.Run(ctx,
				"MERGE (a:Artifact {repository: $repo, number: $number}) "+
					"SET a.title = $title, a.category = $category, a.state = $state",
				map[string]any{
					"repo":     repository,
					"number":   n,
					"title":    node.Artifact.Title,
					"category": string(node.Category),
					"state":    node.Artifact.State,
				})
			if err != nil {
				return nil, fmt.Errorf("store artifact #%d: %w", n, err)
			}
		}

		for _, n := range g.Numbers() {
			for _, edge := range g.Outgoing(n) {
				_, err := tx.Run(ctx,
					"MATCH (a:Artifact {repository: $repo, number: $source}) "+
						"MATCH (b:Artifact {repository: $repo, number: $target}) "+
						"MERGE (a)-[:REFERENCES {role: $role}]->(b)",
					map[string]any{
						"repo":   repository,
						"source": edge.Source,
						"target": edge.Target,
						"role":   string(edge.Role),
					})
				if err != nil {
					return nil, fmt.Errorf("store reference #%d -> #%d: %w", edge.Source, edge.Target, err)
				}
			}
		}
		return nil, nil
	})
	return err
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}
