package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

// Neo4jBackend executes structured queries as Cypher against Neo4j.
type Neo4jBackend struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jBackend creates a new Neo4j backend instance.
func NewNeo4jBackend(uri, username, password, database string) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jBackend{
		client:   driver,
		database: database,
	}, nil
}

// Provider implements Backend.
func (n *Neo4jBackend) Provider() Provider {
	return ProviderNeo4j
}

// Close implements Backend.
func (n *Neo4jBackend) Close() error {
	return n.client.Close(context.Background())
}

// Execute implements Backend.
func (n *Neo4jBackend) Execute(ctx context.Context, q *StructuredQuery, acc *Accumulator) ([]Row, error) {
	defer track(acc, time.Now())

	cypher, params, err := BuildCypher(q)
	if err != nil {
		return nil, err
	}

	session := n.client.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, &QueryError{Provider: ProviderNeo4j, Query: cypher, Err: err}
	}

	records := result.([]*db.Record)
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, rowFromValues(record.Values))
	}
	return rows, nil
}

// LoadFixture implements Loader.
func (n *Neo4jBackend) LoadFixture(ctx context.Context, f *Fixture) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	entities := make([]map[string]any, 0, len(f.Entities))
	for _, e := range f.Entities {
		entities = append(entities, map[string]any{"mid": e.ID, "name": e.Name})
	}
	triples := make([]map[string]any, 0, len(f.Triples))
	for _, t := range f.AllTriples() {
		triples = append(triples, map[string]any{"s": t[0], "p": t[1], "o": t[2]})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			UNWIND $entities AS e
			MERGE (n:Entity {mid: e.mid})
			SET n.name = e.name
		`, map[string]any{"entities": entities}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			UNWIND $triples AS t
			MERGE (s:Entity {mid: t.s})
			MERGE (o:Entity {mid: t.o})
			MERGE (s)-[:RELATION {name: t.p}]->(o)
		`, map[string]any{"triples": triples})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to load fixture into neo4j: %w", err)
	}
	return nil
}

// rowFromValues converts driver values to string cells.
func rowFromValues(values []any) Row {
	row := make(Row, len(values))
	for i, v := range values {
		switch tv := v.(type) {
		case nil:
			row[i] = ""
		case string:
			row[i] = tv
		default:
			row[i] = fmt.Sprint(tv)
		}
	}
	return row
}
