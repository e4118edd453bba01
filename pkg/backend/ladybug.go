//go:build cgo

package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	ladybug "github.com/LadybugDB/go-ladybug"
)

// ladybugSchemaQueries creates the entity/relation tables used by BuildCypher.
var ladybugSchemaQueries = []string{
	"CREATE NODE TABLE IF NOT EXISTS Entity (mid STRING PRIMARY KEY, name STRING);",
	"CREATE REL TABLE IF NOT EXISTS RELATION (FROM Entity TO Entity, name STRING);",
}

// LadybugBackend executes structured queries against an embedded Ladybug
// database.
type LadybugBackend struct {
	db     *ladybug.Database
	client *ladybug.Connection
	// mu serializes access; the ladybug C++ library is not thread-safe.
	mu     sync.Mutex
	closed bool
	logger *slog.Logger
}

// NewLadybugBackend opens (or creates) the database at dbPath. An empty path
// opens an in-memory database.
func NewLadybugBackend(dbPath string, logger *slog.Logger) (*LadybugBackend, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	if logger == nil {
		logger = slog.Default()
	}

	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    256 * 1024 * 1024,
		MaxNumThreads:     1,
		EnableCompression: true,
		ReadOnly:          false,
		MaxDbSize:         1 << 40,
	}

	database, err := ladybug.OpenDatabase(dbPath, systemConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open ladybug database: %w", err)
	}

	client, err := ladybug.OpenConnection(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	b := &LadybugBackend{db: database, client: client, logger: logger}
	for _, q := range ladybugSchemaQueries {
		res, err := client.Query(q)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create ladybug schema: %w", err)
		}
		res.Close()
	}
	return b, nil
}

// Provider implements Backend.
func (k *LadybugBackend) Provider() Provider {
	return ProviderLadybug
}

// Close implements Backend.
func (k *LadybugBackend) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	if k.client != nil {
		k.client.Close()
	}
	if k.db != nil {
		k.db.Close()
	}
	return nil
}

// Execute implements Backend.
func (k *LadybugBackend) Execute(ctx context.Context, q *StructuredQuery, acc *Accumulator) ([]Row, error) {
	defer track(acc, time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cypher, params, err := BuildCypher(q)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, ErrClosed
	}

	rows, err := k.run(cypher, params)
	if err != nil {
		return nil, &QueryError{Provider: ProviderLadybug, Query: cypher, Err: err}
	}
	return rows, nil
}

// run executes one statement. Caller must hold the lock.
func (k *LadybugBackend) run(cypher string, params map[string]any) ([]Row, error) {
	var (
		results *ladybug.QueryResult
		err     error
	)
	if len(params) > 0 {
		stmt, err := k.client.Prepare(cypher)
		if err != nil {
			return nil, err
		}
		results, err = k.client.Execute(stmt, params)
		if err != nil {
			return nil, err
		}
	} else {
		results, err = k.client.Query(cypher)
		if err != nil {
			return nil, err
		}
	}
	defer results.Close()

	var rows []Row
	for results.HasNext() {
		tuple, err := results.Next()
		if err != nil {
			return nil, err
		}
		values, err := tuple.GetAsSlice()
		if err != nil {
			return nil, err
		}
		rows = append(rows, rowFromValues(values))
	}
	return rows, nil
}

// LoadFixture implements Loader.
func (k *LadybugBackend) LoadFixture(ctx context.Context, f *Fixture) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrClosed
	}

	names := make(map[string]string, len(f.Entities))
	for _, e := range f.Entities {
		names[e.ID] = e.Name
	}
	ensure := func(mid string) error {
		_, err := k.run("MERGE (n:Entity {mid: $mid}) SET n.name = $name", map[string]any{
			"mid":  mid,
			"name": names[mid],
		})
		return err
	}

	seen := make(map[string]bool)
	for _, t := range f.AllTriples() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, mid := range []string{t[0], t[2]} {
			if seen[mid] {
				continue
			}
			if err := ensure(mid); err != nil {
				return fmt.Errorf("failed to load entity %s: %w", mid, err)
			}
			seen[mid] = true
		}
		_, err := k.run(`
			MATCH (s:Entity), (o:Entity)
			WHERE s.mid = $s AND o.mid = $o
			CREATE (s)-[:RELATION {name: $p}]->(o)
		`, map[string]any{"s": t[0], "p": t[1], "o": t[2]})
		if err != nil {
			return fmt.Errorf("failed to load triple %s: %w", strings.Join(t[:], " "), err)
		}
	}
	k.logger.Info("Loaded fixture into ladybug", "triples", len(f.Triples), "entities", len(seen))
	return nil
}
