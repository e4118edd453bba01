package entityindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/aqqu/pkg/types"
)

// Key layout:
//
//	e\x00<id>                -> JSON types.Entity
//	s\x00<surface>\x00<id>   -> JSON surfaceEntry
var (
	entityPrefix  = []byte("e\x00")
	surfacePrefix = []byte("s\x00")
)

type surfaceEntry struct {
	Score float64 `json:"score"`
}

// BadgerIndex is an Index persisted in a Badger key-value store.
type BadgerIndex struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadgerIndex opens or creates a Badger index at dir. An empty dir
// opens an in-memory store.
func OpenBadgerIndex(dir string, logger *slog.Logger) (*BadgerIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger entity index: %w", err)
	}
	return &BadgerIndex{db: db, logger: logger}, nil
}

func entityKey(id string) []byte {
	return append(append([]byte{}, entityPrefix...), id...)
}

func surfaceKey(surface, id string) []byte {
	key := append(append([]byte{}, surfacePrefix...), surface...)
	key = append(key, 0)
	return append(key, id...)
}

// Add implements Writer.
func (b *BadgerIndex) Add(ctx context.Context, entity types.Entity, surfaces map[string]float64) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode entity %s: %w", entity.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entityKey(entity.ID), data); err != nil {
			return err
		}
		for surface, score := range surfacesFor(entity, surfaces) {
			value, err := json.Marshal(surfaceEntry{Score: score})
			if err != nil {
				return err
			}
			if err := txn.Set(surfaceKey(surface, entity.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Lookup implements Index.
func (b *BadgerIndex) Lookup(ctx context.Context, surface string) ([]Match, error) {
	surface = types.NormalizeText(surface)
	prefix := surfaceKey(surface, "")

	var matches []Match
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(bytes.TrimPrefix(item.Key(), prefix))

			var entry surfaceEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}

			entity, err := getEntity(txn, id)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					b.logger.Warn("surface refers to missing entity", "surface", surface, "entity", id)
					continue
				}
				return err
			}
			matches = append(matches, Match{Entity: *entity, Surface: surface, Score: entry.Score})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("entity index lookup failed for %q: %w", surface, err)
	}
	sortMatches(matches)
	return matches, nil
}

// Entity implements Index.
func (b *BadgerIndex) Entity(ctx context.Context, id string) (*types.Entity, bool, error) {
	var entity *types.Entity
	err := b.db.View(func(txn *badger.Txn) error {
		e, err := getEntity(txn, id)
		entity = e
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

func getEntity(txn *badger.Txn, id string) (*types.Entity, error) {
	item, err := txn.Get(entityKey(id))
	if err != nil {
		return nil, err
	}
	var e types.Entity
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	}); err != nil {
		return nil, err
	}
	return &e, nil
}

// Close implements Index.
func (b *BadgerIndex) Close() error {
	return b.db.Close()
}
