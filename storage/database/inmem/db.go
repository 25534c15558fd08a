package inmemdb

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
)

type (
	// DB is a process-local document store; every logical collection is a table.
	DB struct {
		mutex  sync.RWMutex
		tables map[string]*table
	}

	table struct {
		docs map[string][]byte
	}
)

var _ core.DocStore = (*DB)(nil)

func Open() *DB {
	return &DB{tables: make(map[string]*table)}
}

func (db *DB) table(collection string, create bool) *table {
	t, ok := db.tables[collection]
	if !ok && create {
		t = &table{docs: make(map[string][]byte)}
		db.tables[collection] = t
	}
	return t
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

func (db *DB) GetDocument(_ context.Context, collection, id string) ([]byte, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if t := db.table(collection, false); t != nil {
		if doc, ok := t.docs[id]; ok {
			return clone(doc), nil
		}
	}
	return nil, core.ErrDocumentNotFound
}

func (db *DB) SetDocument(_ context.Context, collection, id string, data []byte, opts core.SetOptions) error {
	if !json.Valid(data) {
		return errors.Errorf("invalid JSON document %s/%s", collection, id)
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	t := db.table(collection, true)
	if prev, ok := t.docs[id]; ok && opts.Merge {
		merged, err := MergeJSON(prev, data)
		if err != nil {
			return errors.Wrapf(err, "merging %s/%s", collection, id)
		}
		t.docs[id] = merged
		return nil
	}
	t.docs[id] = clone(data)
	return nil
}

func (db *DB) DeleteDocument(_ context.Context, collection, id string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if t := db.table(collection, false); t != nil {
		delete(t.docs, id)
	}
	return nil
}

func (db *DB) ListDocumentIDs(_ context.Context, collection, idPrefix string) ([]string, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	ids := make([]string, 0)
	if t := db.table(collection, false); t != nil {
		for id := range t.docs {
			if strings.HasPrefix(id, idPrefix) {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// MergeJSON overlays the top-level fields of patch onto base.
func MergeJSON(base, patch []byte) ([]byte, error) {
	var b, p map[string]json.RawMessage
	if err := json.Unmarshal(base, &b); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patch, &p); err != nil {
		return nil, err
	}
	if b == nil {
		b = make(map[string]json.RawMessage, len(p))
	}
	for k, v := range p {
		b[k] = v
	}
	return json.Marshal(b)
}
