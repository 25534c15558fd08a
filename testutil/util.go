package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/trezcool/juku/core"
)

// Write is a mutation observed by a RecordingStore.
type Write struct {
	Op         string // "set" or "delete"
	Collection string
	ID         string
	Data       []byte
	Merge      bool
}

// RecordingStore wraps a document store and records every write it forwards.
// FailOn, when set, makes matching operations fail before reaching the store.
type RecordingStore struct {
	core.DocStore
	FailOn func(op, collection, id string) error

	mutex  sync.Mutex
	writes []Write
}

var _ core.DocStore = (*RecordingStore)(nil)

func NewRecordingStore(store core.DocStore) *RecordingStore {
	return &RecordingStore{DocStore: store}
}

func (s *RecordingStore) fail(op, collection, id string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn(op, collection, id)
}

func (s *RecordingStore) GetDocument(ctx context.Context, collection, id string) ([]byte, error) {
	if err := s.fail("get", collection, id); err != nil {
		return nil, err
	}
	return s.DocStore.GetDocument(ctx, collection, id)
}

func (s *RecordingStore) SetDocument(ctx context.Context, collection, id string, data []byte, opts core.SetOptions) error {
	if err := s.fail("set", collection, id); err != nil {
		return err
	}
	s.record(Write{Op: "set", Collection: collection, ID: id, Data: append([]byte(nil), data...), Merge: opts.Merge})
	return s.DocStore.SetDocument(ctx, collection, id, data, opts)
}

func (s *RecordingStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := s.fail("delete", collection, id); err != nil {
		return err
	}
	s.record(Write{Op: "delete", Collection: collection, ID: id})
	return s.DocStore.DeleteDocument(ctx, collection, id)
}

func (s *RecordingStore) record(w Write) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.writes = append(s.writes, w)
}

// Writes returns the recorded writes, optionally restricted to one collection.
func (s *RecordingStore) Writes(collection ...string) []Write {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res := make([]Write, 0, len(s.writes))
	for _, w := range s.writes {
		if len(collection) == 0 || w.Collection == collection[0] {
			res = append(res, w)
		}
	}
	return res
}

// WritesTo returns the recorded writes of one document.
func (s *RecordingStore) WritesTo(collection, id string) []Write {
	var res []Write
	for _, w := range s.Writes(collection) {
		if w.ID == id {
			res = append(res, w)
		}
	}
	return res
}

func (s *RecordingStore) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.writes = nil
}

// SetJSON stores v as a document.
func SetJSON(t *testing.T, store core.DocStore, collection, id string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("SetJSON() failed: %v", err)
	}
	if err = store.SetDocument(context.Background(), collection, id, data, core.SetOptions{}); err != nil {
		t.Fatalf("SetJSON() failed: %v", err)
	}
}

// GetJSON decodes a stored document into v and reports whether it exists.
func GetJSON(t *testing.T, store core.DocStore, collection, id string, v interface{}) bool {
	t.Helper()
	data, err := store.GetDocument(context.Background(), collection, id)
	if err == core.ErrDocumentNotFound {
		return false
	}
	if err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}
	return true
}
