package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"
)

// snapshotVersion is bumped when the snapshot layout changes.
const snapshotVersion = 1

type snapshotFile struct {
	Version     int                                  `json:"version"`
	Collections map[string]map[string]map[string]any `json:"collections"`
}

// SaveSnapshot writes every document to path, replacing the file atomically.
func (s *MemoryStore) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := snapshotFile{
		Version:     snapshotVersion,
		Collections: make(map[string]map[string]map[string]any, len(s.collections)),
	}
	for name, coll := range s.collections {
		if len(coll) == 0 {
			continue
		}
		docs := make(map[string]map[string]any, len(coll))
		for id, doc := range coll {
			docs[id] = doc.data
		}
		snap.Collections[name] = docs
	}
	raw, err := json.Marshal(snap)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot replaces the store's contents with the snapshot at path.
// A missing file leaves the store empty and is not an error.
func (s *MemoryStore) LoadSnapshot(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("snapshot %s has version %d, want %d", path, snap.Version, snapshotVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]map[string]*memDoc, len(snap.Collections))
	for name, docs := range snap.Collections {
		for id, data := range docs {
			if data == nil {
				data = map[string]any{}
			}
			s.put(name, id, data)
		}
	}
	return nil
}
