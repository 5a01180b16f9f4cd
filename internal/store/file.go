package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/aim-group/evidence-cli/internal/model"
)

// FileStore keeps every document as a JSON file under a single directory.
// Writes go to a temp file in the same directory followed by a rename, so
// concurrent readers (status pollers in particular) never see a torn
// document.
type FileStore struct {
	root string
}

// NewFile creates a FileStore rooted at dir.
func NewFile(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "store: create root %s", dir)
	}
	return &FileStore{root: dir}, nil
}

// Path returns the file path backing a document key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.root, key+".json")
}

func (s *FileStore) GetDocument(_ context.Context, key string) ([]byte, error) {
	body, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(ErrNotFound, "%s", key)
		}
		return nil, eris.Wrapf(err, "store: read %s", key)
	}
	return body, nil
}

func (s *FileStore) PutDocument(_ context.Context, key string, body []byte) error {
	target := s.Path(key)
	tmp, err := os.CreateTemp(s.root, key+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "store: temp file for %s", key)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "store: write %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "store: close temp for %s", key)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "store: rename %s", key)
	}
	return nil
}

func (s *FileStore) DeleteDocument(_ context.Context, key string) error {
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "store: delete %s", key)
	}
	return nil
}

func (s *FileStore) ListPairStatuses(ctx context.Context) ([]model.PairStatusRecord, error) {
	body, err := s.GetDocument(ctx, KeyPairStatus)
	if err != nil {
		if IsNotFound(err) {
			return []model.PairStatusRecord{}, nil
		}
		return nil, err
	}
	var records []model.PairStatusRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, eris.Wrap(err, "store: parse pair status list")
	}
	return records, nil
}

func (s *FileStore) SavePairStatuses(ctx context.Context, records []model.PairStatusRecord) error {
	if records == nil {
		records = []model.PairStatusRecord{}
	}
	return WriteDoc(ctx, s, KeyPairStatus, records)
}

// Migrate is a no-op for the file backend; NewFile already created the root.
func (s *FileStore) Migrate(context.Context) error { return nil }

func (s *FileStore) Close() error { return nil }
