package semantic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Errors returned by embedding store operations.
var (
	ErrStoreMissing       = errors.New("embedding store not found: run `pieces embed` to generate it")
	ErrStoreEmpty         = errors.New("embedding store has no fragments: regenerate it with `pieces embed --force`")
	ErrUnsupportedVersion = errors.New("unsupported embedding store version")
	ErrBatchMismatch      = errors.New("embedding batch mismatch")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrModelMismatch      = errors.New("embedding model differs from existing store")
)

const (
	// StoreSchema is the format part of the version tag.
	// Change it when making breaking changes to the store format.
	StoreSchema = "pieces-v1"

	// CurrentStoreVersion is the tag written by the default model.
	CurrentStoreVersion = "nv-embed-v2::" + StoreSchema
)

// VersionTag returns the version tag for a store built with model,
// e.g. "nvidia/NV-Embed-v2" gives "nv-embed-v2::pieces-v1".
func VersionTag(model string) string {
	name := model
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name) + "::" + StoreSchema
}

// CheckVersion reports whether a store's version tag can be read.
// An empty tag is accepted for stores written before tagging.
func CheckVersion(version string) error {
	if version == "" || strings.HasSuffix(version, "::"+StoreSchema) {
		return nil
	}
	return fmt.Errorf("%w: got %q, want *::%s (rebuild with 'pieces embed --force')",
		ErrUnsupportedVersion, version, StoreSchema)
}

// NewStore creates an empty store for model.
func NewStore(model string, dimensions int) *Store {
	return &Store{
		Version:         VersionTag(model),
		Model:           model,
		CreatedAt:       time.Now().UTC(),
		Dimensions:      dimensions,
		Fragments:       []Record{},
		PieceEmbeddings: []Record{},
	}
}

// ReadStore reads a store file without validating it.
// Returns ErrStoreMissing if the file does not exist.
func ReadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStoreMissing
		}
		return nil, fmt.Errorf("reading embedding store: %w", err)
	}

	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding embedding store %s: %w", path, err)
	}
	if s.Fragments == nil {
		s.Fragments = []Record{}
	}
	if s.PieceEmbeddings == nil {
		s.PieceEmbeddings = []Record{}
	}
	return &s, nil
}

// Save writes the store as indented JSON. The file is written to a temp
// file first and renamed into place, so readers never see a partial store.
func (s *Store) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := f.Name()

	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("setting store permissions: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writing store: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Validate checks that every record has the store's width and that
// ids are unique within each class.
func (s *Store) Validate() error {
	for _, class := range []struct {
		name    string
		records []Record
	}{
		{"fragment", s.Fragments},
		{"piece", s.PieceEmbeddings},
	} {
		seen := make(map[string]bool, len(class.records))
		for _, r := range class.records {
			if len(r.Embedding) != s.Dimensions {
				return fmt.Errorf("%w: %s %s has %d dimensions, store has %d",
					ErrDimensionMismatch, class.name, r.ID, len(r.Embedding), s.Dimensions)
			}
			if seen[r.ID] {
				return fmt.Errorf("duplicate %s record %s", class.name, r.ID)
			}
			seen[r.ID] = true
		}
	}
	return nil
}

// FragmentIDs returns the set of fragment record ids.
func (s *Store) FragmentIDs() map[string]bool {
	return idSet(s.Fragments)
}

// PieceSlugs returns the set of piece record ids.
func (s *Store) PieceSlugs() map[string]bool {
	return idSet(s.PieceEmbeddings)
}

func idSet(records []Record) map[string]bool {
	set := make(map[string]bool, len(records))
	for _, r := range records {
		set[r.ID] = true
	}
	return set
}

// StoreSize returns the size of the store file in bytes.
func StoreSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrStoreMissing
		}
		return 0, err
	}
	return info.Size(), nil
}

// Exists checks if the store file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
