package snapshot

import (
	"context"
	"os"
	"path/filepath"
)

const snapshotFileName = "parking.snap"

// Repository stores encoded snapshots. Implementations persist the bytes
// atomically so a crash mid-write never corrupts the previous snapshot.
type Repository interface {
	// Load retrieves the last saved snapshot.
	// Returns nil data and nil error if no snapshot exists yet.
	Load(ctx context.Context) ([]byte, error)

	// Save persists an encoded snapshot atomically.
	Save(ctx context.Context, data []byte) error
}

// FileRepository implements Repository using a file in a directory,
// written with the temp-file-plus-rename idiom.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a FileRepository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load reads the snapshot file. A missing file is not an error.
func (r *FileRepository) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save writes the snapshot to a temp file and renames it into place.
func (r *FileRepository) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the snapshot file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, snapshotFileName)
}
