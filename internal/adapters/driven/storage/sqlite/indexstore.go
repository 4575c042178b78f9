package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// rename is swapped in tests to simulate a failing filesystem.
var rename = os.Rename

// IndexStore keeps the index in dir/index.db and replaces it atomically.
type IndexStore struct {
	dir string
}

// NewIndexStore creates a store for the index directory dir.
// Nothing is touched on disk until Replace or Open is called.
func NewIndexStore(dir string) *IndexStore {
	return &IndexStore{dir: filepath.Clean(dir)}
}

// Path returns the canonical index directory.
func (s *IndexStore) Path() string {
	return s.dir
}

// LockPath returns the lock file guarding rebuilds.
func (s *IndexStore) LockPath() string {
	return s.dir + ".lock"
}

// Replace writes entries into a fresh database beside the index directory
// and swaps it in. Returns domain.ErrIndexLocked when another rebuild holds
// the lock. On any failure the previous index is left in place.
func (s *IndexStore) Replace(ctx context.Context, entries []domain.IndexEntry, manifest domain.IndexManifest) error {
	if len(entries) == 0 {
		return errNoEntries
	}
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, e.Chunk.ID)
		}
	}
	if manifest.Dimensions == 0 {
		manifest.Dimensions = len(entries[0].Embedding)
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now()
	}

	parent := filepath.Dir(s.dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating index parent directory: %w", err)
	}

	lock := flock.New(s.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock: %s)", domain.ErrIndexLocked, s.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(s.dir)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp index directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeSnapshot(ctx, filepath.Join(tmp, DBFileName), entries, manifest); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.swap(tmp)
}

func writeSnapshot(ctx context.Context, path string, entries []domain.IndexEntry, manifest domain.IndexManifest) error {
	d, err := openDB(path)
	if err != nil {
		return err
	}
	if err := d.writeAll(ctx, entries, manifest); err != nil {
		d.Close()
		return fmt.Errorf("writing index: %w", err)
	}
	if err := d.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	return nil
}

// swap moves tmp into place. An existing index is renamed aside first
// and restored if the second rename fails.
func (s *IndexStore) swap(tmp string) error {
	backup := ""
	if _, err := os.Stat(s.dir); err == nil {
		backup = filepath.Join(filepath.Dir(s.dir), "."+filepath.Base(s.dir)+".old-"+uuid.NewString())
		if err := rename(s.dir, backup); err != nil {
			return fmt.Errorf("moving old index aside: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat index directory: %w", err)
	}

	if err := rename(tmp, s.dir); err != nil {
		if backup != "" {
			if rerr := rename(backup, s.dir); rerr != nil {
				logger.Error("restoring previous index from %s: %v", backup, rerr)
			}
		}
		return fmt.Errorf("installing new index: %w", err)
	}

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			logger.Warn("cannot remove previous index %s: %v", backup, err)
		}
	}
	return nil
}

// Open loads the persisted index into memory for querying.
func (s *IndexStore) Open(ctx context.Context) (driven.VectorIndex, error) {
	path := filepath.Join(s.dir, DBFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.dir)
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}

	d, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	entries, manifest, err := d.readAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	logger.Debug("loaded %d entries (%s, %d dims) from %s",
		len(entries), manifest.EmbeddingModel, manifest.Dimensions, path)

	return memory.NewIndex(entries, manifest)
}

// ReadManifest returns the manifest of the persisted index without loading entries.
func (s *IndexStore) ReadManifest(ctx context.Context) (domain.IndexManifest, error) {
	path := filepath.Join(s.dir, DBFileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return domain.IndexManifest{}, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, s.dir)
	}

	d, err := openDB(path)
	if err != nil {
		return domain.IndexManifest{}, err
	}
	defer d.Close()
	return d.readManifest(ctx)
}
