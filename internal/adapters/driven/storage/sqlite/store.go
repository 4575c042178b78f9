package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DBFileName is the database file inside an index directory.
const DBFileName = "index.db"

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Manifest keys.
const (
	keyEmbeddingModel = "embedding_model"
	keyDimensions     = "dimensions"
	keyEntries        = "entries"
	keyCreatedAt      = "created_at"
)

// db wraps one index database file.
type db struct {
	conn *sql.DB
	path string
}

// openDB opens (creating if needed) the database at path and applies migrations.
func openDB(path string) (*db, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &db{conn: conn, path: path}
	if err := d.migrate(migrations.FS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

func (d *db) Close() error {
	return d.conn.Close()
}

// migrate runs all pending migrations.
func (d *db) migrate(fsys fs.FS) error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_index.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := d.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := d.conn.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// writeAll stores entries and the manifest in a single transaction.
func (d *db) writeAll(ctx context.Context, entries []domain.IndexEntry, manifest domain.IndexManifest) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, document_id, position, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		metadataJSON, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for chunk %s: %w", e.Chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.Chunk.ID,
			e.Chunk.DocumentID,
			e.Chunk.Position,
			e.Chunk.Content,
			float32SliceToBytes(e.Embedding),
			string(metadataJSON),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", e.Chunk.ID, err)
		}
	}

	values := map[string]string{
		keyEmbeddingModel: manifest.EmbeddingModel,
		keyDimensions:     strconv.Itoa(manifest.Dimensions),
		keyEntries:        strconv.Itoa(len(entries)),
		keyCreatedAt:      manifest.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO manifest (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("write manifest %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// readAll loads every entry in insertion order, plus the manifest.
func (d *db) readAll(ctx context.Context) ([]domain.IndexEntry, domain.IndexManifest, error) {
	manifest, err := d.readManifest(ctx)
	if err != nil {
		return nil, manifest, err
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, document_id, position, content, embedding, metadata
		FROM entries ORDER BY seq
	`)
	if err != nil {
		return nil, manifest, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.IndexEntry, 0, manifest.Entries)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, manifest, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, manifest, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, manifest, nil
}

func (d *db) readManifest(ctx context.Context) (domain.IndexManifest, error) {
	var m domain.IndexManifest

	rows, err := d.conn.QueryContext(ctx, "SELECT key, value FROM manifest")
	if err != nil {
		return m, fmt.Errorf("query manifest: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return m, fmt.Errorf("scan manifest: %w", err)
		}
		switch key {
		case keyEmbeddingModel:
			m.EmbeddingModel = value
		case keyDimensions:
			m.Dimensions, _ = strconv.Atoi(value)
		case keyEntries:
			m.Entries, _ = strconv.Atoi(value)
		case keyCreatedAt:
			m.CreatedAt, _ = time.Parse(time.RFC3339Nano, value)
		}
	}
	return m, rows.Err()
}

// scanEntry scans a single entry row.
func scanEntry(rows *sql.Rows) (*domain.IndexEntry, error) {
	var (
		e             domain.IndexEntry
		embeddingBlob []byte
		metadataJSON  sql.NullString
	)
	if err := rows.Scan(
		&e.Chunk.ID,
		&e.Chunk.DocumentID,
		&e.Chunk.Position,
		&e.Chunk.Content,
		&embeddingBlob,
		&metadataJSON,
	); err != nil {
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	if len(embeddingBlob)%4 != 0 {
		return nil, fmt.Errorf("entry %s: embedding blob of %d bytes is corrupt", e.Chunk.ID, len(embeddingBlob))
	}
	e.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON.String), &e.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}
	return &e, nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

var errNoEntries = errors.New("index holds no entries")
