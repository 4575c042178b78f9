// Package filesystem implements a Connector that walks a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType identifies this connector.
const ConnectorType = "filesystem"

const (
	errBufferSize    = 64
	changeBufferSize = 32
)

// supportedTypes is the closed set of extensions the loader reads.
var supportedTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// unknownMIMEType is reported for every file outside supportedTypes.
const unknownMIMEType = "application/octet-stream"

// Option configures a Connector.
type Option func(*Connector)

// WithFilter restricts emitted files to MIME types accepted by fn.
// Rejected files are never read.
func WithFilter(fn func(mimeType string) bool) Option {
	return func(c *Connector) {
		c.accept = fn
	}
}

// Connector walks rootPath and emits every visible file.
type Connector struct {
	rootPath string
	accept   func(mimeType string) bool

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a filesystem connector rooted at rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{
		rootPath: rootPath,
		accept:   func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// Root returns the corpus root.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks the root exists and is a directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.checkRoot()
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("root path %s does not exist", c.rootPath)
	}
	if err != nil {
		return fmt.Errorf("root path %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path %s is not a directory", c.rootPath)
	}
	return nil
}

// FullSync walks the root in lexical order. Files that cannot be read are
// reported as *domain.SkippableLoadError; callers should drain both channels
// concurrently.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, errBufferSize)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				if path == c.rootPath {
					return walkErr
				}
				logger.Debug("walk %s: %v", path, walkErr)
				sendErr(ctx, errs, &domain.SkippableLoadError{Path: path, Err: walkErr})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			rel, _ := filepath.Rel(c.rootPath, path)
			if rel != "." && isHidden(rel) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			raw, ok, err := c.readFile(path)
			if err != nil {
				sendErr(ctx, errs, &domain.SkippableLoadError{Path: path, Err: err})
				return nil
			}
			if !ok {
				return nil
			}

			select {
			case docs <- *raw:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			sendErr(ctx, errs, fmt.Errorf("walk %s: %w", c.rootPath, err))
		}
	}()

	return docs, errs
}

func sendErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}

// readFile loads one file. ok is false when the filter rejects its type.
func (c *Connector) readFile(path string) (*domain.RawDocument, bool, error) {
	mimeType := detectMIMEType(path)
	if !c.accept(mimeType) {
		return nil, false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return buildRawDocument(path, mimeType, content), true, nil
}

func buildRawDocument(path, mimeType string, content []byte) *domain.RawDocument {
	filename := filepath.Base(path)
	return &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"filename":  filename,
			"extension": strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		},
	}
}

// Watch emits file changes under the root until ctx is cancelled.
// New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("connector is closed")
	}
	if err := c.checkRoot(); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.RawDocumentChange, changeBufferSize)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !c.hiddenUnderRoot(event.Name) {
						if err := addTree(watcher, event.Name); err != nil {
							logger.Warn("watch %s: %v", event.Name, err)
						}
					}
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error: %v", err)
			}
		}
	}()

	return changes, nil
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) hiddenUnderRoot(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return isHidden(path)
	}
	return isHidden(rel)
}

// handleFsEvent maps one fsnotify event to a change, or nil when the event
// is irrelevant (chmod, directories, hidden paths, filtered types).
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	if c.hiddenUnderRoot(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if !c.accept(detectMIMEType(event.Name)) {
			return nil
		}
		return &domain.RawDocumentChange{
			Type: domain.ChangeDeleted,
			Document: domain.RawDocument{
				URI:      event.Name,
				MIMEType: detectMIMEType(event.Name),
			},
		}
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		raw, ok, err := c.readFile(event.Name)
		if err != nil || !ok {
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.RawDocumentChange{Type: changeType, Document: *raw}
	default:
		return nil
	}
}

// Close stops any active watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

// detectMIMEType maps a filename to a MIME type by extension only.
// Extension-less names and unknown extensions are unknownMIMEType.
func detectMIMEType(path string) string {
	if m, ok := supportedTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return unknownMIMEType
}

// isHidden reports whether any path component starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
