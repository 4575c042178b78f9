package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// collect runs a full sync and drains both channels the way the loader does.
func collect(t *testing.T, c *Connector) ([]domain.RawDocument, []error) {
	t.Helper()
	docsCh, errsCh := c.FullSync(context.Background())
	return drain(t, docsCh, errsCh)
}

func drain(t *testing.T, docsCh <-chan domain.RawDocument, errsCh <-chan error) ([]domain.RawDocument, []error) {

	var (
		docs []domain.RawDocument
		errs []error
	)
	for docsCh != nil || errsCh != nil {
		select {
		case doc, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			docs = append(docs, doc)
		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			errs = append(errs, err)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout draining connector channels")
		}
	}
	return docs, errs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	connector := New("/tmp/test")

	require.NotNil(t, connector)
	assert.Equal(t, "/tmp/test", connector.Root())
	assert.Equal(t, "filesystem", connector.Type())

	var _ driven.Connector = connector
}

func TestConnector_FullSync(t *testing.T) {
	t.Run("walks nested directories in lexical order", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "b.txt"), "b")
		writeFile(t, filepath.Join(root, "a.md"), "# a")
		writeFile(t, filepath.Join(root, "sub", "c.txt"), "c")

		docs, errs := collect(t, New(root))
		require.Empty(t, errs)
		require.Len(t, docs, 3)

		assert.Equal(t, filepath.Join(root, "a.md"), docs[0].URI)
		assert.Equal(t, filepath.Join(root, "b.txt"), docs[1].URI)
		assert.Equal(t, filepath.Join(root, "sub", "c.txt"), docs[2].URI)
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "visible.txt"), "visible")
		writeFile(t, filepath.Join(root, ".hidden.txt"), "hidden")
		writeFile(t, filepath.Join(root, ".git", "config"), "hidden")

		docs, errs := collect(t, New(root))
		require.Empty(t, errs)
		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].URI, "visible.txt")
	})

	t.Run("root inside a hidden directory is still walked", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), ".docqa", "data")
		writeFile(t, filepath.Join(root, "notes.txt"), "notes")

		docs, _ := collect(t, New(root))
		assert.Len(t, docs, 1)
	})

	t.Run("filter drops unsupported types", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "keep.txt"), "keep")
		writeFile(t, filepath.Join(root, "drop.png"), "png")

		onlyText := WithFilter(func(m string) bool { return m == "text/plain" })
		docs, _ := collect(t, New(root, onlyText))
		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].URI, "keep.txt")
	})

	t.Run("only the supported extensions are emitted", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "notes.txt"), "notes")
		writeFile(t, filepath.Join(root, "blob"), "\x7fELF\x02\x01\x01")
		writeFile(t, filepath.Join(root, "LICENSE"), "MIT")
		writeFile(t, filepath.Join(root, "server.log"), "GET / 200")

		accepted := WithFilter(func(m string) bool { return m != unknownMIMEType })
		docs, errs := collect(t, New(root, accepted))
		require.Empty(t, errs)
		require.Len(t, docs, 1)
		assert.Equal(t, filepath.Join(root, "notes.txt"), docs[0].URI)
	})

	t.Run("handles non-existent directory", func(t *testing.T) {
		docs, errs := collect(t, New("/non/existent/path"))

		assert.Empty(t, docs)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "does not exist")

		var skip *domain.SkippableLoadError
		assert.False(t, errors.As(errs[0], &skip), "a missing root is not skippable")
	})

	t.Run("handles cancelled context", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.txt"), "a")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		docsCh, errsCh := New(root).FullSync(ctx)
		require.NotNil(t, docsCh)
		require.NotNil(t, errsCh)
		for range docsCh {
		}
		for range errsCh {
		}
	})

	t.Run("includes file metadata", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "Test.TXT"), "hello")

		docs, _ := collect(t, New(root))
		require.Len(t, docs, 1)

		doc := docs[0]
		assert.Equal(t, "text/plain", doc.MIMEType)
		assert.Equal(t, []byte("hello"), doc.Content)
		assert.Equal(t, "Test.TXT", doc.Metadata["filename"])
		assert.Equal(t, "txt", doc.Metadata["extension"])
	})
}

func TestConnector_Validate(t *testing.T) {
	t.Run("valid directory succeeds", func(t *testing.T) {
		assert.NoError(t, New(t.TempDir()).Validate(context.Background()))
	})

	t.Run("non-existent path returns error", func(t *testing.T) {
		err := New("/non/existent/path/12345").Validate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("file instead of directory returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		writeFile(t, path, "content")

		err := New(path).Validate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Equal(t, context.Canceled, New(t.TempDir()).Validate(ctx))
	})
}

func TestConnector_Watch(t *testing.T) {
	waitFor := func(t *testing.T, ch <-chan domain.RawDocumentChange, want domain.ChangeType) domain.RawDocumentChange {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case change := <-ch:
				if change.Type == want {
					return change
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %s event", want)
			}
		}
	}

	t.Run("reports created, updated and deleted files", func(t *testing.T) {
		root := t.TempDir()
		connector := New(root)
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(root, "new-file.txt")
		writeFile(t, path, "content")
		change := waitFor(t, changes, domain.ChangeCreated)
		assert.Equal(t, path, change.Document.URI)

		writeFile(t, path, "modified")
		waitFor(t, changes, domain.ChangeUpdated)

		require.NoError(t, os.Remove(path))
		change = waitFor(t, changes, domain.ChangeDeleted)
		assert.Equal(t, path, change.Document.URI)
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		changes, err := New("/non/existent/path").Watch(context.Background())

		require.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		connector := New(t.TempDir())
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-changes:
			if ok {
				for range changes {
				}
			}
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error when connector is closed", func(t *testing.T) {
		connector := New(t.TempDir())
		require.NoError(t, connector.Close())

		changes, err := connector.Watch(context.Background())
		require.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "closed")
	})
}

func TestConnector_Close(t *testing.T) {
	connector := New("/tmp/test")

	assert.NoError(t, connector.Close())
	assert.NoError(t, connector.Close())
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename     string
		expectedMIME string
	}{
		{"notes.txt", "text/plain"},
		{"doc.md", "text/markdown"},
		{"doc.markdown", "text/markdown"},
		{"FILE.MD", "text/markdown"},
		{"report.pdf", "application/pdf"},
		{"report.DOCX", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"LICENSE", unknownMIMEType},
		{"a.out", unknownMIMEType},
		{"notes.text", unknownMIMEType},
		{"server.log", unknownMIMEType},
		{"page.html", unknownMIMEType},
		{"image.png", unknownMIMEType},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expectedMIME, detectMIMEType(tt.filename))
		})
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name           string
		file           string
		create         bool
		dir            bool
		operation      fsnotify.Op
		expectedChange bool
		expectedType   domain.ChangeType
	}{
		{"create file", "test.txt", true, false, fsnotify.Create, true, domain.ChangeCreated},
		{"write file", "test.txt", true, false, fsnotify.Write, true, domain.ChangeUpdated},
		{"write and chmod", "test.txt", true, false, fsnotify.Write | fsnotify.Chmod, true, domain.ChangeUpdated},
		{"remove file", "removed.txt", false, false, fsnotify.Remove, true, domain.ChangeDeleted},
		{"rename file", "renamed.txt", false, false, fsnotify.Rename, true, domain.ChangeDeleted},
		{"chmod ignored", "test.txt", true, false, fsnotify.Chmod, false, 0},
		{"directory ignored", "testdir", false, true, fsnotify.Create, false, 0},
		{"hidden create ignored", ".hidden.txt", true, false, fsnotify.Create, false, 0},
		{"hidden remove ignored", ".hidden.txt", false, false, fsnotify.Remove, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			eventPath := filepath.Join(root, tt.file)
			if tt.dir {
				require.NoError(t, os.Mkdir(eventPath, 0o755))
			}
			if tt.create {
				writeFile(t, eventPath, "content")
			}

			change := New(root).handleFsEvent(fsnotify.Event{Name: eventPath, Op: tt.operation})

			if !tt.expectedChange {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, tt.expectedType, change.Type)
			assert.Equal(t, eventPath, change.Document.URI)
			if tt.create {
				assert.Equal(t, []byte("content"), change.Document.Content)
			}
		})
	}
}
