package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
)

// scriptedConnector emits fixed documents and errors.
type scriptedConnector struct {
	docs        []domain.RawDocument
	errs        []error
	validateErr error
}

func (c *scriptedConnector) Type() string { return "scripted" }
func (c *scriptedConnector) Root() string { return "/scripted" }
func (c *scriptedConnector) Close() error { return nil }

func (c *scriptedConnector) Validate(context.Context) error { return c.validateErr }

func (c *scriptedConnector) Watch(context.Context) (<-chan domain.RawDocumentChange, error) {
	return nil, errors.New("not supported")
}

func (c *scriptedConnector) FullSync(context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument, len(c.docs))
	errs := make(chan error, len(c.errs))
	for _, d := range c.docs {
		docs <- d
	}
	for _, e := range c.errs {
		errs <- e
	}
	close(docs)
	close(errs)
	return docs, errs
}

func TestDocumentLoader_DrainsBufferedSkips(t *testing.T) {
	conn := &scriptedConnector{
		docs: []domain.RawDocument{{URI: "a.txt", MIMEType: "text/plain", Content: []byte("hello")}},
		errs: []error{
			&domain.SkippableLoadError{Path: "locked.txt", Err: errors.New("permission denied")},
			&domain.SkippableLoadError{Path: "gone.txt", Err: errors.New("no such file")},
		},
	}

	result, err := NewDocumentLoader(normalisers.Defaults()).Load(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Files)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "hello", result.Documents[0].Content)
	require.Len(t, result.Skipped, 2)
	assert.ElementsMatch(t, []string{"locked.txt", "gone.txt"},
		[]string{result.Skipped[0].Path, result.Skipped[1].Path})
}

func TestDocumentLoader_UnsupportedTypeIsSkipped(t *testing.T) {
	conn := &scriptedConnector{
		docs: []domain.RawDocument{{URI: "x.bin", MIMEType: "application/octet-stream", Content: []byte{0}}},
	}

	result, err := NewDocumentLoader(normalisers.Defaults()).Load(context.Background(), conn)
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.ErrorIs(t, result.Skipped[0].Err, domain.ErrUnsupportedType)
}

func TestDocumentLoader_FatalWalkError(t *testing.T) {
	conn := &scriptedConnector{errs: []error{errors.New("disk gone")}}

	_, err := NewDocumentLoader(normalisers.Defaults()).Load(context.Background(), conn)
	assert.ErrorContains(t, err, "disk gone")
}

func TestDocumentLoader_InvalidRoot(t *testing.T) {
	conn := &scriptedConnector{validateErr: errors.New("root path /x does not exist")}

	_, err := NewDocumentLoader(normalisers.Defaults()).Load(context.Background(), conn)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestDocumentLoader_EmptyRoot(t *testing.T) {
	result, err := NewDocumentLoader(normalisers.Defaults()).Load(context.Background(), &scriptedConnector{})
	require.NoError(t, err)

	assert.Zero(t, result.Files)
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.Skipped)
}

// pdftotextOutput stands in for pdftotext and prints a fixed text.
type pdftotextOutput string

func (o pdftotextOutput) Run(context.Context, string, ...string) ([]byte, error) {
	return []byte(o), nil
}

func TestDocumentLoader_PDFWithoutTextIsSkipped(t *testing.T) {
	registry := normalisers.Defaults()
	registry.Register(pdf.NewWithRunner(pdftotextOutput("\f \f")))

	conn := &scriptedConnector{docs: []domain.RawDocument{
		{URI: "scan.pdf", MIMEType: "application/pdf", Content: []byte("%PDF-1.7")},
		{URI: "notes.txt", MIMEType: "text/plain", Content: []byte("typed notes")},
	}}

	result, err := NewDocumentLoader(registry).Load(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Files)
	require.Len(t, result.Documents, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "scan.pdf", result.Skipped[0].Path)
	assert.ErrorIs(t, result.Skipped[0].Err, pdf.ErrNoText)
}
