package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/markdown")
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/corpus/alice_in-wonderland.txt",
		MIMEType: "text/plain",
		Content:  []byte("Alice was beginning to get very tired."),
		Metadata: map[string]any{"filename": "alice_in-wonderland.txt"},
	}

	docs, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, raw.URI, doc.URI)
	assert.Equal(t, "alice in wonderland", doc.Title)
	assert.Equal(t, "Alice was beginning to get very tired.", doc.Content)
	assert.Equal(t, raw.URI, doc.Metadata[domain.MetaSource])
	assert.Equal(t, "text/plain", doc.Metadata[domain.MetaMIMEType])
	assert.Equal(t, "txt", doc.Metadata[domain.MetaFormat])
	assert.Equal(t, "alice_in-wonderland.txt", doc.Metadata["filename"])

	// The raw metadata map must not be mutated.
	assert.NotContains(t, raw.Metadata, domain.MetaSource)
}

func TestNormalise_Markdown(t *testing.T) {
	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "notes.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Heading\n\nBody"),
	})
	require.NoError(t, err)
	assert.Equal(t, "md", docs[0].Metadata[domain.MetaFormat])
}

func TestNormalise_TitleFromMetadata(t *testing.T) {
	docs, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      "x.txt",
		MIMEType: "text/plain",
		Metadata: map[string]any{domain.MetaTitle: "Custom"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Custom", docs[0].Title)
}

func TestNormalise_NilDocument(t *testing.T) {
	docs, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, docs)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"plain utf8", []byte("héllo"), "héllo"},
		{"utf8 bom stripped", []byte("\xEF\xBB\xBFhello"), "hello"},
		{"utf16 little endian bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"windows-1252 fallback", []byte("caf\xE9 \x93quoted\x94"), "café “quoted”"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "my notes", extractTitle("/a/b/my_notes.txt"))
	assert.Equal(t, "README", extractTitle("README"))
}
