package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

const prose = `Alice was beginning to get very tired of sitting by her sister on the bank, and of having nothing to do: once or twice she had peeped into the book her sister was reading, but it had no pictures or conversations in it, "and what is the use of a book," thought Alice "without pictures or conversations?"

So she was considering in her own mind (as well as she could, for the hot day made her feel very sleepy and stupid), whether the pleasure of making a daisy-chain would be worth the trouble of getting up and picking the daisies, when suddenly a White Rabbit with pink eyes ran close by her.
There was nothing so very remarkable in that; nor did Alice think it so very much out of the way to hear the Rabbit say to itself, "Oh dear! Oh dear! I shall be late!"

In another moment down went Alice after it, never once considering how in the world she was to get out again.`

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func process(t *testing.T, p *Processor, content string) []domain.Chunk {
	t.Helper()
	doc := &domain.Document{
		ID:       "doc-1",
		Content:  content,
		Metadata: map[string]any{domain.MetaSource: "data/alice.txt", domain.MetaPage: 2},
	}
	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return chunks
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		if p.chunkSize != 300 || p.overlap != 100 {
			t.Errorf("expected 300/100, got %d/%d", p.chunkSize, p.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := mustNew(t, WithChunkSize(500), WithOverlap(0))
		if p.chunkSize != 500 || p.overlap != 0 {
			t.Errorf("expected 500/0, got %d/%d", p.chunkSize, p.overlap)
		}
	})

	invalid := []struct {
		name string
		opts []Option
	}{
		{"overlap equals chunk size", []Option{WithChunkSize(100), WithOverlap(100)}},
		{"overlap exceeds chunk size", []Option{WithChunkSize(100), WithOverlap(150)}},
		{"zero chunk size", []Option{WithChunkSize(0), WithOverlap(0)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.opts...)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if p != nil {
				t.Error("expected nil processor on invalid config")
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	if name := mustNew(t).Name(); name != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", name)
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := mustNew(t)
	for _, content := range []string{"", "   \n\n  \t"} {
		if chunks := process(t, p, content); len(chunks) != 0 {
			t.Errorf("expected no chunks for %q, got %d", content, len(chunks))
		}
	}

	chunks, err := p.Process(context.Background(), nil, nil)
	if err != nil || chunks != nil {
		t.Errorf("expected nil, nil for nil document, got %v, %v", chunks, err)
	}
}

func TestProcessor_Process_SmallContent(t *testing.T) {
	chunks := process(t, mustNew(t), "  hello world  ")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "hello world" {
		t.Errorf("expected trimmed content, got %q", chunks[0].Content)
	}
	if got := chunks[0].StartIndex(); got != 2 {
		t.Errorf("expected start_index 2, got %d", got)
	}
}

func TestProcessor_Process_NoWhitespace(t *testing.T) {
	content := strings.Repeat("a", 1000)
	chunks := process(t, mustNew(t, WithChunkSize(300), WithOverlap(100)), content)

	wantStarts := []int{0, 200, 400, 600, 800}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, chunk := range chunks {
		if got := chunk.StartIndex(); got != wantStarts[i] {
			t.Errorf("chunk %d: expected start_index %d, got %d", i, wantStarts[i], got)
		}
		if chunk.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, chunk.Position)
		}
	}
	if n := len(chunks[4].Content); n != 200 {
		t.Errorf("expected last chunk of 200 chars, got %d", n)
	}
}

func TestProcessor_Process_ParagraphBoundaries(t *testing.T) {
	chunks := process(t, mustNew(t, WithChunkSize(12), WithOverlap(0)), "para one.\n\npara two.")

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "para one." || chunks[1].Content != "para two." {
		t.Errorf("unexpected chunks %q, %q", chunks[0].Content, chunks[1].Content)
	}
	if chunks[1].StartIndex() != 11 {
		t.Errorf("expected second start_index 11, got %d", chunks[1].StartIndex())
	}
}

func TestProcessor_Process_Properties(t *testing.T) {
	configs := []struct{ size, overlap int }{
		{300, 100},
		{120, 40},
		{50, 0},
		{80, 79},
	}

	for _, cfg := range configs {
		p := mustNew(t, WithChunkSize(cfg.size), WithOverlap(cfg.overlap))
		chunks := process(t, p, prose)
		if len(chunks) < 2 {
			t.Fatalf("size %d: expected several chunks, got %d", cfg.size, len(chunks))
		}

		runes := []rune(prose)
		prevStart := -1
		for i, chunk := range chunks {
			n := utf8.RuneCountInString(chunk.Content)
			if n > cfg.size {
				t.Errorf("size %d: chunk %d has %d runes", cfg.size, i, n)
			}
			if chunk.Content == "" || strings.TrimSpace(chunk.Content) != chunk.Content {
				t.Errorf("size %d: chunk %d is empty or untrimmed: %q", cfg.size, i, chunk.Content)
			}

			start := chunk.StartIndex()
			if start < 0 || start+n > len(runes) {
				t.Fatalf("size %d: chunk %d start_index %d out of range", cfg.size, i, start)
			}
			if string(runes[start:start+n]) != chunk.Content {
				t.Errorf("size %d: chunk %d not found at its start_index", cfg.size, i)
			}
			if start <= prevStart {
				t.Errorf("size %d: start_index not increasing at chunk %d", cfg.size, i)
			}
			prevStart = start
		}
	}
}

func TestProcessor_Process_MultibyteOffsets(t *testing.T) {
	content := strings.Repeat("é", 500)
	chunks := process(t, mustNew(t, WithChunkSize(300), WithOverlap(100)), content)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].StartIndex() != 200 {
		t.Errorf("expected rune offset 200, got %d", chunks[1].StartIndex())
	}
	if n := utf8.RuneCountInString(chunks[0].Content); n != 300 {
		t.Errorf("expected 300 runes, got %d", n)
	}
}

func TestProcessor_Process_MetadataInherited(t *testing.T) {
	p := mustNew(t, WithChunkSize(100), WithOverlap(20))
	doc := &domain.Document{
		ID:       "doc-7",
		Content:  prose,
		Metadata: map[string]any{domain.MetaSource: "data/alice.pdf", domain.MetaPage: 3},
	}

	chunks, err := p.Process(context.Background(), doc, []domain.Chunk{{ID: "ignored"}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	for _, chunk := range chunks {
		if chunk.ID == "" || chunk.ID == "ignored" {
			t.Errorf("expected fresh chunk id, got %q", chunk.ID)
		}
		if chunk.DocumentID != "doc-7" {
			t.Errorf("expected document id doc-7, got %q", chunk.DocumentID)
		}
		if chunk.Metadata[domain.MetaSource] != "data/alice.pdf" || chunk.Metadata[domain.MetaPage] != 3 {
			t.Errorf("metadata not inherited: %v", chunk.Metadata)
		}
	}
	if _, ok := doc.Metadata[domain.MetaStartIndex]; ok {
		t.Error("document metadata must not be mutated")
	}
}

func TestSplitKeepingSeparator(t *testing.T) {
	got := splitKeepingSeparator("a b  c", " ")
	want := []string{"a", " b", " ", " c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := splitKeepingSeparator("héy", ""); len(got) != 3 || got[1] != "é" {
		t.Errorf("expected per-rune split, got %q", got)
	}
}
