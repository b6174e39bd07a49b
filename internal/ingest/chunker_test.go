package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChunkTextShort(t *testing.T) {
	chunks := ChunkText("one small paragraph", 100)
	if len(chunks) != 1 || chunks[0] != "one small paragraph" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunkTextParagraphs(t *testing.T) {
	text := strings.Repeat("alpha ", 15) + "\n\n" + strings.Repeat("beta ", 15)
	chunks := ChunkText(text, 120)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "alpha") || !strings.HasPrefix(chunks[1], "beta") {
		t.Errorf("paragraph boundary not respected: %v", chunks)
	}
}

func TestChunkTextBound(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	chunks := ChunkText(text, 200)
	if len(chunks) < 2 {
		t.Fatal("long text should split")
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Errorf("chunk %d is %d chars, over budget", i, len(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestChunkTextSentenceBreaks(t *testing.T) {
	text := "First sentence here. Second sentence here. " + strings.Repeat("x", 100) + ". Tail sentence."
	chunks := ChunkText(text, 80)
	for _, c := range chunks {
		if len(c) > 80 {
			t.Errorf("chunk exceeds budget: %q", c)
		}
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := ChunkText("   \n\n  ", 100); len(chunks) != 0 {
		t.Errorf("whitespace input produced chunks: %v", chunks)
	}
}

func TestManifestRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	file := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(file, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(file)

	m := LoadManifest(path)
	if m.Unchanged(file, info) {
		t.Error("fresh manifest should report changed")
	}
	m.Record(file, info)
	if !m.Unchanged(file, info) {
		t.Error("recorded file should report unchanged")
	}
	m.Close()

	// A fresh load sees the persisted entry.
	m2 := LoadManifest(path)
	defer m2.Close()
	if !m2.Unchanged(file, info) {
		t.Error("manifest entry not persisted")
	}
}

func TestManifestDetectsChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(file, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(file)

	m := LoadManifest(filepath.Join(dir, "manifest.json"))
	defer m.Close()
	m.Record(file, info)

	if err := os.WriteFile(file, []byte("version two"), 0o644); err != nil {
		t.Fatal(err)
	}
	info2, _ := os.Stat(file)
	if m.Unchanged(file, info2) {
		t.Error("size change not detected")
	}
}

func TestManifestForget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	os.WriteFile(file, []byte("x"), 0o644)
	info, _ := os.Stat(file)

	m := LoadManifest(filepath.Join(dir, "manifest.json"))
	defer m.Close()
	m.Record(file, info)
	m.Forget(file)
	if m.Unchanged(file, info) {
		t.Error("forgotten entry still reported unchanged")
	}
}

func TestExtractTextTxt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("plain text body"), 0o644)

	text, err := ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "plain text body" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractTextMarkdownFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	content := "---\ntitle: My Note\ncategory: work\n---\nThe actual body.\n"
	os.WriteFile(path, []byte(content), 0o644)

	text, err := ExtractText(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "title:") {
		t.Errorf("frontmatter not stripped: %q", text)
	}
	if !strings.Contains(text, "The actual body.") {
		t.Errorf("body lost: %q", text)
	}
}

func TestExtractTextUnsupported(t *testing.T) {
	if _, err := ExtractText("file.docx"); err == nil {
		t.Error("unsupported extension should error")
	}
}

func TestSupported(t *testing.T) {
	for _, path := range []string{"a.txt", "b.MD", "c.pdf"} {
		if !Supported(path) {
			t.Errorf("%s should be supported", path)
		}
	}
	for _, path := range []string{"a.docx", "b.png", "noext"} {
		if Supported(path) {
			t.Errorf("%s should not be supported", path)
		}
	}
}
