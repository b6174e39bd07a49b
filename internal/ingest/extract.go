package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/ledongthuc/pdf"
)

// supportedExtensions is the ingest allow-list.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".pdf": true,
}

// Supported reports whether the file extension can be ingested.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// docMeta holds the frontmatter fields markdown files may carry.
type docMeta struct {
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
}

// ExtractText pulls plain text out of a supported file. Markdown
// frontmatter is stripped; PDF pages are concatenated.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil
	case ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		var meta docMeta
		body, err := frontmatter.Parse(strings.NewReader(string(data)), &meta)
		if err != nil {
			// Malformed frontmatter — treat the whole file as body.
			return string(data), nil
		}
		return string(body), nil
	case ".pdf":
		return extractPDF(path)
	default:
		return "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
}

// extractPDF concatenates the plain text of every readable page. Pages that
// fail to decode are skipped, not fatal.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("no extractable text in pdf")
	}
	return b.String(), nil
}
