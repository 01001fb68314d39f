package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/pkg/logger"
)

// Document is one corpus file, already read and stripped. Name is the base
// filename; it becomes the prefix of every chunk id derived from this
// document.
type Document struct {
	Name string
	Text string
}

// Loader reads the documentation corpus from a directory. Plain text and
// markdown files are used as-is; HTML files are reduced to their body text.
// Enumeration order follows the filesystem walk and is not guaranteed
// stable across platforms, so callers must not depend on it.
type Loader struct {
	path string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load walks the corpus directory and returns every non-empty document.
// A missing directory or a directory that yields zero usable documents is
// a configuration error: answering against an empty index would be
// indistinguishable from "no relevant docs" and mask the misconfiguration.
func (l *Loader) Load() ([]Document, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: corpus directory %s: %v", domain.ErrConfiguration, l.path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: corpus path %s is not a directory", domain.ErrConfiguration, l.path)
	}

	var docs []Document

	err = filepath.WalkDir(l.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", path, readErr)
		}

		var text string
		switch ext {
		case ".md", ".markdown", ".txt":
			text = string(data)
		case ".html", ".htm":
			text = extractHTMLText(string(data))
		default:
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			logger.Debug("Skipping empty corpus file", zap.String("path", path))
			return nil
		}

		docs = append(docs, Document{
			Name: filepath.Base(path),
			Text: text,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory: %w", err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no usable documents in %s (expected .md, .txt or .html files)",
			domain.ErrConfiguration, l.path)
	}

	logger.Info("Corpus loaded",
		zap.String("path", l.path),
		zap.Int("documents", len(docs)),
	)

	return docs, nil
}

// extractHTMLText strips markup from an HTML corpus file, dropping script,
// style and chrome elements and collapsing whitespace runs.
func extractHTMLText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	text = whitespaceRun.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
