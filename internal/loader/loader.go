// Package loader turns uploaded files into plain-text document units.
//
// Supported formats are fixed by an extension allow-list: pdf, docx and txt.
// PDFs yield one unit per page so citations can point at a page number; the
// other formats yield a single unit with page 0.
package loader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Birzhan20/neuro-search-core/internal/models"
	"github.com/Birzhan20/neuro-search-core/internal/repositories"
)

// Loader reads documents from the local filesystem.
type Loader struct{}

// New creates a Loader.
func New() *Loader {
	return &Loader{}
}

// Supported reports whether the file extension is on the allow-list.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".txt":
		return true
	}
	return false
}

// Load reads the file at path into ordered document units.
// Returns repositories.ErrNotFound when the file does not exist and
// repositories.ErrUnsupportedFormat for extensions outside the allow-list.
func (l *Loader) Load(path string) ([]models.DocumentUnit, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", repositories.ErrNotFound, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(path)
	case ".docx":
		return l.loadDocx(path)
	case ".txt":
		return l.loadText(path)
	default:
		return nil, fmt.Errorf("%w: %s", repositories.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (l *Loader) loadText(path string) ([]models.DocumentUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return []models.DocumentUnit{{
		Text:   string(data),
		Page:   0,
		Source: path,
	}}, nil
}

func (l *Loader) loadPDF(path string) ([]models.DocumentUnit, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	var units []models.DocumentUnit
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d of %s: %w", i, path, err)
		}

		// Page numbers are zero-based in chunk metadata.
		units = append(units, models.DocumentUnit{
			Text:   text,
			Page:   i - 1,
			Source: path,
		})
	}

	return units, nil
}

// documentXML mirrors the paragraph/run/text nesting of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func (l *Loader) loadDocx(path string) ([]models.DocumentUnit, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer archive.Close()

	var content []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document.xml in %s: %w", path, err)
		}
		content, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read document.xml in %s: %w", path, err)
		}
		break
	}
	if content == nil {
		return nil, fmt.Errorf("no word/document.xml in %s", path)
	}

	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document.xml in %s: %w", path, err)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				sb.WriteString(t)
			}
		}
		paragraphs = append(paragraphs, sb.String())
	}

	return []models.DocumentUnit{{
		Text:   strings.Join(paragraphs, "\n"),
		Page:   0,
		Source: path,
	}}, nil
}
