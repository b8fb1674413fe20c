package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file types the extractor cannot read.
var ErrUnsupportedFormat = errors.New("document: unsupported format")

// Extractor converts uploaded documents into plain text.
type Extractor struct{}

// NewExtractor creates a document text extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns the plain text of the document. The format is decided by
// the filename extension; txt and md content is passed through as-is.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return string(data), nil
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractDOCX reads the main document part of the OOXML container and
// collects its text runs, one line per paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("read docx: %w", err)
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errors.New("read docx: missing word/document.xml")
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		buf   strings.Builder
		inRun bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract docx text: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				buf.WriteString("\n")
			}
		case xml.CharData:
			if inRun {
				buf.Write(t)
			}
		}
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
