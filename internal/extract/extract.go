// Package extract reads the plain text of a document to proofread.
//
// Word documents (.docx) yield one line per paragraph and HTML pages one
// line per block element. Anything else is read as UTF-8 text. Invalid
// UTF-8 is dropped in every case so offsets computed on the result are
// stable.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"proofread/internal/logging"
)

// DocxMIME is the media type of Word documents.
const DocxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	wordNS          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart    = "word/document.xml"
	maxDocumentPart = 64 << 20
)

// ErrNotDocx is returned by DOCX for data that is not a Word document.
var ErrNotDocx = errors.New("not a docx document")

var paragraphExpr = xpath.MustCompile("//*[local-name()='p']")

// File extracts the text of the file at path.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if IsDocx(path, data) {
		text, err := DOCX(data)
		if err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", path, err)
		}
		return text, nil
	}
	if IsHTML(path) {
		text, err := HTML(data)
		if err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", path, err)
		}
		return text, nil
	}
	return Text(data), nil
}

// IsDocx reports whether a file looks like a Word document, by extension or
// by its zip signature together with a document part.
func IsDocx(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".docx") {
		return true
	}
	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	return findPart(zr, documentPart) != nil
}

// Text returns data as text with a leading BOM removed, CRLF line endings
// folded to LF and invalid UTF-8 dropped.
func Text(data []byte) string {
	s := string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ToValidUTF8(s, "")
}

// DOCX returns the paragraphs of a Word document joined by newlines.
func DOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	part := findPart(zr, documentPart)
	if part == nil {
		return "", fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", documentPart, err)
	}
	defer rc.Close()

	doc, err := xmlquery.Parse(io.LimitReader(rc, maxDocumentPart))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", documentPart, err)
	}

	var lines []string
	for _, p := range xmlquery.QuerySelectorAll(doc, paragraphExpr) {
		if !isWord(p) {
			continue
		}
		var sb strings.Builder
		paragraphText(&sb, p)
		lines = append(lines, sb.String())
	}
	logging.ExtractDebug("docx: %d paragraphs", len(lines))

	return strings.ToValidUTF8(strings.Join(lines, "\n"), ""), nil
}

// paragraphText appends the runs of one paragraph. Paragraphs nested inside
// it (text boxes) are skipped here; the paragraph query visits them on
// their own.
func paragraphText(sb *strings.Builder, n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if isWord(c) {
			switch c.Data {
			case "p", "pPr", "rPr", "delText":
				// nested paragraphs, properties (tab stops live there) and
				// deleted revisions
				continue
			case "t":
				sb.WriteString(c.InnerText())
				continue
			case "tab":
				sb.WriteByte('\t')
				continue
			case "br", "cr":
				sb.WriteByte('\n')
				continue
			}
		}
		paragraphText(sb, c)
	}
}

func isWord(n *xmlquery.Node) bool {
	return n.NamespaceURI == wordNS || n.Prefix == "w"
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
