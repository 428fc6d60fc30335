// Package extract turns input documents into plain text for profile
// construction. Its output is untrusted raw text.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPlain    = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEHTML     = "text/html"
	MIMEJSON     = "application/json"
)

// Document is one input file or downloaded page.
type Document struct {
	Name string
	Data []byte
	// MIME may be left empty, Detect fills it in.
	MIME string
}

// Text wraps already extracted text as a plain-text document.
func Text(name, text string) Document {
	return Document{Name: name, Data: []byte(text), MIME: MIMEPlain}
}

// Extractor is the document extraction collaborator.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// TextExtractor handles plain text, Markdown, JSON and HTML.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := baseType(mimeType)
	var (
		text string
		err  error
	)
	switch base {
	case MIMEPlain, MIMEMarkdown:
		text, err = plainText(data)
	case MIMEJSON:
		text, err = jsonText(data)
	case MIMEHTML:
		text, err = htmlText(data)
	default:
		return "", &Error{MIME: mimeType, Reason: "unsupported document type"}
	}
	if err != nil {
		return "", &Error{MIME: base, Reason: "cannot read document", Err: err}
	}

	text = cleanWhitespace(text)
	if text == "" {
		return "", &Error{MIME: base, Reason: "document contains no text"}
	}
	return text, nil
}

var extensionTypes = map[string]string{
	".txt":      MIMEPlain,
	".text":     MIMEPlain,
	".md":       MIMEMarkdown,
	".markdown": MIMEMarkdown,
	".json":     MIMEJSON,
	".html":     MIMEHTML,
	".htm":      MIMEHTML,
}

// Detect picks a MIME type from the file extension and falls back to content sniffing.
func Detect(name string, data []byte) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		switch base := baseType(m.String()); base {
		case MIMEHTML, MIMEJSON, MIMEPlain:
			return base
		}
	}
	return baseType(detected.String())
}

func baseType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

// jsonText flattens every string value, visiting object keys in sorted order.
func jsonText(data []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	var lines []string
	collectStrings(doc, &lines)
	return strings.Join(lines, "\n"), nil
}

func collectStrings(v any, lines *[]string) {
	switch val := v.(type) {
	case string:
		*lines = append(*lines, val)
	case []any:
		for _, item := range val {
			collectStrings(item, lines)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(val[k], lines)
		}
	}
}

var jobPostingSelectors = []string{
	".job-description",
	"#job-description",
	".posting-content",
	".job-details",
	"[data-testid='job-description']",
	"main",
	"article",
	"#content",
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer, header, .cookie-banner").Remove()
	// Block elements end a line.
	doc.Find("p, li, br, h1, h2, h3, h4, h5, h6, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	content := doc.Find("body")
	for _, selector := range jobPostingSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			content = selection.First()
			break
		}
	}
	if content.Length() == 0 {
		content = doc.Selection
	}

	return content.Text(), nil
}

func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
