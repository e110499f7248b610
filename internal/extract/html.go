package extract

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// elements whose content is never text
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// elements that start and end a line
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "title": true, "tr": true, "ul": true,
}

// HTML streams the text content of HTML documents
type HTML struct{}

// NewHTML creates the HTML provider
func NewHTML() *HTML {
	return &HTML{}
}

// Name returns "html"
func (h *HTML) Name() string {
	return "html"
}

// SupportedTypes returns the HTML media types
func (h *HTML) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Extract tokenizes r in the background and streams its text. Tokenizer
// and context errors surface from Read on the returned stream. Closing the
// stream stops the tokenizer and returns once it no longer reads r.
func (h *HTML) Extract(ctx context.Context, r io.Reader, mediaType string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(streamHTMLText(ctx, r, pw))
	}()
	return &htmlStream{PipeReader: pr, done: done}, nil
}

type htmlStream struct {
	*io.PipeReader
	done chan struct{}
}

func (s *htmlStream) Close() error {
	err := s.PipeReader.Close()
	<-s.done
	return err
}

func streamHTMLText(ctx context.Context, r io.Reader, w io.Writer) error {
	out := newTextWriter(w)
	z := html.NewTokenizer(r)
	skip := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				out.newline()
				return out.flush()
			}
			return fmt.Errorf("html tokenize failed: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedElements[tag] && tt == html.StartTagToken {
				skip++
			}
			if blockElements[tag] {
				out.newline()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedElements[tag] && skip > 0 {
				skip--
			}
			if blockElements[tag] {
				out.newline()
			}

		case html.TextToken:
			if skip == 0 {
				out.text(string(z.Text()))
			}
		}

		if out.err != nil {
			return out.err
		}
	}
}

// textWriter collapses whitespace runs and keeps lines free of leading
// and trailing blanks
type textWriter struct {
	w         *bufio.Writer
	lineStart bool
	space     bool
	err       error
}

func newTextWriter(w io.Writer) *textWriter {
	return &textWriter{w: bufio.NewWriter(w), lineStart: true}
}

func (t *textWriter) write(s string) {
	if t.err != nil {
		return
	}
	_, t.err = t.w.WriteString(s)
}

func (t *textWriter) text(s string) {
	if s == "" {
		return
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)

	words := strings.Fields(s)
	if len(words) == 0 {
		if !t.lineStart {
			t.space = true
		}
		return
	}
	if unicode.IsSpace(first) && !t.lineStart {
		t.space = true
	}
	for i, word := range words {
		if i > 0 || t.space {
			t.write(" ")
		}
		t.write(word)
	}
	t.space = unicode.IsSpace(last)
	t.lineStart = false
}

func (t *textWriter) newline() {
	if t.lineStart {
		return
	}
	t.write("\n")
	t.lineStart = true
	t.space = false
}

func (t *textWriter) flush() error {
	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}
