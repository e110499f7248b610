package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Markdown renders markdown documents as plain text
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates the markdown provider. The goldmark parser is
// configured once and shared; each Parse call keeps its own state.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Name returns "markdown"
func (m *Markdown) Name() string {
	return "markdown"
}

// SupportedTypes returns the markdown media types
func (m *Markdown) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Extract parses the whole document and returns its text
func (m *Markdown) Extract(ctx context.Context, r io.Reader, mediaType string) (io.ReadCloser, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	document := m.md.Parser().Parse(text.NewReader(source))

	out := &markdownText{source: source}
	if err := ast.Walk(document, out.walk); err != nil {
		return nil, fmt.Errorf("failed to walk markdown: %w", err)
	}

	return io.NopCloser(bytes.NewReader(out.bytes())), nil
}

type markdownText struct {
	source []byte
	buf    bytes.Buffer
}

func (m *markdownText) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Text:
		if entering {
			m.buf.Write(node.Segment.Value(m.source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				m.buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil

	case *ast.String:
		if entering {
			m.buf.Write(node.Value)
		}
		return ast.WalkContinue, nil

	case *ast.CodeBlock, *ast.FencedCodeBlock:
		if entering {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				m.buf.Write(segment.Value(m.source))
			}
			return ast.WalkSkipChildren, nil
		}
		m.endParagraph()
		return ast.WalkContinue, nil

	case *ast.HTMLBlock, *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	}

	if entering {
		return ast.WalkContinue, nil
	}

	switch n.Kind() {
	case ast.KindParagraph, ast.KindHeading, ast.KindBlockquote, ast.KindList, ast.KindThematicBreak:
		m.endParagraph()
	case ast.KindTextBlock, ast.KindListItem:
		m.endLine()
	}
	return ast.WalkContinue, nil
}

func (m *markdownText) endLine() {
	if m.buf.Len() > 0 && !bytes.HasSuffix(m.buf.Bytes(), []byte("\n")) {
		m.buf.WriteByte('\n')
	}
}

func (m *markdownText) endParagraph() {
	m.endLine()
	if m.buf.Len() > 0 && !bytes.HasSuffix(m.buf.Bytes(), []byte("\n\n")) {
		m.buf.WriteByte('\n')
	}
}

func (m *markdownText) bytes() []byte {
	out := bytes.TrimRight(m.buf.Bytes(), "\n")
	if len(out) == 0 {
		return nil
	}
	return append(out, '\n')
}
