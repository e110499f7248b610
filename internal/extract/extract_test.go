package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-content-mediafilter/internal/capability"
)

func extractAll(t *testing.T, p capability.Provider, input string) string {
	t.Helper()
	rc, err := p.Extract(context.Background(), strings.NewReader(input), "")
	require.NoError(t, err)
	defer rc.Close()
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(out)
}

func TestDiscoveredOrder(t *testing.T) {
	var names []string
	for _, p := range Discovered() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"plain", "html", "markdown"}, names)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() { Register(NewPlain()) })
}

func TestDefaultRegistryDispatch(t *testing.T) {
	r := capability.NewRegistry(nil, Discovered(), nil)

	p, ok := r.Resolve("text/markdown")
	require.True(t, ok)
	assert.Equal(t, "markdown", p.Name())

	r = capability.NewRegistry(nil, Discovered(), []string{"plain"})
	p, ok = r.Resolve("text/markdown")
	require.True(t, ok)
	assert.Equal(t, "plain", p.Name())
}

func TestPlainPassThrough(t *testing.T) {
	assert.Equal(t, "a,b\n1,2\n", extractAll(t, NewPlain(), "a,b\n1,2\n"))
}

func TestHTMLText(t *testing.T) {
	input := `<html><head><title>T</title><style>p { color: red }</style></head>
<body><h1>Head</h1><p>Hello <b>bold</b> &amp; more</p>
<script>var x = "<p>no</p>";</script><p>Second
   line</p></body></html>`

	assert.Equal(t, "T\nHead\nHello bold & more\nSecond line\n", extractAll(t, NewHTML(), input))
}

func TestHTMLCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc, err := NewHTML().Extract(ctx, strings.NewReader("<p>x</p>"), "text/html")
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	assert.True(t, errors.Is(err, context.Canceled))
}

// endlessHTML yields paragraphs forever and flags reads after it is closed
type endlessHTML struct {
	closed         atomic.Bool
	readAfterClose atomic.Bool
}

func (e *endlessHTML) Read(p []byte) (int, error) {
	if e.closed.Load() {
		e.readAfterClose.Store(true)
	}
	return copy(p, "<p>more words</p>"), nil
}

func TestHTMLCloseStopsReadingSource(t *testing.T) {
	src := &endlessHTML{}
	rc, err := NewHTML().Extract(context.Background(), src, "text/html")
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(rc, buf)
	require.NoError(t, err)

	require.NoError(t, rc.Close())
	src.closed.Store(true)

	_, err = rc.Read(buf)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.False(t, src.readAfterClose.Load())
}

func TestMarkdownText(t *testing.T) {
	input := "# Title\n\nHello *world*.\n\n- one\n- two\n\n```\ncode line\n```\n"
	assert.Equal(t, "Title\n\nHello world.\n\none\ntwo\n\ncode line\n", extractAll(t, NewMarkdown(), input))
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", extractAll(t, NewMarkdown(), ""))
}
