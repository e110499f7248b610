package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-content-mediafilter/internal/capability"
	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/extract"
	"github.com/tendant/simple-content-mediafilter/internal/selector"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

func textProps() map[string]string {
	return map[string]string{
		config.KeySourceSelector: "ORIGINAL",
		config.KeyTargetSpec:     "TEXT",
		config.KeyTargetFormat:   "Text",
		config.KeyTargetPolicy:   "item",
	}
}

func TestExtractTextProducesTextDerivatives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addSource(t, "notes.txt", "text/plain", "Text", []byte("plain notes\n"))
	f.addSource(t, "readme.md", "text/markdown", "Markdown", []byte("# Title\n\nHello *world*.\n"))
	f.addSource(t, "page.html", "text/html; charset=utf-8", "HTML", []byte("<html><body><p>Hello <b>page</b></p></body></html>"))
	f.addSource(t, "scan.pdf", "application/pdf", "Adobe PDF", []byte("%PDF-1.4"))

	spec := loadSpec(t, pipeline.TaskExtractText, textProps())
	m, err := NewMediaFilter(spec, NewExtractText(spec, nil, nil), f.deps())
	require.NoError(t, err)

	resp, err := m.Run(ctx, "run-1", f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, resp.Status)
	assert.Equal(t, 3, resp.Eligible)
	assert.Equal(t, 3, resp.Filtered)

	out := map[string]*content.Asset{}
	for _, a := range f.derivatives(t, "TEXT") {
		out[a.Name] = a
	}
	require.Len(t, out, 3)

	assert.Equal(t, "plain notes\n", string(f.read(t, out["notes.txt.txt"])))
	md := string(f.read(t, out["readme.md.txt"]))
	assert.Contains(t, md, "Hello world.")
	assert.NotContains(t, md, "#")
	html := string(f.read(t, out["page.html.txt"]))
	assert.Contains(t, html, "Hello page")
	assert.NotContains(t, html, "<")

	d := out["notes.txt.txt"]
	assert.Equal(t, "text/plain", d.MediaType)
	assert.Equal(t, "Text", d.Format)

	rules, err := f.policies.Rules(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, itemRules, rules)
}

func TestExtractTextProviderOverride(t *testing.T) {
	props := textProps()
	props[config.KeyFilterParsers] = "plain"
	spec := loadSpec(t, pipeline.TaskExtractText, props)
	tr := NewExtractText(spec, extract.Discovered(), nil)

	// an override registered after discovery takes text/markdown from the markdown provider
	f := newFixture(t)
	f.addSource(t, "readme.md", "text/markdown", "Markdown", []byte("# Title\n"))
	m, err := NewMediaFilter(spec, tr, f.deps())
	require.NoError(t, err)

	_, err = m.Run(context.Background(), "run-1", f.item.ID)
	require.NoError(t, err)
	out := f.derivatives(t, "TEXT")
	require.Len(t, out, 1)
	assert.Equal(t, "# Title\n", string(f.read(t, out[0])))
}

func TestExtractTextSupports(t *testing.T) {
	spec := loadSpec(t, pipeline.TaskExtractText, textProps())
	tr := NewExtractText(spec, []capability.Provider{extract.NewPlain()}, nil)

	assert.True(t, tr.Supports(selector.Candidate{MediaType: "text/plain"}))
	assert.False(t, tr.Supports(selector.Candidate{MediaType: "text/html"}))

	_, err := tr.Apply(context.Background(), &content.Item{}, &content.Asset{MediaType: "text/html"}, nil)
	assert.ErrorIs(t, err, ErrTransform)
	assert.ErrorIs(t, err, ErrNoProvider)
}
