package naming

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-content-mediafilter/internal/content"
	"github.com/tendant/simple-content-mediafilter/internal/formats"
)

var jpeg = formats.Format{ShortDescription: "JPEG", MediaType: "image/jpeg", Extensions: []string{"jpg", "jpeg"}}

type fakeLister struct {
	containers map[string][]*content.Container
	assets     map[string][]*content.Asset
	err        error
}

func (f *fakeLister) ListContainers(ctx context.Context, itemID string, name string) ([]*content.Container, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.containers[itemID+"/"+name], nil
}

func (f *fakeLister) ListAssets(ctx context.Context, containerID string) ([]*content.Asset, error) {
	return f.assets[containerID], nil
}

func TestNameDefaultConvention(t *testing.T) {
	n, err := New("THUMBNAIL", "", jpeg)
	require.NoError(t, err)

	assert.Equal(t, "fig1.tif.jpg", n.Name("fig1.tif"))
	assert.Equal(t, n.Name("fig1.tif"), n.Name("fig1.tif"), "naming is pure")
}

func TestNameTemplate(t *testing.T) {
	n, err := New("THUMBNAIL", "$src.thumb.$ext", jpeg)
	require.NoError(t, err)
	assert.Equal(t, "fig1.tif.thumb.jpg", n.Name("fig1.tif"))

	n, err = New("THUMBNAIL", "preview.$ext", jpeg)
	require.NoError(t, err)
	assert.Equal(t, "preview.jpg", n.Name("fig1.tif"))
}

func TestNameTemplateDoesNotRescanSubstitutions(t *testing.T) {
	n, err := New("TEXT", "$src.$ext", formats.Format{ShortDescription: "Text", Extensions: []string{"txt"}})
	require.NoError(t, err)
	assert.Equal(t, "cost$ext.txt", n.Name("cost$ext"))
}

func TestNewRejectsFormatWithoutExtension(t *testing.T) {
	_, err := New("THUMBNAIL", "", formats.Format{ShortDescription: "Opaque"})
	assert.ErrorIs(t, err, ErrNoExtension)
}

func TestExisting(t *testing.T) {
	lister := &fakeLister{
		containers: map[string][]*content.Container{
			"item-1/THUMBNAIL": {{ID: "c1", Name: "THUMBNAIL"}, {ID: "c2", Name: "THUMBNAIL"}},
		},
		assets: map[string][]*content.Asset{
			"c1": {{ID: "a1", Name: "FIG1.TIF.JPG"}},
			"c2": {{ID: "a2", Name: "fig1.tif.jpg"}},
		},
	}
	n, err := New("THUMBNAIL", "", jpeg)
	require.NoError(t, err)

	got, err := n.Existing(context.Background(), lister, "item-1", "fig1.tif")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a2", got.ID, "match is case-sensitive")

	got, err = n.Existing(context.Background(), lister, "item-1", "fig2.tif")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = n.Existing(context.Background(), lister, "item-2", "fig1.tif")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExistingPropagatesListError(t *testing.T) {
	boom := errors.New("boom")
	n, err := New("THUMBNAIL", "", jpeg)
	require.NoError(t, err)

	_, err = n.Existing(context.Background(), &fakeLister{err: boom}, "item-1", "fig1.tif")
	assert.ErrorIs(t, err, boom)
}
