package raster

import (
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostCapabilities(t *testing.T) {
	caps := HostCapabilities()

	assert.True(t, caps.Supports("image/tiff", nil))
	assert.True(t, caps.Supports("image/JPEG; q=1", nil))
	assert.True(t, caps.Supports("image/webp", nil))
	assert.True(t, caps.Supports("application/octet-stream", []string{"TIF"}))
	assert.True(t, caps.Supports("", []string{".png"}))
	assert.False(t, caps.Supports("application/pdf", []string{"pdf"}))

	assert.Equal(t, []string{"image/bmp", "image/gif", "image/jpeg", "image/png", "image/tiff", "image/webp"}, caps.MediaTypes())
	assert.Contains(t, caps.Suffixes(), "jpeg")
	assert.Contains(t, caps.Suffixes(), "webp")
}

func TestOutputFormat(t *testing.T) {
	f, err := OutputFormat("image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, imaging.JPEG, f)

	f, err = OutputFormat("image/png")
	require.NoError(t, err)
	assert.Equal(t, imaging.PNG, f)

	_, err = OutputFormat("image/webp")
	assert.ErrorIs(t, err, ErrUnsupportedOutput)

	_, err = OutputFormat("text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedOutput)
}

func TestResolveFace(t *testing.T) {
	face, fallback, err := ResolveFace("Go Mono", 12)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.NotNil(t, face)

	face, fallback, err = ResolveFace("", 10)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.NotNil(t, face)

	face, fallback, err = ResolveFace("Comic Sans", 12)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.NotNil(t, face)

	_, _, err = ResolveFace("sans", 0)
	assert.ErrorIs(t, err, ErrFontSize)
}
