package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryLookups(t *testing.T) {
	r := Default()

	jpeg, ok := r.ByShortDescription("JPEG")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", jpeg.MediaType)
	assert.Equal(t, "jpg", jpeg.PrimaryExtension())

	tiff, ok := r.ByMediaType("IMAGE/TIFF; charset=binary")
	require.True(t, ok)
	assert.Equal(t, "TIFF", tiff.ShortDescription)

	f, ok := r.ByFileName("fig1.TIF")
	require.True(t, ok)
	assert.Equal(t, "TIFF", f.ShortDescription)

	_, ok = r.ByFileName("README")
	assert.False(t, ok)

	_, ok = r.ByShortDescription("jpeg")
	assert.False(t, ok, "short descriptions are case-sensitive")
}

func TestNormalizeMediaType(t *testing.T) {
	assert.Equal(t, "text/html", NormalizeMediaType("Text/HTML; charset=UTF-8"))
	assert.Equal(t, "", NormalizeMediaType("  "))
}

func TestPrimaryExtensionEmpty(t *testing.T) {
	assert.Equal(t, "", Format{ShortDescription: "Unknown"}.PrimaryExtension())
}
